package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/profile-enrich/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	id              TEXT PRIMARY KEY,
	profile_url     TEXT NOT NULL UNIQUE,
	name            TEXT,
	email           TEXT,
	current_role    TEXT,
	current_company TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS profile_insights (
	id                  TEXT PRIMARY KEY,
	profile_id          TEXT NOT NULL UNIQUE REFERENCES profiles(id) ON DELETE CASCADE,
	insights            TEXT NOT NULL,
	raw_classifier_text TEXT NOT NULL DEFAULT '',
	enriched_at         DATETIME NOT NULL,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS targets (
	id               TEXT PRIMARY KEY,
	profile_url      TEXT NOT NULL UNIQUE,
	status           TEXT NOT NULL DEFAULT 'pending',
	last_error       TEXT,
	last_enriched_at DATETIME,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_profiles_profile_url ON profiles(profile_url);
CREATE INDEX IF NOT EXISTS idx_profile_insights_profile_id ON profile_insights(profile_id);
CREATE INDEX IF NOT EXISTS idx_targets_status ON targets(status);
CREATE INDEX IF NOT EXISTS idx_targets_created_at ON targets(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveEnrichment upserts the profile row keyed by URL, replaces its
// snapshot, and reads the stored record back, all in one transaction.
func (s *SQLiteStore) SaveEnrichment(ctx context.Context, profileURL string, insights model.ProfileInsights, rawText string, enrichedAt time.Time) (*model.EnrichmentRecord, error) {
	insightsJSON, err := json.Marshal(insights)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal insights")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin save enrichment")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (id, profile_url, name, email, current_role, current_company, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(profile_url) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			current_role = excluded.current_role,
			current_company = excluded.current_company,
			updated_at = excluded.updated_at`,
		uuid.New().String(), profileURL, insights.Name, insights.Email, insights.CurrentRole, insights.CurrentCompany, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert profile")
	}

	var profileID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM profiles WHERE profile_url = ?`, profileURL,
	).Scan(&profileID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read back profile id")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profile_insights (id, profile_id, insights, raw_classifier_text, enriched_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(profile_id) DO UPDATE SET
			insights = excluded.insights,
			raw_classifier_text = excluded.raw_classifier_text,
			enriched_at = excluded.enriched_at,
			updated_at = excluded.updated_at`,
		uuid.New().String(), profileID, string(insightsJSON), rawText, enrichedAt.UTC(), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: replace snapshot")
	}

	var (
		storedJSON string
		storedAt   time.Time
	)
	err = tx.QueryRowContext(ctx,
		`SELECT insights, enriched_at FROM profile_insights WHERE profile_id = ?`, profileID,
	).Scan(&storedJSON, &storedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read back snapshot")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit save enrichment")
	}

	var stored model.ProfileInsights
	if err := json.Unmarshal([]byte(storedJSON), &stored); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal stored insights")
	}

	return &model.EnrichmentRecord{
		ProfileID:  profileID,
		ProfileURL: profileURL,
		Insights:   stored,
		EnrichedAt: storedAt,
	}, nil
}

func (s *SQLiteStore) GetProfileByURL(ctx context.Context, profileURL string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, profile_url, name, email, current_role, current_company, created_at, updated_at
		 FROM profiles WHERE profile_url = ?`,
		profileURL,
	)

	var p model.Profile
	err := row.Scan(&p.ID, &p.ProfileURL, &p.Name, &p.Email, &p.CurrentRole, &p.CurrentCompany, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get profile by url")
	}
	return &p, nil
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, profileID string) (*model.InsightsSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, profile_id, insights, raw_classifier_text, enriched_at, created_at, updated_at
		 FROM profile_insights WHERE profile_id = ?`,
		profileID,
	)

	var (
		snap         model.InsightsSnapshot
		insightsJSON string
	)
	err := row.Scan(&snap.ID, &snap.ProfileID, &insightsJSON, &snap.RawClassifier, &snap.EnrichedAt, &snap.CreatedAt, &snap.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get snapshot")
	}
	if err := json.Unmarshal([]byte(insightsJSON), &snap.Insights); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal snapshot insights")
	}
	return &snap, nil
}

// CreateTarget registers a profile URL for batch enrichment. Registration
// is idempotent on profile_url; the bool reports whether a row was inserted.
func (s *SQLiteStore) CreateTarget(ctx context.Context, profileURL string) (*model.Target, bool, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO targets (id, profile_url, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(profile_url) DO NOTHING`,
		uuid.New().String(), profileURL, string(model.TargetStatusPending), now, now,
	)
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: insert target")
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: insert target rows affected")
	}

	t, err := s.getTargetByURL(ctx, profileURL)
	if err != nil {
		return nil, false, err
	}
	return t, inserted > 0, nil
}

func (s *SQLiteStore) getTargetByURL(ctx context.Context, profileURL string) (*model.Target, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, profile_url, status, last_error, last_enriched_at, created_at, updated_at
		 FROM targets WHERE profile_url = ?`,
		profileURL,
	)
	return scanTarget(row)
}

func (s *SQLiteStore) ListTargets(ctx context.Context, filter TargetFilter) ([]model.Target, error) {
	query := `SELECT id, profile_url, status, last_error, last_enriched_at, created_at, updated_at FROM targets WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list targets")
	}
	defer rows.Close()

	return collectTargets(rows)
}

// ClaimPending reads the oldest pending targets in FIFO order without
// mutating them; the batch runner marks each one running as it starts.
func (s *SQLiteStore) ClaimPending(ctx context.Context, limit int) ([]model.Target, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, profile_url, status, last_error, last_enriched_at, created_at, updated_at
		 FROM targets WHERE status = ?
		 ORDER BY created_at ASC, id ASC LIMIT ?`,
		string(model.TargetStatusPending), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: claim pending targets")
	}
	defer rows.Close()

	return collectTargets(rows)
}

func (s *SQLiteStore) MarkTargetRunning(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE targets SET status = ?, updated_at = ? WHERE id = ?`,
		string(model.TargetStatusRunning), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark target running %s", id)
	}
	return checkRowsAffected(res, "target", id)
}

func (s *SQLiteStore) MarkTargetSucceeded(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE targets SET status = ?, last_error = NULL, last_enriched_at = ?, updated_at = ? WHERE id = ?`,
		string(model.TargetStatusSucceeded), at.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark target succeeded %s", id)
	}
	return checkRowsAffected(res, "target", id)
}

func (s *SQLiteStore) MarkTargetFailed(ctx context.Context, id string, lastError string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE targets SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		string(model.TargetStatusFailed), lastError, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark target failed %s", id)
	}
	return checkRowsAffected(res, "target", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTarget(row rowScanner) (*model.Target, error) {
	var (
		t      model.Target
		status string
	)
	err := row.Scan(&t.ID, &t.ProfileURL, &status, &t.LastError, &t.LastEnrichedAt, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan target")
	}
	t.Status = model.TargetStatus(status)
	return &t, nil
}

func collectTargets(rows *sql.Rows) ([]model.Target, error) {
	var targets []model.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, *t)
	}
	return targets, eris.Wrap(rows.Err(), "sqlite: iterate targets")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", entity, id)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
