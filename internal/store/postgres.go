package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-enrich/internal/model"
)

// Pool is the subset of pgxpool.Pool the store depends on. It is
// satisfied by both *pgxpool.Pool and pgxmock pools.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_profile_by_url": `SELECT id, profile_url, name, email, current_role, current_company, created_at, updated_at FROM profiles WHERE profile_url = $1`,
	"get_snapshot":       `SELECT id, profile_id, insights, raw_classifier_text, enriched_at, created_at, updated_at FROM profile_insights WHERE profile_id = $1`,
	"insert_target":      `INSERT INTO targets (id, profile_url, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (profile_url) DO NOTHING`,
	"claim_pending":      `SELECT id, profile_url, status, last_error, last_enriched_at, created_at, updated_at FROM targets WHERE status = $1 ORDER BY created_at ASC, id ASC LIMIT $2`,
	"mark_running":       `UPDATE targets SET status = $1, updated_at = $2 WHERE id = $3`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	profile_url     TEXT NOT NULL UNIQUE,
	name            TEXT,
	email           TEXT,
	current_role    TEXT,
	current_company TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS profile_insights (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	profile_id          TEXT NOT NULL UNIQUE REFERENCES profiles(id) ON DELETE CASCADE,
	insights            JSONB NOT NULL,
	raw_classifier_text TEXT NOT NULL DEFAULT '',
	enriched_at         TIMESTAMPTZ NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS targets (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	profile_url      TEXT NOT NULL UNIQUE,
	status           TEXT NOT NULL DEFAULT 'pending',
	last_error       TEXT,
	last_enriched_at TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_profile_insights_profile_id ON profile_insights(profile_id);
CREATE INDEX IF NOT EXISTS idx_targets_status ON targets(status);
CREATE INDEX IF NOT EXISTS idx_targets_created_at ON targets(created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveEnrichment upserts the profile row keyed by URL, replaces its
// snapshot, and reads the stored record back, all in one transaction.
func (s *PostgresStore) SaveEnrichment(ctx context.Context, profileURL string, insights model.ProfileInsights, rawText string, enrichedAt time.Time) (*model.EnrichmentRecord, error) {
	insightsJSON, err := json.Marshal(insights)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal insights")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin save enrichment")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	var profileID string
	err = tx.QueryRow(ctx,
		`INSERT INTO profiles (id, profile_url, name, email, current_role, current_company, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (profile_url) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			current_role = excluded.current_role,
			current_company = excluded.current_company,
			updated_at = excluded.updated_at
		 RETURNING id`,
		uuid.New().String(), profileURL, insights.Name, insights.Email, insights.CurrentRole, insights.CurrentCompany, now, now,
	).Scan(&profileID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert profile")
	}

	var (
		storedJSON []byte
		storedAt   time.Time
	)
	err = tx.QueryRow(ctx,
		`INSERT INTO profile_insights (id, profile_id, insights, raw_classifier_text, enriched_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (profile_id) DO UPDATE SET
			insights = excluded.insights,
			raw_classifier_text = excluded.raw_classifier_text,
			enriched_at = excluded.enriched_at,
			updated_at = excluded.updated_at
		 RETURNING insights, enriched_at`,
		uuid.New().String(), profileID, insightsJSON, rawText, enrichedAt.UTC(), now, now,
	).Scan(&storedJSON, &storedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: replace snapshot")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit save enrichment")
	}

	var stored model.ProfileInsights
	if err := json.Unmarshal(storedJSON, &stored); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal stored insights")
	}

	return &model.EnrichmentRecord{
		ProfileID:  profileID,
		ProfileURL: profileURL,
		Insights:   stored,
		EnrichedAt: storedAt,
	}, nil
}

func (s *PostgresStore) GetProfileByURL(ctx context.Context, profileURL string) (*model.Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, profile_url, name, email, current_role, current_company, created_at, updated_at
		 FROM profiles WHERE profile_url = $1`,
		profileURL,
	)

	var p model.Profile
	err := row.Scan(&p.ID, &p.ProfileURL, &p.Name, &p.Email, &p.CurrentRole, &p.CurrentCompany, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get profile by url")
	}
	return &p, nil
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, profileID string) (*model.InsightsSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, profile_id, insights, raw_classifier_text, enriched_at, created_at, updated_at
		 FROM profile_insights WHERE profile_id = $1`,
		profileID,
	)

	var (
		snap         model.InsightsSnapshot
		insightsJSON []byte
	)
	err := row.Scan(&snap.ID, &snap.ProfileID, &insightsJSON, &snap.RawClassifier, &snap.EnrichedAt, &snap.CreatedAt, &snap.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get snapshot")
	}
	if err := json.Unmarshal(insightsJSON, &snap.Insights); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal snapshot insights")
	}
	return &snap, nil
}

func (s *PostgresStore) CreateTarget(ctx context.Context, profileURL string) (*model.Target, bool, error) {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO targets (id, profile_url, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (profile_url) DO NOTHING`,
		uuid.New().String(), profileURL, string(model.TargetStatusPending), now, now,
	)
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: insert target")
	}

	row := s.pool.QueryRow(ctx,
		`SELECT id, profile_url, status, last_error, last_enriched_at, created_at, updated_at
		 FROM targets WHERE profile_url = $1`,
		profileURL,
	)
	t, err := scanPgTarget(row)
	if err != nil {
		return nil, false, err
	}
	return t, tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ListTargets(ctx context.Context, filter TargetFilter) ([]model.Target, error) {
	query := `SELECT id, profile_url, status, last_error, last_enriched_at, created_at, updated_at FROM targets WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)

	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list targets")
	}
	defer rows.Close()

	return collectPgTargets(rows)
}

func (s *PostgresStore) ClaimPending(ctx context.Context, limit int) ([]model.Target, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, profile_url, status, last_error, last_enriched_at, created_at, updated_at
		 FROM targets WHERE status = $1
		 ORDER BY created_at ASC, id ASC LIMIT $2`,
		string(model.TargetStatusPending), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: claim pending targets")
	}
	defer rows.Close()

	return collectPgTargets(rows)
}

func (s *PostgresStore) MarkTargetRunning(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE targets SET status = $1, updated_at = $2 WHERE id = $3`,
		string(model.TargetStatusRunning), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark target running %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("target not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) MarkTargetSucceeded(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE targets SET status = $1, last_error = NULL, last_enriched_at = $2, updated_at = $3 WHERE id = $4`,
		string(model.TargetStatusSucceeded), at.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark target succeeded %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("target not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) MarkTargetFailed(ctx context.Context, id string, lastError string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE targets SET status = $1, last_error = $2, updated_at = $3 WHERE id = $4`,
		string(model.TargetStatusFailed), lastError, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark target failed %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("target not found: %s", id)
	}
	return nil
}

func scanPgTarget(row pgx.Row) (*model.Target, error) {
	var (
		t      model.Target
		status string
	)
	err := row.Scan(&t.ID, &t.ProfileURL, &status, &t.LastError, &t.LastEnrichedAt, &t.CreatedAt, &t.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan target")
	}
	t.Status = model.TargetStatus(status)
	return &t, nil
}

func collectPgTargets(rows pgx.Rows) ([]model.Target, error) {
	var targets []model.Target
	for rows.Next() {
		t, err := scanPgTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, *t)
	}
	return targets, eris.Wrap(rows.Err(), "postgres: iterate targets")
}
