package store

import (
	"context"
	"time"

	"github.com/sells-group/profile-enrich/internal/model"
)

// TargetFilter specifies criteria for listing enrichment targets.
type TargetFilter struct {
	Status model.TargetStatus `json:"status,omitempty"`
	Limit  int                `json:"limit,omitempty"`
	Offset int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for the enrichment pipeline.
type Store interface {
	// Profiles and insight snapshots. SaveEnrichment upserts the profile
	// keyed by URL and replaces its snapshot in a single transaction,
	// then reads the stored row back so callers see exactly what
	// persisted.
	SaveEnrichment(ctx context.Context, profileURL string, insights model.ProfileInsights, rawText string, enrichedAt time.Time) (*model.EnrichmentRecord, error)
	GetProfileByURL(ctx context.Context, profileURL string) (*model.Profile, error)
	GetSnapshot(ctx context.Context, profileID string) (*model.InsightsSnapshot, error)

	// Batch targets. CreateTarget is idempotent on profile_url; the bool
	// reports whether a new row was inserted. ClaimPending reads the
	// oldest pending targets without mutating them.
	CreateTarget(ctx context.Context, profileURL string) (*model.Target, bool, error)
	ListTargets(ctx context.Context, filter TargetFilter) ([]model.Target, error)
	ClaimPending(ctx context.Context, limit int) ([]model.Target, error)
	MarkTargetRunning(ctx context.Context, id string) error
	MarkTargetSucceeded(ctx context.Context, id string, at time.Time) error
	MarkTargetFailed(ctx context.Context, id string, lastError string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
