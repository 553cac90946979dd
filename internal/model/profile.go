package model

import "time"

// Profile is the persisted identity row for an enriched profile URL.
// One row per URL; convenience fields mirror the latest snapshot.
type Profile struct {
	ID             string    `json:"id"`
	ProfileURL     string    `json:"profile_url"`
	Name           *string   `json:"name"`
	Email          *string   `json:"email"`
	CurrentRole    *string   `json:"current_role"`
	CurrentCompany *string   `json:"current_company"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// InsightsSnapshot is the latest enrichment result attached to a
// profile. Replaced wholesale on re-enrichment, never merged.
type InsightsSnapshot struct {
	ID             string          `json:"id"`
	ProfileID      string          `json:"profile_id"`
	Insights       ProfileInsights `json:"insights"`
	RawClassifier  string          `json:"raw_classifier_text"`
	EnrichedAt     time.Time       `json:"enriched_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// EnrichmentRecord is the canonical DTO returned to callers after a
// successful enrichment, read back from the store rather than echoed
// from memory.
type EnrichmentRecord struct {
	ProfileID  string          `json:"profile_id"`
	ProfileURL string          `json:"profile_url"`
	Insights   ProfileInsights `json:"insights"`
	EnrichedAt time.Time       `json:"enriched_at"`
}
