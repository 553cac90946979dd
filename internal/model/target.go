package model

import "time"

// TargetStatus represents the queue state of an enrichment target.
type TargetStatus string

const (
	TargetStatusPending   TargetStatus = "pending"
	TargetStatusRunning   TargetStatus = "running"
	TargetStatusSucceeded TargetStatus = "succeeded"
	TargetStatusFailed    TargetStatus = "failed"
)

// ValidTargetStatus reports whether s is a known queue status.
func ValidTargetStatus(s TargetStatus) bool {
	switch s {
	case TargetStatusPending, TargetStatusRunning, TargetStatusSucceeded, TargetStatusFailed:
		return true
	}
	return false
}

// Target is a queued profile URL awaiting enrichment. Status moves
// pending -> running -> succeeded|failed within one batch pass; failed
// targets are only retried if re-queued to pending.
type Target struct {
	ID             string       `json:"id"`
	ProfileURL     string       `json:"profile_url"`
	Status         TargetStatus `json:"status"`
	LastError      *string      `json:"last_error,omitempty"`
	LastEnrichedAt *time.Time   `json:"last_enriched_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// BatchStats summarizes one batch pass over pending targets.
type BatchStats struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
