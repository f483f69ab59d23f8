package domain

import "time"

// BuildStatus is the lifecycle state of a portfolio build
type BuildStatus string

const (
	BuildStatusInProgress BuildStatus = "in_progress"
	BuildStatusCompleted  BuildStatus = "completed"
	BuildStatusFailed     BuildStatus = "failed"
)

// Build records one run of the aggregation for an owner
type Build struct {
	ID            string      `json:"id"`
	Owner         string      `json:"owner"`
	Status        BuildStatus `json:"status"`
	ProjectCount  int         `json:"project_count"`
	DegradedCount int         `json:"degraded_count"`
	Error         string      `json:"error,omitempty"`
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    *time.Time  `json:"finished_at,omitempty"`
}
