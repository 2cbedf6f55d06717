// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunStatus is the overall outcome of a search run.
type RunStatus string

const (
	RunCompleted           RunStatus = "completed"
	RunCompletedWithErrors RunStatus = "completed_with_errors"
	RunFailed              RunStatus = "failed"
)

// SourceError records one connector's soft failure during a run.
type SourceError struct {
	Source  SourceType `json:"source"`
	Message string     `json:"message"`
}

// SearchRun is the immutable provenance record of one orchestrator
// invocation.
type SearchRun struct {
	ID         string        `json:"id"`
	ProfileID  string        `json:"profile_id"`
	UserID     string        `json:"user_id"`
	RanAt      time.Time     `json:"ran_at"`
	NewSignals int           `json:"new_signals"`
	Errors     []SourceError `json:"errors"`
	Status     RunStatus     `json:"status"`
}
