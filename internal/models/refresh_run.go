package models

import (
	"errors"
	"time"
)

// RefreshOutcome classifies the result of one guide refresh cycle.
type RefreshOutcome string

// Refresh cycle outcomes.
const (
	// RefreshOutcomeOK means the document was translated, written, and a
	// hand-off was attempted.
	RefreshOutcomeOK RefreshOutcome = "ok"

	// RefreshOutcomeSkippedEmpty means the source returned an empty guide
	// and nothing was written; the previous document stays in place.
	RefreshOutcomeSkippedEmpty RefreshOutcome = "skipped_empty"

	// RefreshOutcomeFailed means the fetch, translation, or write failed.
	RefreshOutcomeFailed RefreshOutcome = "failed"
)

// ErrInvalidRefreshOutcome indicates an unknown outcome value.
var ErrInvalidRefreshOutcome = errors.New("invalid refresh outcome")

// RefreshRun records one guide refresh cycle, including skipped and failed
// ones, so operators can see what the refresher has been doing.
type RefreshRun struct {
	BaseModel

	StartedAt        time.Time      `gorm:"index" json:"started_at"`
	DurationMillis   int64          `json:"duration_millis"`
	Outcome          RefreshOutcome `gorm:"index;type:varchar(16)" json:"outcome"`
	ChannelCount     int            `json:"channel_count"`
	ProgrammeCount   int            `json:"programme_count"`
	HandoffDelivered bool           `json:"handoff_delivered"`
	Error            string         `json:"error,omitempty"`
}

// Validate checks the run for consistency.
func (r *RefreshRun) Validate() error {
	switch r.Outcome {
	case RefreshOutcomeOK, RefreshOutcomeSkippedEmpty, RefreshOutcomeFailed:
		return nil
	default:
		return ErrInvalidRefreshOutcome
	}
}

// Duration returns the run duration.
func (r *RefreshRun) Duration() time.Duration {
	return time.Duration(r.DurationMillis) * time.Millisecond
}
