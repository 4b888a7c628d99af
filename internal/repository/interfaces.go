// Package repository provides data access layers for locastarr models.
package repository

import (
	"context"
	"time"

	"github.com/jmylchreest/locastarr/internal/models"
)

// RefreshRunRepository provides access to guide refresh history.
type RefreshRunRepository interface {
	// Create records a completed refresh cycle.
	Create(ctx context.Context, run *models.RefreshRun) error

	// GetRecent returns the most recent runs, newest first.
	GetRecent(ctx context.Context, limit int) ([]*models.RefreshRun, error)

	// GetLastSuccessful returns the newest run with outcome ok, or nil if
	// none exists.
	GetLastSuccessful(ctx context.Context) (*models.RefreshRun, error)

	// DeleteOlderThan removes runs started before the cutoff and returns
	// the number deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
