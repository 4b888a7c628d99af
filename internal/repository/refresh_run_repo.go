package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jmylchreest/locastarr/internal/models"
)

// refreshRunRepo implements RefreshRunRepository using GORM.
type refreshRunRepo struct {
	db *gorm.DB
}

// NewRefreshRunRepository creates a new RefreshRunRepository.
func NewRefreshRunRepository(db *gorm.DB) RefreshRunRepository {
	return &refreshRunRepo{db: db}
}

// Create records a completed refresh cycle.
func (r *refreshRunRepo) Create(ctx context.Context, run *models.RefreshRun) error {
	if err := run.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("creating refresh run: %w", err)
	}
	return nil
}

// GetRecent returns the most recent runs, newest first.
func (r *refreshRunRepo) GetRecent(ctx context.Context, limit int) ([]*models.RefreshRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []*models.RefreshRun
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("getting recent refresh runs: %w", err)
	}
	return runs, nil
}

// GetLastSuccessful returns the newest run with outcome ok.
func (r *refreshRunRepo) GetLastSuccessful(ctx context.Context) (*models.RefreshRun, error) {
	var run models.RefreshRun
	err := r.db.WithContext(ctx).
		Where("outcome = ?", models.RefreshOutcomeOK).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting last successful refresh run: %w", err)
	}
	return &run, nil
}

// DeleteOlderThan removes runs started before the cutoff.
func (r *refreshRunRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("started_at < ?", cutoff).
		Delete(&models.RefreshRun{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting old refresh runs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
