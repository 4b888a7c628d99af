package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/locastarr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRefreshRunTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.RefreshRun{})
	require.NoError(t, err)

	return db
}

func TestRefreshRunRepo_Create(t *testing.T) {
	db := setupRefreshRunTestDB(t)
	repo := NewRefreshRunRepository(db)
	ctx := context.Background()

	run := &models.RefreshRun{
		StartedAt:        time.Now(),
		DurationMillis:   1250,
		Outcome:          models.RefreshOutcomeOK,
		ChannelCount:     12,
		ProgrammeCount:   340,
		HandoffDelivered: true,
	}

	err := repo.Create(ctx, run)
	require.NoError(t, err)
	assert.False(t, run.ID.IsZero())
}

func TestRefreshRunRepo_CreateInvalidOutcome(t *testing.T) {
	db := setupRefreshRunTestDB(t)
	repo := NewRefreshRunRepository(db)

	err := repo.Create(context.Background(), &models.RefreshRun{
		StartedAt: time.Now(),
		Outcome:   "bogus",
	})
	assert.ErrorIs(t, err, models.ErrInvalidRefreshOutcome)
}

func TestRefreshRunRepo_GetRecent(t *testing.T) {
	db := setupRefreshRunTestDB(t)
	repo := NewRefreshRunRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &models.RefreshRun{
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Outcome:   models.RefreshOutcomeOK,
		}))
	}

	runs, err := repo.GetRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Newest first.
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	assert.True(t, runs[1].StartedAt.After(runs[2].StartedAt))
}

func TestRefreshRunRepo_GetLastSuccessful(t *testing.T) {
	db := setupRefreshRunTestDB(t)
	repo := NewRefreshRunRepository(db)
	ctx := context.Background()

	last, err := repo.GetLastSuccessful(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	base := time.Now().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, &models.RefreshRun{
		StartedAt: base, Outcome: models.RefreshOutcomeOK, ChannelCount: 10,
	}))
	require.NoError(t, repo.Create(ctx, &models.RefreshRun{
		StartedAt: base.Add(time.Minute), Outcome: models.RefreshOutcomeFailed,
	}))
	require.NoError(t, repo.Create(ctx, &models.RefreshRun{
		StartedAt: base.Add(2 * time.Minute), Outcome: models.RefreshOutcomeSkippedEmpty,
	}))

	last, err = repo.GetLastSuccessful(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, models.RefreshOutcomeOK, last.Outcome)
	assert.Equal(t, 10, last.ChannelCount)
}

func TestRefreshRunRepo_DeleteOlderThan(t *testing.T) {
	db := setupRefreshRunTestDB(t)
	repo := NewRefreshRunRepository(db)
	ctx := context.Background()

	now := time.Now()
	for _, age := range []time.Duration{48 * time.Hour, 24 * time.Hour, time.Hour} {
		require.NoError(t, repo.Create(ctx, &models.RefreshRun{
			StartedAt: now.Add(-age),
			Outcome:   models.RefreshOutcomeOK,
		}))
	}

	deleted, err := repo.DeleteOlderThan(ctx, now.Add(-12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	runs, err := repo.GetRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
