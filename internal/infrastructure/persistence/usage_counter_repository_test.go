package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/agentchat/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUsageCounterTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.UserUsageModel{})
	require.NoError(t, err)

	return db
}

func TestUsageCounterRepository_Increment(t *testing.T) {
	db := setupUsageCounterTestDB(t)
	repo := NewUsageCounterRepository(db)
	ctx := context.Background()

	t.Run("creates zeroed row on first increment", func(t *testing.T) {
		userID := uuid.New()

		counters, err := repo.Increment(ctx, userID, usage.Delta{VideoMinutes: 4})
		require.NoError(t, err)

		assert.Equal(t, userID, counters.UserID)
		assert.Equal(t, int64(4), counters.VideoMinutesUsed)
		assert.Equal(t, int64(0), counters.AudioMinutesUsed)
		assert.Equal(t, int64(0), counters.MessagesSent)
		assert.True(t, counters.DataTransferredGB.IsZero())
	})

	t.Run("increments are additive across calls", func(t *testing.T) {
		userID := uuid.New()

		_, err := repo.Increment(ctx, userID, usage.Delta{VideoMinutes: 10, AudioMinutes: 5})
		require.NoError(t, err)
		_, err = repo.Increment(ctx, userID, usage.Delta{VideoMinutes: 7, Messages: 3})
		require.NoError(t, err)
		counters, err := repo.Increment(ctx, userID, usage.Delta{AudioMinutes: 2})
		require.NoError(t, err)

		assert.Equal(t, int64(17), counters.VideoMinutesUsed)
		assert.Equal(t, int64(7), counters.AudioMinutesUsed)
		assert.Equal(t, int64(3), counters.MessagesSent)
	})

	t.Run("converts data delta from megabytes to gigabytes", func(t *testing.T) {
		userID := uuid.New()

		counters, err := repo.Increment(ctx, userID, usage.Delta{
			DataTransferredMB: decimal.NewFromInt(512),
		})
		require.NoError(t, err)

		assert.True(t, counters.DataTransferredGB.Equal(decimal.NewFromFloat(0.5)),
			"expected 0.5, got %s", counters.DataTransferredGB)
	})

	t.Run("zero delta leaves counters untouched", func(t *testing.T) {
		userID := uuid.New()

		_, err := repo.Increment(ctx, userID, usage.Delta{Messages: 9})
		require.NoError(t, err)
		counters, err := repo.Increment(ctx, userID, usage.Delta{})
		require.NoError(t, err)

		assert.Equal(t, int64(9), counters.MessagesSent)
	})

	t.Run("counters are isolated per user", func(t *testing.T) {
		userA := uuid.New()
		userB := uuid.New()

		_, err := repo.Increment(ctx, userA, usage.Delta{VideoMinutes: 100})
		require.NoError(t, err)
		countersB, err := repo.Increment(ctx, userB, usage.Delta{VideoMinutes: 1})
		require.NoError(t, err)

		assert.Equal(t, int64(1), countersB.VideoMinutesUsed)
	})
}

func TestUsageCounterRepository_ConcurrentIncrements(t *testing.T) {
	db := setupUsageCounterTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps all goroutines on the same in-memory
	// database and serializes the writes.
	sqlDB.SetMaxOpenConns(1)

	repo := NewUsageCounterRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Increment(ctx, userID, usage.Delta{VideoMinutes: 3, Messages: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every delta must land; a read-modify-write implementation would
	// lose increments here.
	counters, err := repo.FindCurrent(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(writers*3), counters.VideoMinutesUsed)
	assert.Equal(t, int64(writers), counters.MessagesSent)
}

func TestUsageCounterRepository_FindCurrent(t *testing.T) {
	db := setupUsageCounterTestDB(t)
	repo := NewUsageCounterRepository(db)
	ctx := context.Background()

	t.Run("returns ErrNotFound for unknown user", func(t *testing.T) {
		_, err := repo.FindCurrent(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("returns the active cycle row", func(t *testing.T) {
		userID := uuid.New()
		_, err := repo.Increment(ctx, userID, usage.Delta{Messages: 42})
		require.NoError(t, err)

		counters, err := repo.FindCurrent(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(42), counters.MessagesSent)
		assert.True(t, counters.CycleStart.Before(counters.CycleEnd))
	})
}

func TestUsageCounterRepository_ResetCycle(t *testing.T) {
	db := setupUsageCounterTestDB(t)
	repo := NewUsageCounterRepository(db)
	ctx := context.Background()

	t.Run("zeroes counters and opens a new cycle window", func(t *testing.T) {
		userID := uuid.New()
		_, err := repo.Increment(ctx, userID, usage.Delta{
			VideoMinutes:      2000,
			AudioMinutes:      300,
			Messages:          5000,
			DataTransferredMB: decimal.NewFromInt(2048),
		})
		require.NoError(t, err)

		cycleStart := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
		counters, err := repo.ResetCycle(ctx, userID, cycleStart)
		require.NoError(t, err)

		assert.Equal(t, int64(0), counters.VideoMinutesUsed)
		assert.Equal(t, int64(0), counters.AudioMinutesUsed)
		assert.Equal(t, int64(0), counters.MessagesSent)
		assert.True(t, counters.DataTransferredGB.IsZero())
		assert.True(t, counters.CycleStart.Equal(cycleStart))
		assert.True(t, counters.CycleEnd.Equal(cycleStart.AddDate(0, 1, 0)))
	})

	t.Run("creates a fresh row for a user without counters", func(t *testing.T) {
		userID := uuid.New()
		cycleStart := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

		counters, err := repo.ResetCycle(ctx, userID, cycleStart)
		require.NoError(t, err)
		assert.Equal(t, userID, counters.UserID)
		assert.Equal(t, int64(0), counters.VideoMinutesUsed)
	})
}

func TestUsageCounterRepository_FindCyclesEndedBefore(t *testing.T) {
	db := setupUsageCounterTestDB(t)
	repo := NewUsageCounterRepository(db)
	ctx := context.Background()

	endedUser := uuid.New()
	activeUser := uuid.New()

	_, err := repo.ResetCycle(ctx, endedUser, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = repo.Increment(ctx, activeUser, usage.Delta{Messages: 1})
	require.NoError(t, err)

	ended, err := repo.FindCyclesEndedBefore(ctx, time.Now())
	require.NoError(t, err)

	require.Len(t, ended, 1)
	assert.Equal(t, endedUser, ended[0].UserID)
}
