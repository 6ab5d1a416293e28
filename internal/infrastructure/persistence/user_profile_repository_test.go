package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/agentchat/backend/internal/domain/billing"
	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/agentchat/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUserProfileTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.UserProfileModel{})
	require.NoError(t, err)

	return db
}

func TestUserProfileRepository_Save(t *testing.T) {
	db := setupUserProfileTestDB(t)
	repo := NewUserProfileRepository(db)
	ctx := context.Background()

	t.Run("saves and retrieves a trial profile", func(t *testing.T) {
		userID := uuid.New()
		profile, err := billing.NewTrialProfile(userID, 14*24*time.Hour)
		require.NoError(t, err)

		err = repo.Save(ctx, profile)
		require.NoError(t, err)

		found, err := repo.FindByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, billing.TierTrial, found.Tier)
		require.NotNil(t, found.TrialExpiresAt)
	})

	t.Run("save is an upsert keyed by user id", func(t *testing.T) {
		userID := uuid.New()
		profile, err := billing.NewTrialProfile(userID, 14*24*time.Hour)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, profile))

		require.NoError(t, profile.UpgradeTo(billing.TierTeam))
		require.NoError(t, repo.Save(ctx, profile))

		found, err := repo.FindByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, billing.TierTeam, found.Tier)
		assert.Nil(t, found.TrialExpiresAt)

		var count int64
		require.NoError(t, db.Model(&models.UserProfileModel{}).Where("user_id = ?", userID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestUserProfileRepository_FindByUserID(t *testing.T) {
	db := setupUserProfileTestDB(t)
	repo := NewUserProfileRepository(db)
	ctx := context.Background()

	_, err := repo.FindByUserID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUserProfileRepository_FindExpiredTrials(t *testing.T) {
	db := setupUserProfileTestDB(t)
	repo := NewUserProfileRepository(db)
	ctx := context.Background()

	expired, err := billing.NewTrialProfile(uuid.New(), -time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, expired))

	active, err := billing.NewTrialProfile(uuid.New(), 14*24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, active))

	paid, err := billing.NewTrialProfile(uuid.New(), -time.Hour)
	require.NoError(t, err)
	require.NoError(t, paid.UpgradeTo(billing.TierPersonal))
	require.NoError(t, repo.Save(ctx, paid))

	found, err := repo.FindExpiredTrials(ctx, time.Now())
	require.NoError(t, err)

	require.Len(t, found, 1)
	assert.Equal(t, expired.UserID, found[0].UserID)
}
