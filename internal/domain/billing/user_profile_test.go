package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserProfile_ConvertTrial(t *testing.T) {
	t.Run("expired trial converts to personal", func(t *testing.T) {
		profile, err := NewTrialProfile(uuid.New(), -time.Hour)
		require.NoError(t, err)

		converted := profile.ConvertTrial(time.Now())
		assert.True(t, converted)
		assert.Equal(t, TierPersonal, profile.Tier)
		assert.Nil(t, profile.TrialExpiresAt)
	})

	t.Run("active trial does not convert", func(t *testing.T) {
		profile, err := NewTrialProfile(uuid.New(), 24*time.Hour)
		require.NoError(t, err)

		assert.False(t, profile.ConvertTrial(time.Now()))
		assert.Equal(t, TierTrial, profile.Tier)
	})

	t.Run("second conversion is a no-op", func(t *testing.T) {
		profile, err := NewTrialProfile(uuid.New(), -time.Hour)
		require.NoError(t, err)

		require.True(t, profile.ConvertTrial(time.Now()))
		assert.False(t, profile.ConvertTrial(time.Now()))
		assert.Equal(t, TierPersonal, profile.Tier)
	})
}

func TestUserProfile_UpgradeTo(t *testing.T) {
	profile, err := NewTrialProfile(uuid.New(), 24*time.Hour)
	require.NoError(t, err)

	t.Run("upgrade to team", func(t *testing.T) {
		require.NoError(t, profile.UpgradeTo(TierTeam))
		assert.Equal(t, TierTeam, profile.Tier)
		assert.Nil(t, profile.TrialExpiresAt)
	})

	t.Run("cannot upgrade to trial", func(t *testing.T) {
		assert.Error(t, profile.UpgradeTo(TierTrial))
	})

	t.Run("cannot upgrade to unknown tier", func(t *testing.T) {
		assert.Error(t, profile.UpgradeTo(Tier("GOLD")))
	})
}

func TestUserProfile_Cancel(t *testing.T) {
	t.Run("paid profile cancels back to trial tier", func(t *testing.T) {
		profile, err := NewTrialProfile(uuid.New(), time.Hour)
		require.NoError(t, err)
		require.NoError(t, profile.UpgradeTo(TierTeam))

		require.NoError(t, profile.Cancel())
		assert.Equal(t, TierTrial, profile.Tier)
		assert.NotNil(t, profile.CancelledAt)
	})

	t.Run("trial profile cannot cancel", func(t *testing.T) {
		profile, err := NewTrialProfile(uuid.New(), time.Hour)
		require.NoError(t, err)
		assert.Error(t, profile.Cancel())
	})
}
