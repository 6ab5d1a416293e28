package billing

import (
	"time"

	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserProfile carries the billing-relevant fields of a user account.
// Tier transitions (upgrade, cancellation, trial conversion) are the
// external triggers into the billing subsystem.
type UserProfile struct {
	shared.BaseEntity
	UserID         uuid.UUID
	Tier           Tier
	TrialExpiresAt *time.Time
	CancelledAt    *time.Time
}

// NewTrialProfile creates a profile on the TRIAL tier with the given
// trial duration
func NewTrialProfile(userID uuid.UUID, trialDuration time.Duration) (*UserProfile, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	expires := time.Now().Add(trialDuration)
	return &UserProfile{
		BaseEntity:     shared.NewBaseEntity(),
		UserID:         userID,
		Tier:           TierTrial,
		TrialExpiresAt: &expires,
	}, nil
}

// IsTrialExpired reports whether the profile is on an expired trial
func (p *UserProfile) IsTrialExpired(now time.Time) bool {
	return p.Tier == TierTrial && p.TrialExpiresAt != nil && p.TrialExpiresAt.Before(now)
}

// UpgradeTo transitions the profile to a paid tier
func (p *UserProfile) UpgradeTo(tier Tier) error {
	if !tier.IsValid() || !tier.IsPaid() {
		return shared.ErrInvalidTier
	}
	p.Tier = tier
	p.TrialExpiresAt = nil
	p.CancelledAt = nil
	p.Touch()
	return nil
}

// ConvertTrial transitions an expired trial to the PERSONAL tier.
// Calling it on a non-trial profile is a no-op and returns false.
func (p *UserProfile) ConvertTrial(now time.Time) bool {
	if !p.IsTrialExpired(now) {
		return false
	}
	p.Tier = TierPersonal
	p.TrialExpiresAt = nil
	p.Touch()
	return true
}

// Cancel marks the subscription cancelled. The profile drops back to the
// TRIAL tier with no trial window, so any further usage bills at the most
// restrictive limits.
func (p *UserProfile) Cancel() error {
	if !p.Tier.IsPaid() {
		return shared.ErrInvalidState
	}
	now := time.Now()
	p.Tier = TierTrial
	p.TrialExpiresAt = nil
	p.CancelledAt = &now
	p.Touch()
	return nil
}
