package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/agentchat/backend/internal/domain/billing"
	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrialService converts expired trials to the PERSONAL tier. Conversion is
// idempotent: a profile already converted (or never on trial) is left
// untouched and no duplicate history entry is written.
type TrialService struct {
	profileRepo   billing.UserProfileRepository
	historyRepo   billing.HistoryRepository
	trialDuration time.Duration
	logger        *zap.Logger
}

// TrialServiceConfig contains dependencies for TrialService
type TrialServiceConfig struct {
	ProfileRepo   billing.UserProfileRepository
	HistoryRepo   billing.HistoryRepository
	TrialDuration time.Duration
	Logger        *zap.Logger
}

// NewTrialService creates a new TrialService
func NewTrialService(cfg TrialServiceConfig) *TrialService {
	return &TrialService{
		profileRepo:   cfg.ProfileRepo,
		historyRepo:   cfg.HistoryRepo,
		trialDuration: cfg.TrialDuration,
		logger:        cfg.Logger,
	}
}

// TrialConversionResult reports the outcome of a trial expiration check
type TrialConversionResult struct {
	Converted bool
	Tier      billing.Tier
}

// HandleTrialExpiration converts the user's trial to PERSONAL if it has
// expired. Safe to call repeatedly for the same user.
func (s *TrialService) HandleTrialExpiration(ctx context.Context, userID uuid.UUID) (*TrialConversionResult, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		if err == shared.ErrNotFound {
			return &TrialConversionResult{Converted: false, Tier: billing.TierTrial}, nil
		}
		return nil, fmt.Errorf("failed to load billing profile: %w", err)
	}

	if !profile.ConvertTrial(time.Now()) {
		return &TrialConversionResult{Converted: false, Tier: profile.Tier}, nil
	}

	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save converted profile: %w", err)
	}

	entry := billing.NewHistoryEntry(userID, billing.HistoryTrialConverted,
		"Trial expired, converted to PERSONAL tier")
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append billing history",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	s.logger.Info("Trial converted",
		zap.String("user_id", userID.String()),
		zap.String("tier", string(profile.Tier)))

	return &TrialConversionResult{Converted: true, Tier: profile.Tier}, nil
}

// SweepExpiredTrials converts every expired trial and returns the number
// of conversions. Used by the scheduler.
func (s *TrialService) SweepExpiredTrials(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.profileRepo.FindExpiredTrials(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired trials: %w", err)
	}

	converted := 0
	for _, profile := range expired {
		result, err := s.HandleTrialExpiration(ctx, profile.UserID)
		if err != nil {
			s.logger.Error("Failed to convert expired trial",
				zap.String("user_id", profile.UserID.String()),
				zap.Error(err))
			continue
		}
		if result.Converted {
			converted++
		}
	}

	return converted, nil
}

// EnsureProfile returns the user's billing profile, creating a fresh TRIAL
// profile when none exists yet
func (s *TrialService) EnsureProfile(ctx context.Context, userID uuid.UUID) (*billing.UserProfile, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if err != shared.ErrNotFound {
		return nil, fmt.Errorf("failed to load billing profile: %w", err)
	}

	profile, err = billing.NewTrialProfile(userID, s.trialDuration)
	if err != nil {
		return nil, err
	}
	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create trial profile: %w", err)
	}

	s.logger.Info("Trial profile created",
		zap.String("user_id", userID.String()),
		zap.Time("trial_expires_at", *profile.TrialExpiresAt))

	return profile, nil
}
