package persistence

import (
	"context"
	"time"

	"github.com/agentchat/backend/internal/domain/billing"
	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/agentchat/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserProfileRepository implements billing.UserProfileRepository on GORM
type UserProfileRepository struct {
	db *gorm.DB
}

// NewUserProfileRepository creates a new user profile repository
func NewUserProfileRepository(db *gorm.DB) *UserProfileRepository {
	return &UserProfileRepository{db: db}
}

// FindByUserID retrieves the billing profile for a user
func (r *UserProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*billing.UserProfile, error) {
	var model models.UserProfileModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a billing profile, keyed by user ID
func (r *UserProfileRepository) Save(ctx context.Context, profile *billing.UserProfile) error {
	var model models.UserProfileModel
	model.FromDomain(profile)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"tier",
			"trial_expires_at",
			"cancelled_at",
			"updated_at",
		}),
	}).Create(&model).Error
}

// FindExpiredTrials retrieves profiles still on TRIAL whose trial window
// closed before the given time
func (r *UserProfileRepository) FindExpiredTrials(ctx context.Context, now time.Time) ([]*billing.UserProfile, error) {
	var rows []models.UserProfileModel
	err := r.db.WithContext(ctx).
		Where("tier = ?", billing.TierTrial).
		Where("trial_expires_at IS NOT NULL").
		Where("trial_expires_at < ?", now).
		Order("trial_expires_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	profiles := make([]*billing.UserProfile, len(rows))
	for i := range rows {
		profiles[i] = rows[i].ToDomain()
	}
	return profiles, nil
}
