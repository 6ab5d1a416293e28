package persistence

import (
	"context"
	"time"

	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/agentchat/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageCounterRepository implements usage.CounterRepository on GORM.
//
// Increment never reads counter values before writing them: the deltas are
// applied with SQL-level additive updates so that concurrent webhook
// deliveries for the same user cannot lose updates.
type UsageCounterRepository struct {
	db *gorm.DB
}

// NewUsageCounterRepository creates a new usage counter repository
func NewUsageCounterRepository(db *gorm.DB) *UsageCounterRepository {
	return &UsageCounterRepository{db: db}
}

// FindCurrent retrieves the counter row for the user's active cycle
func (r *UsageCounterRepository) FindCurrent(ctx context.Context, userID uuid.UUID) (*usage.Counters, error) {
	var model models.UserUsageModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Increment atomically adds the delta to the user's active cycle counters,
// creating a zeroed row for the current calendar month when none exists
func (r *UsageCounterRepository) Increment(ctx context.Context, userID uuid.UUID, delta usage.Delta) (*usage.Counters, error) {
	if err := r.ensureRow(ctx, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if delta.VideoMinutes != 0 {
		updates["video_minutes_used"] = gorm.Expr("video_minutes_used + ?", delta.VideoMinutes)
	}
	if delta.AudioMinutes != 0 {
		updates["audio_minutes_used"] = gorm.Expr("audio_minutes_used + ?", delta.AudioMinutes)
	}
	if delta.Messages != 0 {
		updates["messages_sent"] = gorm.Expr("messages_sent + ?", delta.Messages)
	}
	if gb := delta.DataGB(); !gb.IsZero() {
		updates["data_transferred_gb"] = gorm.Expr("data_transferred_gb + ?", gb)
	}

	err := r.db.WithContext(ctx).
		Model(&models.UserUsageModel{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
	if err != nil {
		return nil, err
	}

	return r.FindCurrent(ctx, userID)
}

// ResetCycle replaces the user's counters with a zeroed row whose cycle
// starts at cycleStart
func (r *UsageCounterRepository) ResetCycle(ctx context.Context, userID uuid.UUID, cycleStart time.Time) (*usage.Counters, error) {
	counters, err := usage.NewCounters(userID, cycleStart)
	if err != nil {
		return nil, err
	}

	var model models.UserUsageModel
	model.FromDomain(counters)

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"cycle_start":         model.CycleStart,
			"cycle_end":           model.CycleEnd,
			"video_minutes_used":  0,
			"audio_minutes_used":  0,
			"messages_sent":       0,
			"data_transferred_gb": 0,
			"updated_at":          time.Now(),
		}),
	}).Create(&model).Error
	if err != nil {
		return nil, err
	}

	return r.FindCurrent(ctx, userID)
}

// FindCyclesEndedBefore retrieves all counter rows whose cycle window
// closed before the given time
func (r *UsageCounterRepository) FindCyclesEndedBefore(ctx context.Context, t time.Time) ([]*usage.Counters, error) {
	var rows []models.UserUsageModel
	err := r.db.WithContext(ctx).
		Where("cycle_end < ?", t).
		Order("cycle_end ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	counters := make([]*usage.Counters, len(rows))
	for i := range rows {
		counters[i] = rows[i].ToDomain()
	}
	return counters, nil
}

// ensureRow inserts a zeroed counter row for the current calendar month if
// the user has none. Concurrent callers race on the user_id unique index;
// the loser's insert is a no-op.
func (r *UsageCounterRepository) ensureRow(ctx context.Context, userID uuid.UUID) error {
	counters, err := usage.NewCountersForCurrentCycle(userID)
	if err != nil {
		return err
	}

	var model models.UserUsageModel
	model.FromDomain(counters)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&model).Error
}
