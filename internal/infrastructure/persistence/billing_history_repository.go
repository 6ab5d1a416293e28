package persistence

import (
	"context"

	"github.com/agentchat/backend/internal/domain/billing"
	"github.com/agentchat/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BillingHistoryRepository implements billing.HistoryRepository on GORM.
// History rows are append-only; there is no update path.
type BillingHistoryRepository struct {
	db *gorm.DB
}

// NewBillingHistoryRepository creates a new billing history repository
func NewBillingHistoryRepository(db *gorm.DB) *BillingHistoryRepository {
	return &BillingHistoryRepository{db: db}
}

// Append persists a history entry
func (r *BillingHistoryRepository) Append(ctx context.Context, entry *billing.HistoryEntry) error {
	var model models.BillingHistoryModel
	model.FromDomain(entry)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByUser retrieves a user's billing history, most recent first
func (r *BillingHistoryRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*billing.HistoryEntry, error) {
	var rows []models.BillingHistoryModel
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]*billing.HistoryEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}
