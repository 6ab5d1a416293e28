package persistence

import (
	"context"

	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/agentchat/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookEventRepository implements usage.WebhookRecordRepository on GORM
type WebhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Save persists an audit record. Duplicate provider event IDs are ignored
// so that redelivered webhooks do not fail the audit write.
func (r *WebhookEventRepository) Save(ctx context.Context, record *usage.WebhookRecord) error {
	var model models.WebhookEventModel
	model.FromDomain(record)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(&model).Error
}

// FindByProviderEventID retrieves an audit record by provider event ID
func (r *WebhookEventRepository) FindByProviderEventID(ctx context.Context, providerEventID string) (*usage.WebhookRecord, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).First(&model, "provider_event_id = ?", providerEventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
