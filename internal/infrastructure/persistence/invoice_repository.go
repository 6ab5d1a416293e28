package persistence

import (
	"context"
	"time"

	"github.com/agentchat/backend/internal/domain/billing"
	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/agentchat/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceRepository implements billing.InvoiceRepository on GORM
type InvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create persists an invoice and all of its line items in one transaction
func (r *InvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	var model models.InvoiceModel
	model.FromDomain(invoice)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lineItems := model.LineItems
		model.LineItems = nil

		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		if len(lineItems) > 0 {
			if err := tx.Create(&lineItems).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID retrieves an invoice with its line items
func (r *InvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		First(&model, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUser retrieves a user's invoices, most recent billing period first
func (r *InvoiceRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*billing.Invoice, error) {
	var rows []models.InvoiceModel
	query := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("user_id = ?", userID).
		Order("billing_period_start DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	invoices := make([]*billing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = rows[i].ToDomain()
	}
	return invoices, nil
}

// FindPendingForPeriod retrieves the PENDING invoice covering the given
// billing period start for a user
func (r *InvoiceRepository) FindPendingForPeriod(ctx context.Context, userID uuid.UUID, periodStart time.Time) (*billing.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("user_id = ?", userID).
		Where("billing_period_start = ?", periodStart).
		Where("status = ?", billing.InvoiceStatusPending).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateStatus transitions an invoice to the given status
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status billing.InvoiceStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
