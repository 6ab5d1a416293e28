package persistence

import (
	"context"

	"github.com/agentchat/backend/internal/domain/billing"
	"github.com/agentchat/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRepository implements billing.PaymentRepository on GORM
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Save persists a payment record
func (r *PaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	var model models.PaymentModel
	model.FromDomain(payment)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByInvoice retrieves all payments recorded against an invoice
func (r *PaymentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*billing.Payment, error) {
	var rows []models.PaymentModel
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("paid_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	payments := make([]*billing.Payment, len(rows))
	for i := range rows {
		payments[i] = rows[i].ToDomain()
	}
	return payments, nil
}
