package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserProfileRepository persists billing-relevant user profile fields
type UserProfileRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
	Save(ctx context.Context, profile *UserProfile) error
	// FindExpiredTrials returns profiles still on TRIAL whose trial window
	// closed before the given time.
	FindExpiredTrials(ctx context.Context, now time.Time) ([]*UserProfile, error)
}

// InvoiceRepository persists invoices and their line items.
//
// Create must write the invoice and all of its line items in a single
// transaction; a half-written invoice (header without lines) must never
// be observable.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Invoice, error)
	// FindPendingForPeriod returns the PENDING invoice covering the given
	// billing period start for a user, or shared.ErrNotFound. Used to
	// de-duplicate overage-triggered invoices within one cycle.
	FindPendingForPeriod(ctx context.Context, userID uuid.UUID, periodStart time.Time) (*Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status InvoiceStatus) error
}

// HistoryRepository persists the append-only billing history
type HistoryRepository interface {
	Append(ctx context.Context, entry *HistoryEntry) error
	FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*HistoryEntry, error)
}

// PaymentRepository persists payment settlement records
type PaymentRepository interface {
	Save(ctx context.Context, payment *Payment) error
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error)
}
