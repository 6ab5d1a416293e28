package billing

import (
	"context"
	"time"

	"github.com/agentchat/backend/internal/domain/billing"
	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock implementations

type mockProfileRepository struct {
	mock.Mock
}

func (m *mockProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*billing.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.UserProfile), args.Error(1)
}

func (m *mockProfileRepository) Save(ctx context.Context, profile *billing.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockProfileRepository) FindExpiredTrials(ctx context.Context, now time.Time) ([]*billing.UserProfile, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.UserProfile), args.Error(1)
}

type mockCounterRepository struct {
	mock.Mock
}

func (m *mockCounterRepository) FindCurrent(ctx context.Context, userID uuid.UUID) (*usage.Counters, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usage.Counters), args.Error(1)
}

func (m *mockCounterRepository) Increment(ctx context.Context, userID uuid.UUID, delta usage.Delta) (*usage.Counters, error) {
	args := m.Called(ctx, userID, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usage.Counters), args.Error(1)
}

func (m *mockCounterRepository) ResetCycle(ctx context.Context, userID uuid.UUID, cycleStart time.Time) (*usage.Counters, error) {
	args := m.Called(ctx, userID, cycleStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usage.Counters), args.Error(1)
}

func (m *mockCounterRepository) FindCyclesEndedBefore(ctx context.Context, t time.Time) ([]*usage.Counters, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*usage.Counters), args.Error(1)
}

type mockInvoiceRepository struct {
	mock.Mock
}

func (m *mockInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*billing.Invoice, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) FindPendingForPeriod(ctx context.Context, userID uuid.UUID, periodStart time.Time) (*billing.Invoice, error) {
	args := m.Called(ctx, userID, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status billing.InvoiceStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type mockHistoryRepository struct {
	mock.Mock
}

func (m *mockHistoryRepository) Append(ctx context.Context, entry *billing.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockHistoryRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*billing.HistoryEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.HistoryEntry), args.Error(1)
}

type mockPaymentRepository struct {
	mock.Mock
}

func (m *mockPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *mockPaymentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*billing.Payment, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Payment), args.Error(1)
}
