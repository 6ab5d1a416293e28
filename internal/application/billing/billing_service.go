package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/agentchat/backend/internal/domain/billing"
	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BillingService is the facade behind the billing HTTP surface: summary
// reads, tier transitions, and payment recording.
type BillingService struct {
	profileRepo  billing.UserProfileRepository
	counterRepo  usage.CounterRepository
	invoiceRepo  billing.InvoiceRepository
	historyRepo  billing.HistoryRepository
	paymentRepo  billing.PaymentRepository
	trials       *TrialService
	invoices     *InvoiceService
	historyLimit int
	logger       *zap.Logger
}

// BillingServiceConfig contains dependencies for BillingService
type BillingServiceConfig struct {
	ProfileRepo  billing.UserProfileRepository
	CounterRepo  usage.CounterRepository
	InvoiceRepo  billing.InvoiceRepository
	HistoryRepo  billing.HistoryRepository
	PaymentRepo  billing.PaymentRepository
	Trials       *TrialService
	Invoices     *InvoiceService
	HistoryLimit int
	Logger       *zap.Logger
}

// NewBillingService creates a new BillingService
func NewBillingService(cfg BillingServiceConfig) *BillingService {
	return &BillingService{
		profileRepo:  cfg.ProfileRepo,
		counterRepo:  cfg.CounterRepo,
		invoiceRepo:  cfg.InvoiceRepo,
		historyRepo:  cfg.HistoryRepo,
		paymentRepo:  cfg.PaymentRepo,
		trials:       cfg.Trials,
		invoices:     cfg.Invoices,
		historyLimit: cfg.HistoryLimit,
		logger:       cfg.Logger,
	}
}

// Summary is the billing and usage overview returned to the caller
type Summary struct {
	UserID         uuid.UUID
	Tier           billing.Tier
	Limits         billing.TierLimits
	MonthlyFee     decimal.Decimal
	TrialExpiresAt *time.Time
	CycleStart     time.Time
	CycleEnd       time.Time
	Usage          usage.Totals
	OverageCost    decimal.Decimal
	Invoices       []*billing.Invoice
	History        []*billing.HistoryEntry
}

// GetSummary assembles the billing summary for a user. A user without a
// billing profile is reported on TRIAL defaults without creating one.
func (s *BillingService) GetSummary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	summary := &Summary{
		UserID: userID,
		Tier:   billing.TierTrial,
	}

	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err == nil {
		summary.Tier = profile.Tier
		summary.TrialExpiresAt = profile.TrialExpiresAt
	} else if err != shared.ErrNotFound {
		return nil, fmt.Errorf("failed to load billing profile: %w", err)
	}
	summary.Limits = billing.ResolveLimits(summary.Tier)
	summary.MonthlyFee = billing.MonthlyFee(summary.Tier)

	counters, err := s.counterRepo.FindCurrent(ctx, userID)
	if err == nil {
		summary.CycleStart = counters.CycleStart
		summary.CycleEnd = counters.CycleEnd
		summary.Usage = counters.Totals()
	} else if err != shared.ErrNotFound {
		return nil, fmt.Errorf("failed to load usage counters: %w", err)
	} else {
		// No usage yet: report zero usage over the window the first
		// increment would open.
		summary.CycleStart, summary.CycleEnd = usage.CurrentCycleWindow()
		summary.Usage = usage.Totals{DataGB: decimal.Zero}
	}
	summary.OverageCost = billing.ComputeOverageCost(summary.Tier, summary.Usage)

	summary.Invoices, err = s.invoiceRepo.FindByUser(ctx, userID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	summary.History, err = s.historyRepo.FindByUser(ctx, userID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load billing history: %w", err)
	}

	return summary, nil
}

// UpgradeTier moves the user to a paid tier, creating a profile first when
// none exists
func (s *BillingService) UpgradeTier(ctx context.Context, userID uuid.UUID, tier billing.Tier) (*billing.UserProfile, error) {
	profile, err := s.trials.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	previous := profile.Tier
	if err := profile.UpgradeTo(tier); err != nil {
		return nil, err
	}
	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	entry := billing.NewHistoryEntry(userID, billing.HistoryTierUpgraded,
		fmt.Sprintf("Tier changed %s -> %s", previous, tier)).
		WithAmount(billing.MonthlyFee(tier))
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append billing history",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	s.logger.Info("Tier upgraded",
		zap.String("user_id", userID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(tier)))

	return profile, nil
}

// CancelSubscription drops the user back to the TRIAL tier
func (s *BillingService) CancelSubscription(ctx context.Context, userID uuid.UUID) (*billing.UserProfile, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.ErrInvalidState
		}
		return nil, fmt.Errorf("failed to load billing profile: %w", err)
	}

	previous := profile.Tier
	if err := profile.Cancel(); err != nil {
		return nil, err
	}
	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	entry := billing.NewHistoryEntry(userID, billing.HistorySubscriptionCancelled,
		fmt.Sprintf("Subscription cancelled from %s", previous))
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append billing history",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	s.voidPendingInvoice(ctx, userID)

	s.logger.Info("Subscription cancelled",
		zap.String("user_id", userID.String()),
		zap.String("from", string(previous)))

	return profile, nil
}

// voidPendingInvoice voids the PENDING invoice covering the user's active
// cycle after a cancellation. Invoices from earlier cycles stay payable.
// Best effort: a failure here leaves the draft to be settled or voided
// manually.
func (s *BillingService) voidPendingInvoice(ctx context.Context, userID uuid.UUID) {
	counters, err := s.counterRepo.FindCurrent(ctx, userID)
	if err != nil {
		if err != shared.ErrNotFound {
			s.logger.Warn("Failed to load usage counters while voiding",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
		return
	}

	invoice, err := s.invoiceRepo.FindPendingForPeriod(ctx, userID, counters.CycleStart)
	if err != nil {
		if err != shared.ErrNotFound {
			s.logger.Warn("Failed to look up pending invoice while voiding",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
		return
	}
	if err := invoice.Void(); err != nil {
		return
	}
	if err := s.invoiceRepo.UpdateStatus(ctx, invoice.ID, billing.InvoiceStatusVoid); err != nil {
		s.logger.Warn("Failed to void pending invoice",
			zap.String("user_id", userID.String()),
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err))
		return
	}

	s.logger.Info("Pending invoice voided on cancellation",
		zap.String("user_id", userID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber))
}

// GenerateInvoice bills the caller's current cycle on demand
func (s *BillingService) GenerateInvoice(ctx context.Context, userID uuid.UUID) (*billing.Invoice, error) {
	return s.invoices.GenerateInvoice(ctx, userID)
}

// ProcessPayment records a settlement against one of the caller's pending
// invoices and marks it paid
func (s *BillingService) ProcessPayment(ctx context.Context, userID, invoiceID uuid.UUID, method billing.PaymentMethod) (*billing.Payment, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.UserID != userID {
		return nil, shared.ErrUnauthorized
	}
	// Guards the crash window where a payment was saved but the status
	// update never landed.
	existing, err := s.paymentRepo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing payments: %w", err)
	}
	if len(existing) > 0 {
		return nil, shared.ErrInvalidState
	}
	if err := invoice.MarkPaid(); err != nil {
		return nil, err
	}

	payment, err := billing.NewPayment(userID, invoiceID, method, invoice.TotalAmount)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, invoiceID, billing.InvoiceStatusPaid); err != nil {
		return nil, fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	entry := billing.NewHistoryEntry(userID, billing.HistoryPaymentRecorded,
		fmt.Sprintf("Payment recorded for invoice %s via %s", invoice.InvoiceNumber, method)).
		WithAmount(payment.Amount)
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append billing history",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	s.logger.Info("Payment recorded",
		zap.String("user_id", userID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("method", string(method)),
		zap.String("amount", payment.Amount.Round(2).String()))

	return payment, nil
}
