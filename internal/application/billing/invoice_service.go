package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/agentchat/backend/internal/domain/billing"
	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNothingToBill is returned when invoice generation finds no billable
// charges for the period (TRIAL tier, no overage).
var ErrNothingToBill = shared.NewDomainError("NOTHING_TO_BILL", "No billable charges for the period")

// InvoiceService assembles and persists invoices from a user's tier and
// accumulated cycle usage. Generating an invoice closes the usage cycle:
// the counters are reset and a new cycle window opens.
type InvoiceService struct {
	profileRepo billing.UserProfileRepository
	counterRepo usage.CounterRepository
	invoiceRepo billing.InvoiceRepository
	historyRepo billing.HistoryRepository
	logger      *zap.Logger
}

// InvoiceServiceConfig contains dependencies for InvoiceService
type InvoiceServiceConfig struct {
	ProfileRepo billing.UserProfileRepository
	CounterRepo usage.CounterRepository
	InvoiceRepo billing.InvoiceRepository
	HistoryRepo billing.HistoryRepository
	Logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(cfg InvoiceServiceConfig) *InvoiceService {
	return &InvoiceService{
		profileRepo: cfg.ProfileRepo,
		counterRepo: cfg.CounterRepo,
		invoiceRepo: cfg.InvoiceRepo,
		historyRepo: cfg.HistoryRepo,
		logger:      cfg.Logger,
	}
}

// GenerateInvoice bills the user's current cycle usage and resets the
// counters. Returns ErrNothingToBill when neither a subscription fee nor
// an overage charge applies.
func (s *InvoiceService) GenerateInvoice(ctx context.Context, userID uuid.UUID) (*billing.Invoice, error) {
	tier := s.resolveTier(ctx, userID)

	counters, err := s.counterRepo.FindCurrent(ctx, userID)
	if err != nil {
		if err != shared.ErrNotFound {
			return nil, fmt.Errorf("failed to load usage counters: %w", err)
		}
		counters, err = usage.NewCountersForCurrentCycle(userID)
		if err != nil {
			return nil, err
		}
	}

	invoice, err := s.generateForCycle(ctx, userID, tier, counters)
	if err != nil {
		return nil, err
	}

	nextStart := counters.CycleEnd
	if nextStart.After(time.Now()) {
		// Mid-cycle generation: the new cycle opens immediately so the
		// billed usage is not counted twice.
		nextStart = time.Now()
	}
	if _, err := s.counterRepo.ResetCycle(ctx, userID, nextStart); err != nil {
		s.logger.Error("Failed to reset usage cycle after invoice generation",
			zap.String("user_id", userID.String()),
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err))
		return nil, fmt.Errorf("failed to reset usage cycle: %w", err)
	}

	return invoice, nil
}

// CloseEndedCycles generates invoices for every user whose cycle window
// closed before now and rolls their counters into the next cycle. Returns
// the number of invoices generated.
func (s *InvoiceService) CloseEndedCycles(ctx context.Context, now time.Time) (int, error) {
	ended, err := s.counterRepo.FindCyclesEndedBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to find ended cycles: %w", err)
	}

	generated := 0
	for _, counters := range ended {
		tier := s.resolveTier(ctx, counters.UserID)

		invoice, err := s.generateForCycle(ctx, counters.UserID, tier, counters)
		if err != nil && err != ErrNothingToBill {
			s.logger.Error("Failed to close billing cycle",
				zap.String("user_id", counters.UserID.String()),
				zap.Error(err))
			continue
		}
		if err == nil {
			generated++
			s.logger.Info("Billing cycle closed",
				zap.String("user_id", counters.UserID.String()),
				zap.String("invoice_number", invoice.InvoiceNumber),
				zap.String("total", invoice.DisplayTotal().String()))
		}

		if _, err := s.counterRepo.ResetCycle(ctx, counters.UserID, counters.CycleEnd); err != nil {
			s.logger.Error("Failed to roll usage cycle",
				zap.String("user_id", counters.UserID.String()),
				zap.Error(err))
		}
	}

	return generated, nil
}

// generateForCycle assembles and persists the invoice for one cycle's
// usage without touching the counters
func (s *InvoiceService) generateForCycle(ctx context.Context, userID uuid.UUID, tier billing.Tier, counters *usage.Counters) (*billing.Invoice, error) {
	overage := billing.ComputeOverage(tier, counters.Totals())

	invoice, err := billing.NewInvoice(userID, tier, counters.CycleStart, counters.CycleEnd, overage)
	if err != nil {
		return nil, err
	}
	if len(invoice.LineItems) == 0 {
		return nil, ErrNothingToBill
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to persist invoice: %w", err)
	}

	entry := billing.NewHistoryEntry(userID, billing.HistoryInvoiceGenerated,
		fmt.Sprintf("Invoice %s generated", invoice.InvoiceNumber)).
		WithAmount(invoice.TotalAmount)
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		// The invoice exists; a missing history row is not worth failing
		// the operation over.
		s.logger.Warn("Failed to append billing history",
			zap.String("user_id", userID.String()),
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err))
	}

	s.logger.Info("Invoice generated",
		zap.String("user_id", userID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("tier", string(tier)),
		zap.String("total", invoice.DisplayTotal().String()))

	return invoice, nil
}

// resolveTier returns the user's tier, defaulting to TRIAL when the user
// has no billing profile
func (s *InvoiceService) resolveTier(ctx context.Context, userID uuid.UUID) billing.Tier {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		if err != shared.ErrNotFound {
			s.logger.Warn("Failed to load billing profile, defaulting to TRIAL",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
		return billing.TierTrial
	}
	return profile.Tier
}
