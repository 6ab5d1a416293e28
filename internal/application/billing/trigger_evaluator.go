package billing

import (
	"context"
	"fmt"

	"github.com/agentchat/backend/internal/domain/billing"
	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TriggerEvaluator decides, after each billable usage increment, whether
// the accumulated overage cost justifies generating an invoice right away
// instead of waiting for the cycle to close.
//
// An invoice is triggered when the overage cost exceeds the configured
// threshold and no PENDING invoice already covers the current cycle. The
// pending-invoice guard keeps a user who crosses the threshold and then
// keeps accruing usage from receiving an invoice per webhook.
type TriggerEvaluator struct {
	profileRepo billing.UserProfileRepository
	invoiceRepo billing.InvoiceRepository
	invoices    *InvoiceService
	threshold   decimal.Decimal
	logger      *zap.Logger
}

// TriggerEvaluatorConfig contains dependencies for TriggerEvaluator
type TriggerEvaluatorConfig struct {
	ProfileRepo billing.UserProfileRepository
	InvoiceRepo billing.InvoiceRepository
	Invoices    *InvoiceService
	Threshold   decimal.Decimal
	Logger      *zap.Logger
}

// NewTriggerEvaluator creates a new TriggerEvaluator
func NewTriggerEvaluator(cfg TriggerEvaluatorConfig) *TriggerEvaluator {
	return &TriggerEvaluator{
		profileRepo: cfg.ProfileRepo,
		invoiceRepo: cfg.InvoiceRepo,
		invoices:    cfg.Invoices,
		threshold:   cfg.Threshold,
		logger:      cfg.Logger,
	}
}

// EvaluateAfterIncrement checks the freshly incremented counters against
// the overage threshold and generates an invoice when it fires. Returns
// nil without error when the trigger does not fire.
func (e *TriggerEvaluator) EvaluateAfterIncrement(ctx context.Context, counters *usage.Counters) (*billing.Invoice, error) {
	tier := billing.TierTrial
	profile, err := e.profileRepo.FindByUserID(ctx, counters.UserID)
	if err == nil {
		tier = profile.Tier
	} else if err != shared.ErrNotFound {
		return nil, fmt.Errorf("failed to load billing profile: %w", err)
	}

	cost := billing.ComputeOverageCost(tier, counters.Totals())
	if !cost.GreaterThan(e.threshold) {
		return nil, nil
	}

	_, err = e.invoiceRepo.FindPendingForPeriod(ctx, counters.UserID, counters.CycleStart)
	if err == nil {
		// A pending invoice already covers this cycle.
		return nil, nil
	}
	if err != shared.ErrNotFound {
		return nil, fmt.Errorf("failed to check for pending invoice: %w", err)
	}

	e.logger.Info("Overage threshold exceeded, generating invoice",
		zap.String("user_id", counters.UserID.String()),
		zap.String("tier", string(tier)),
		zap.String("overage_cost", cost.String()),
		zap.String("threshold", e.threshold.String()))

	return e.invoices.GenerateInvoice(ctx, counters.UserID)
}
