package usage

import (
	"context"
	"fmt"

	"github.com/agentchat/backend/internal/domain/billing"
	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/agentchat/backend/internal/infrastructure/livekit"
	"go.uber.org/zap"
)

// OverageTrigger evaluates freshly incremented counters and may generate
// an invoice when the overage threshold is crossed
type OverageTrigger interface {
	EvaluateAfterIncrement(ctx context.Context, counters *usage.Counters) (*billing.Invoice, error)
}

// WebhookProcessor handles LiveKit webhook deliveries end to end: verify
// the signature, decode the payload, de-duplicate by provider event id,
// record the raw event for audit, normalize it and apply the billable
// deltas to the usage counters.
type WebhookProcessor struct {
	config      livekit.Config
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	recordRepo  usage.WebhookRecordRepository
	tracking    *TrackingService
	trigger     OverageTrigger
	logger      *zap.Logger
}

// WebhookProcessorConfig contains dependencies for WebhookProcessor
type WebhookProcessorConfig struct {
	Config            livekit.Config
	IdempotencyStore  shared.IdempotencyStore
	IdempotencyConfig shared.IdempotencyConfig
	RecordRepo        usage.WebhookRecordRepository
	Tracking          *TrackingService
	Trigger           OverageTrigger
	Logger            *zap.Logger
}

// NewWebhookProcessor creates a new WebhookProcessor
func NewWebhookProcessor(cfg WebhookProcessorConfig) *WebhookProcessor {
	return &WebhookProcessor{
		config:      cfg.Config,
		idempotency: cfg.IdempotencyStore,
		idemConfig:  cfg.IdempotencyConfig,
		recordRepo:  cfg.RecordRepo,
		tracking:    cfg.Tracking,
		trigger:     cfg.Trigger,
		logger:      cfg.Logger,
	}
}

// WebhookResult reports the outcome of processing one webhook delivery
type WebhookResult struct {
	EventID       string `json:"event_id"`
	EventType     string `json:"event_type"`
	Processed     bool   `json:"processed"`
	Duplicate     bool   `json:"duplicate,omitempty"`
	BillableUsers int    `json:"billable_users,omitempty"`
	Message       string `json:"message,omitempty"`
}

// ProcessWebhook verifies and processes one raw webhook delivery
func (p *WebhookProcessor) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if err := livekit.VerifySignature(p.config.WebhookSecret, payload, signature); err != nil {
		p.logger.Warn("Webhook signature verification failed", zap.Error(err))
		return nil, err
	}

	event, err := livekit.DecodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: event.Event,
	}

	claimed := false
	if p.idemConfig.Enabled && event.ID != "" {
		first, err := p.idempotency.MarkProcessed(ctx, event.ID, p.idemConfig.TTL)
		switch {
		case err != nil:
			// A broken idempotency store must not drop usage; fall back
			// to the audit log, which keeps one row per event id.
			if _, lookupErr := p.recordRepo.FindByProviderEventID(ctx, event.ID); lookupErr == nil {
				result.Duplicate = true
				result.Message = "Event already processed"
				return result, nil
			}
			p.logger.Warn("Idempotency check failed, processing anyway",
				zap.String("event_id", event.ID),
				zap.Error(err))
		case !first:
			p.logger.Debug("Duplicate webhook delivery skipped",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.Event))
			result.Duplicate = true
			result.Message = "Event already processed"
			return result, nil
		default:
			claimed = true
		}
	}

	events := livekit.Normalize(event)
	p.recordAudit(ctx, event, payload, events)

	for _, usageEvent := range events {
		counters, err := p.tracking.ApplyEvent(ctx, &usageEvent)
		if err != nil {
			p.logger.Error("Failed to apply usage event",
				zap.String("event_id", event.ID),
				zap.String("user_id", usageEvent.UserID.String()),
				zap.Error(err))
			// Give the claim back so the provider's retry is reprocessed
			// instead of being dismissed as a duplicate.
			if claimed {
				if relErr := p.idempotency.Release(ctx, event.ID); relErr != nil {
					p.logger.Warn("Failed to release idempotency claim",
						zap.String("event_id", event.ID),
						zap.Error(relErr))
				}
			}
			return result, err
		}
		result.BillableUsers++

		if p.trigger != nil {
			if _, err := p.trigger.EvaluateAfterIncrement(ctx, counters); err != nil {
				// Usage is already recorded; a failed trigger only delays
				// the invoice until cycle close.
				p.logger.Error("Overage trigger evaluation failed",
					zap.String("user_id", usageEvent.UserID.String()),
					zap.Error(err))
			}
		}
	}

	result.Processed = true
	p.logger.Info("Webhook processed",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Event),
		zap.Int("billable_users", result.BillableUsers))

	return result, nil
}

// recordAudit persists the raw delivery in the webhook audit log
func (p *WebhookProcessor) recordAudit(ctx context.Context, event *livekit.WebhookEvent, payload []byte, normalized []usage.Event) {
	record := usage.NewWebhookRecord(event.ID, event.Event, payload)
	if event.Room != nil {
		record.WithRoom(event.Room.SID, "")
	}
	if len(normalized) > 0 {
		record.WithRoom(normalized[0].RoomID, normalized[0].ParticipantID)
		record.WithBillableUser(normalized[0].UserID)
	}

	if err := p.recordRepo.Save(ctx, record); err != nil {
		p.logger.Warn("Failed to record webhook audit entry",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}
