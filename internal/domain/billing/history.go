package billing

import (
	"time"

	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HistoryEventType classifies a billing history entry
type HistoryEventType string

const (
	HistoryTierUpgraded          HistoryEventType = "TIER_UPGRADED"
	HistorySubscriptionCancelled HistoryEventType = "SUBSCRIPTION_CANCELLED"
	HistoryTrialConverted        HistoryEventType = "TRIAL_CONVERTED"
	HistoryInvoiceGenerated      HistoryEventType = "INVOICE_GENERATED"
	HistoryPaymentRecorded       HistoryEventType = "PAYMENT_RECORDED"
)

// HistoryEntry is an append-only record of a billing-relevant change to a
// user's account. Entries are never edited after creation.
type HistoryEntry struct {
	shared.BaseEntity
	UserID      uuid.UUID
	EventType   HistoryEventType
	Description string
	Amount      *decimal.Decimal
	OccurredAt  time.Time
}

// NewHistoryEntry creates a billing history entry
func NewHistoryEntry(userID uuid.UUID, eventType HistoryEventType, description string) *HistoryEntry {
	return &HistoryEntry{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		EventType:   eventType,
		Description: description,
		OccurredAt:  time.Now(),
	}
}

// WithAmount attaches a monetary amount to the entry
func (h *HistoryEntry) WithAmount(amount decimal.Decimal) *HistoryEntry {
	h.Amount = &amount
	return h
}
