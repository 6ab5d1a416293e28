package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CounterRepository persists per-user, per-cycle usage counters.
//
// Increment must be implemented as a single atomic update at the storage
// layer (UPDATE ... SET x = x + delta), never as read-then-write, because
// webhook deliveries for the same user arrive concurrently and out of
// order. This is the one correctness-critical contract in the subsystem.
type CounterRepository interface {
	// FindCurrent returns the counter row for the user's active cycle,
	// or shared.ErrNotFound if the user has no active cycle.
	FindCurrent(ctx context.Context, userID uuid.UUID) (*Counters, error)

	// Increment atomically adds the delta to the user's active cycle
	// counters, creating a zeroed row for the current calendar month if
	// none exists, and returns the resulting counters.
	Increment(ctx context.Context, userID uuid.UUID, delta Delta) (*Counters, error)

	// ResetCycle replaces the user's counters with a zeroed row whose
	// cycle starts at cycleStart.
	ResetCycle(ctx context.Context, userID uuid.UUID, cycleStart time.Time) (*Counters, error)

	// FindCyclesEndedBefore returns all counter rows whose cycle window
	// closed before the given time. Used by the cycle-close scheduler.
	FindCyclesEndedBefore(ctx context.Context, t time.Time) ([]*Counters, error)
}

// WebhookRecordRepository persists the raw webhook audit log
type WebhookRecordRepository interface {
	Save(ctx context.Context, record *WebhookRecord) error
	FindByProviderEventID(ctx context.Context, providerEventID string) (*WebhookRecord, error)
}
