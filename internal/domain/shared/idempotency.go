package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed webhook event IDs so that redelivered
// events never double-bill a user.
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL.
	// Returns true if the event was newly marked, false if it was already
	// processed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// Release removes the processed mark so the event can be claimed
	// again. Called when processing fails after the claim, so that the
	// provider's retry is not dismissed as a duplicate.
	Release(ctx context.Context, eventID string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for webhook idempotency handling
type IdempotencyConfig struct {
	// TTL is the time-to-live for processed event IDs. After this duration
	// the same event ID can be processed again.
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
