package usage

import (
	"time"

	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Counters accumulates a user's billable usage within one billing cycle.
// One row exists per user per active cycle; every field is mutated only by
// additive increments and reset when a new cycle starts.
type Counters struct {
	shared.BaseEntity
	UserID            uuid.UUID
	CycleStart        time.Time
	CycleEnd          time.Time
	VideoMinutesUsed  int64
	AudioMinutesUsed  int64
	MessagesSent      int64
	DataTransferredGB decimal.Decimal
}

// Totals is the aggregated usage snapshot consumed by the overage
// calculator.
type Totals struct {
	VideoMinutes int64
	AudioMinutes int64
	Messages     int64
	DataGB       decimal.Decimal
}

// NewCounters creates a zeroed counter row for a user's new billing cycle
func NewCounters(userID uuid.UUID, cycleStart time.Time) (*Counters, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	return &Counters{
		BaseEntity:        shared.NewBaseEntity(),
		UserID:            userID,
		CycleStart:        cycleStart,
		CycleEnd:          cycleStart.AddDate(0, 1, 0),
		DataTransferredGB: decimal.Zero,
	}, nil
}

// CurrentCycleWindow returns the calendar-month billing window containing
// the current time
func CurrentCycleWindow() (start, end time.Time) {
	now := time.Now()
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

// NewCountersForCurrentCycle creates a counter row whose cycle starts at
// the beginning of the current calendar month
func NewCountersForCurrentCycle(userID uuid.UUID) (*Counters, error) {
	cycleStart, _ := CurrentCycleWindow()
	return NewCounters(userID, cycleStart)
}

// Totals returns the aggregated usage for this cycle
func (c *Counters) Totals() Totals {
	return Totals{
		VideoMinutes: c.VideoMinutesUsed,
		AudioMinutes: c.AudioMinutesUsed,
		Messages:     c.MessagesSent,
		DataGB:       c.DataTransferredGB,
	}
}

// CycleEnded reports whether the counter's cycle window closed before t
func (c *Counters) CycleEnded(t time.Time) bool {
	return c.CycleEnd.Before(t)
}
