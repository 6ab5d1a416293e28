package usage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies the kind of call/video lifecycle event that
// produced a billable usage delta.
type EventType string

const (
	EventTypeRoomFinished    EventType = "room_finished"
	EventTypeParticipantLeft EventType = "participant_left"
	EventTypeEgressEnded     EventType = "egress_ended"
	EventTypeRecordingEnded  EventType = "recording_ended"
)

// Delta holds the billable quantities carried by a single usage event.
// All values are non-negative; a zero delta is not billable.
type Delta struct {
	VideoMinutes      int64
	AudioMinutes      int64
	Messages          int64
	DataTransferredMB decimal.Decimal
}

// IsZero returns true if the delta carries no billable quantity
func (d Delta) IsZero() bool {
	return d.VideoMinutes == 0 && d.AudioMinutes == 0 && d.Messages == 0 &&
		d.DataTransferredMB.IsZero()
}

// DataGB converts the data delta from megabytes to gigabytes
func (d Delta) DataGB() decimal.Decimal {
	if d.DataTransferredMB.IsZero() {
		return decimal.Zero
	}
	return d.DataTransferredMB.Div(decimal.NewFromInt(1024))
}

// Event is the canonical usage event produced by normalizing a provider
// webhook payload. Events are ephemeral: only their deltas are persisted,
// as additive updates to the owning user's cycle counters.
type Event struct {
	EventType     EventType
	RoomID        string
	ParticipantID string
	UserID        uuid.UUID
	Timestamp     time.Time
	Delta         Delta
}

// IsBillable returns true if the event carries a billable quantity for an
// attributable user
func (e *Event) IsBillable() bool {
	return e.UserID != uuid.Nil && !e.Delta.IsZero()
}
