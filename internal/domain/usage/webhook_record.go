package usage

import (
	"time"

	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// WebhookRecord is an immutable audit entry for a raw provider webhook
// event. Every verified event is recorded, billable or not, so that
// billing disputes can be traced back to the raw payloads that produced
// the counters.
type WebhookRecord struct {
	shared.BaseEntity
	ProviderEventID string
	EventType       string
	RoomID          string
	ParticipantID   string
	UserID          *uuid.UUID
	Billable        bool
	Payload         []byte
	ReceivedAt      time.Time
}

// NewWebhookRecord creates an audit record for a raw webhook event
func NewWebhookRecord(providerEventID, eventType string, payload []byte) *WebhookRecord {
	return &WebhookRecord{
		BaseEntity:      shared.NewBaseEntity(),
		ProviderEventID: providerEventID,
		EventType:       eventType,
		Payload:         payload,
		ReceivedAt:      time.Now(),
	}
}

// WithRoom sets the room and participant identifiers
func (r *WebhookRecord) WithRoom(roomID, participantID string) *WebhookRecord {
	r.RoomID = roomID
	r.ParticipantID = participantID
	return r
}

// WithBillableUser marks the record as billable and attributes it to a user
func (r *WebhookRecord) WithBillableUser(userID uuid.UUID) *WebhookRecord {
	r.UserID = &userID
	r.Billable = true
	return r
}
