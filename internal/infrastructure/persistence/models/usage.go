package models

import (
	"time"

	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserUsageModel is the persistence model for per-user, per-cycle usage
// counters. Counter columns are only ever mutated with atomic SQL
// increments; see GormUsageCounterRepository.
type UserUsageModel struct {
	BaseModel
	UserID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	CycleStart        time.Time       `gorm:"not null"`
	CycleEnd          time.Time       `gorm:"not null;index"`
	VideoMinutesUsed  int64           `gorm:"not null;default:0"`
	AudioMinutesUsed  int64           `gorm:"not null;default:0"`
	MessagesSent      int64           `gorm:"not null;default:0"`
	DataTransferredGB decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
}

// TableName returns the table name for GORM
func (UserUsageModel) TableName() string {
	return "user_usage"
}

// ToDomain converts the persistence model to domain Counters
func (m *UserUsageModel) ToDomain() *usage.Counters {
	return &usage.Counters{
		BaseEntity:        m.BaseModel.ToDomain(),
		UserID:            m.UserID,
		CycleStart:        m.CycleStart,
		CycleEnd:          m.CycleEnd,
		VideoMinutesUsed:  m.VideoMinutesUsed,
		AudioMinutesUsed:  m.AudioMinutesUsed,
		MessagesSent:      m.MessagesSent,
		DataTransferredGB: m.DataTransferredGB,
	}
}

// FromDomain populates the persistence model from domain Counters
func (m *UserUsageModel) FromDomain(c *usage.Counters) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.UserID = c.UserID
	m.CycleStart = c.CycleStart
	m.CycleEnd = c.CycleEnd
	m.VideoMinutesUsed = c.VideoMinutesUsed
	m.AudioMinutesUsed = c.AudioMinutesUsed
	m.MessagesSent = c.MessagesSent
	m.DataTransferredGB = c.DataTransferredGB
}

// WebhookEventModel is the persistence model for the raw webhook audit log.
type WebhookEventModel struct {
	BaseModel
	ProviderEventID string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	EventType       string     `gorm:"type:varchar(50);not null;index"`
	RoomID          string     `gorm:"type:varchar(100)"`
	ParticipantID   string     `gorm:"type:varchar(100)"`
	UserID          *uuid.UUID `gorm:"type:uuid;index"`
	Billable        bool       `gorm:"not null;default:false"`
	Payload         []byte     `gorm:"type:jsonb"`
	ReceivedAt      time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the persistence model to a domain WebhookRecord
func (m *WebhookEventModel) ToDomain() *usage.WebhookRecord {
	return &usage.WebhookRecord{
		BaseEntity:      m.BaseModel.ToDomain(),
		ProviderEventID: m.ProviderEventID,
		EventType:       m.EventType,
		RoomID:          m.RoomID,
		ParticipantID:   m.ParticipantID,
		UserID:          m.UserID,
		Billable:        m.Billable,
		Payload:         m.Payload,
		ReceivedAt:      m.ReceivedAt,
	}
}

// FromDomain populates the persistence model from a domain WebhookRecord
func (m *WebhookEventModel) FromDomain(r *usage.WebhookRecord) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.ProviderEventID = r.ProviderEventID
	m.EventType = r.EventType
	m.RoomID = r.RoomID
	m.ParticipantID = r.ParticipantID
	m.UserID = r.UserID
	m.Billable = r.Billable
	m.Payload = r.Payload
	m.ReceivedAt = r.ReceivedAt
}
