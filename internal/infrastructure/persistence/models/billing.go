package models

import (
	"time"

	"github.com/agentchat/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserProfileModel is the persistence model for billing-relevant user
// profile fields.
type UserProfileModel struct {
	BaseModel
	UserID         uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex"`
	Tier           billing.Tier `gorm:"type:varchar(20);not null;default:'TRIAL';index"`
	TrialExpiresAt *time.Time   `gorm:"index"`
	CancelledAt    *time.Time
}

// TableName returns the table name for GORM
func (UserProfileModel) TableName() string {
	return "user_profiles"
}

// ToDomain converts the persistence model to a domain UserProfile
func (m *UserProfileModel) ToDomain() *billing.UserProfile {
	return &billing.UserProfile{
		BaseEntity:     m.BaseModel.ToDomain(),
		UserID:         m.UserID,
		Tier:           m.Tier,
		TrialExpiresAt: m.TrialExpiresAt,
		CancelledAt:    m.CancelledAt,
	}
}

// FromDomain populates the persistence model from a domain UserProfile
func (m *UserProfileModel) FromDomain(p *billing.UserProfile) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.UserID = p.UserID
	m.Tier = p.Tier
	m.TrialExpiresAt = p.TrialExpiresAt
	m.CancelledAt = p.CancelledAt
}

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	BaseModel
	UserID             uuid.UUID              `gorm:"type:uuid;not null;index"`
	InvoiceNumber      string                 `gorm:"type:varchar(50);not null;uniqueIndex"`
	BillingPeriodStart time.Time              `gorm:"not null;index:idx_invoices_user_period,priority:2"`
	BillingPeriodEnd   time.Time              `gorm:"not null"`
	DueDate            time.Time              `gorm:"not null"`
	Subtotal           decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	TaxAmount          decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	TotalAmount        decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Status             billing.InvoiceStatus  `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	LineItems          []InvoiceLineItemModel `gorm:"foreignKey:InvoiceID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		BaseEntity:         m.BaseModel.ToDomain(),
		UserID:             m.UserID,
		InvoiceNumber:      m.InvoiceNumber,
		BillingPeriodStart: m.BillingPeriodStart,
		BillingPeriodEnd:   m.BillingPeriodEnd,
		DueDate:            m.DueDate,
		Subtotal:           m.Subtotal,
		TaxAmount:          m.TaxAmount,
		TotalAmount:        m.TotalAmount,
		Status:             m.Status,
	}
	for i := range m.LineItems {
		inv.LineItems = append(inv.LineItems, *m.LineItems[i].ToDomain())
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainBaseEntity(inv.BaseEntity)
	m.UserID = inv.UserID
	m.InvoiceNumber = inv.InvoiceNumber
	m.BillingPeriodStart = inv.BillingPeriodStart
	m.BillingPeriodEnd = inv.BillingPeriodEnd
	m.DueDate = inv.DueDate
	m.Subtotal = inv.Subtotal
	m.TaxAmount = inv.TaxAmount
	m.TotalAmount = inv.TotalAmount
	m.Status = inv.Status
	m.LineItems = nil
	for i := range inv.LineItems {
		var item InvoiceLineItemModel
		item.FromDomain(&inv.LineItems[i])
		m.LineItems = append(m.LineItems, item)
	}
}

// InvoiceLineItemModel is the persistence model for invoice line items.
type InvoiceLineItemModel struct {
	BaseModel
	InvoiceID   uuid.UUID                `gorm:"type:uuid;not null;index"`
	Description string                   `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal          `gorm:"type:decimal(18,6);not null"`
	Amount      decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Category    billing.LineItemCategory `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// ToDomain converts the persistence model to a domain InvoiceLineItem
func (m *InvoiceLineItemModel) ToDomain() *billing.InvoiceLineItem {
	return &billing.InvoiceLineItem{
		BaseEntity:  m.BaseModel.ToDomain(),
		InvoiceID:   m.InvoiceID,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Amount:      m.Amount,
		Category:    m.Category,
	}
}

// FromDomain populates the persistence model from a domain InvoiceLineItem
func (m *InvoiceLineItemModel) FromDomain(item *billing.InvoiceLineItem) {
	m.FromDomainBaseEntity(item.BaseEntity)
	m.InvoiceID = item.InvoiceID
	m.Description = item.Description
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
	m.Amount = item.Amount
	m.Category = item.Category
}

// BillingHistoryModel is the persistence model for billing history entries.
type BillingHistoryModel struct {
	BaseModel
	UserID      uuid.UUID                `gorm:"type:uuid;not null;index"`
	EventType   billing.HistoryEventType `gorm:"type:varchar(30);not null;index"`
	Description string                   `gorm:"type:varchar(500);not null"`
	Amount      *decimal.Decimal         `gorm:"type:decimal(18,4)"`
	OccurredAt  time.Time                `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (BillingHistoryModel) TableName() string {
	return "billing_history"
}

// ToDomain converts the persistence model to a domain HistoryEntry
func (m *BillingHistoryModel) ToDomain() *billing.HistoryEntry {
	return &billing.HistoryEntry{
		BaseEntity:  m.BaseModel.ToDomain(),
		UserID:      m.UserID,
		EventType:   m.EventType,
		Description: m.Description,
		Amount:      m.Amount,
		OccurredAt:  m.OccurredAt,
	}
}

// FromDomain populates the persistence model from a domain HistoryEntry
func (m *BillingHistoryModel) FromDomain(entry *billing.HistoryEntry) {
	m.FromDomainBaseEntity(entry.BaseEntity)
	m.UserID = entry.UserID
	m.EventType = entry.EventType
	m.Description = entry.Description
	m.Amount = entry.Amount
	m.OccurredAt = entry.OccurredAt
}

// PaymentModel is the persistence model for payment records.
type PaymentModel struct {
	BaseModel
	UserID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	InvoiceID uuid.UUID             `gorm:"type:uuid;not null;index"`
	Method    billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	Amount    decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	PaidAt    time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,
		InvoiceID:  m.InvoiceID,
		Method:     m.Method,
		Amount:     m.Amount,
		PaidAt:     m.PaidAt,
	}
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.UserID = p.UserID
	m.InvoiceID = p.InvoiceID
	m.Method = p.Method
	m.Amount = p.Amount
	m.PaidAt = p.PaidAt
}
