package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRate is applied to every invoice subtotal.
var TaxRate = decimal.RequireFromString("0.08")

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusVoid    InvoiceStatus = "VOID"
)

// LineItemCategory classifies an invoice line item
type LineItemCategory string

const (
	LineItemSubscription LineItemCategory = "SUBSCRIPTION"
	LineItemOverage      LineItemCategory = "OVERAGE"
)

// InvoiceLineItem is one cost component of an invoice. Line items are
// created atomically alongside their invoice and never mutated afterwards;
// corrections require a new invoice.
type InvoiceLineItem struct {
	shared.BaseEntity
	InvoiceID   uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	Category    LineItemCategory
}

// Invoice is the billing document assembled from a subscription fee plus
// per-dimension overage charges. Amounts are kept at full decimal
// precision internally; rounding to cents happens at the point of display.
type Invoice struct {
	shared.BaseEntity
	UserID             uuid.UUID
	InvoiceNumber      string
	BillingPeriodStart time.Time
	BillingPeriodEnd   time.Time
	DueDate            time.Time
	Subtotal           decimal.Decimal
	TaxAmount          decimal.Decimal
	TotalAmount        decimal.Decimal
	Status             InvoiceStatus
	LineItems          []InvoiceLineItem
}

// NewInvoiceNumber derives a collision-resistant invoice number from a
// fresh UUID. Wall-clock derived numbers collide under concurrent
// generation; UUIDs do not.
func NewInvoiceNumber() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "INV-" + strings.ToUpper(raw[:16])
}

// NewInvoice assembles an invoice for a billing period from a subscription
// fee and an overage breakdown. Only nonzero cost components produce line
// items. Total = subtotal * (1 + TaxRate).
func NewInvoice(userID uuid.UUID, tier Tier, periodStart, periodEnd time.Time, overage Overage) (*Invoice, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if periodEnd.Before(periodStart) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end cannot be before period start")
	}

	inv := &Invoice{
		BaseEntity:         shared.NewBaseEntity(),
		UserID:             userID,
		InvoiceNumber:      NewInvoiceNumber(),
		BillingPeriodStart: periodStart,
		BillingPeriodEnd:   periodEnd,
		DueDate:            periodEnd.AddDate(0, 0, 14),
		Status:             InvoiceStatusPending,
	}

	subscription := MonthlyFee(tier)
	if subscription.IsPositive() {
		inv.addLineItem(
			fmt.Sprintf("%s plan subscription", tier),
			decimal.NewFromInt(1),
			subscription,
			LineItemSubscription,
		)
	}

	if overage.VideoMinutes > 0 {
		inv.addLineItem("Video minutes overage",
			decimal.NewFromInt(overage.VideoMinutes), RateVideoMinute, LineItemOverage)
	}
	if overage.AudioMinutes > 0 {
		inv.addLineItem("Audio minutes overage",
			decimal.NewFromInt(overage.AudioMinutes), RateAudioMinute, LineItemOverage)
	}
	if overage.Messages > 0 {
		inv.addLineItem("Messages overage",
			decimal.NewFromInt(overage.Messages), RateMessage, LineItemOverage)
	}
	if overage.DataGB.IsPositive() {
		inv.addLineItem("Data transfer overage (GB)",
			overage.DataGB, RateDataGB, LineItemOverage)
	}

	subtotal := decimal.Zero
	for _, item := range inv.LineItems {
		subtotal = subtotal.Add(item.Amount)
	}
	inv.Subtotal = subtotal
	inv.TaxAmount = subtotal.Mul(TaxRate)
	inv.TotalAmount = subtotal.Add(inv.TaxAmount)

	return inv, nil
}

func (i *Invoice) addLineItem(description string, quantity, unitPrice decimal.Decimal, category LineItemCategory) {
	i.LineItems = append(i.LineItems, InvoiceLineItem{
		BaseEntity:  shared.NewBaseEntity(),
		InvoiceID:   i.ID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Amount:      quantity.Mul(unitPrice),
		Category:    category,
	})
}

// IsPending returns true while the invoice awaits payment
func (i *Invoice) IsPending() bool {
	return i.Status == InvoiceStatusPending
}

// MarkPaid transitions the invoice PENDING -> PAID
func (i *Invoice) MarkPaid() error {
	if i.Status != InvoiceStatusPending {
		return shared.ErrInvalidState
	}
	i.Status = InvoiceStatusPaid
	i.Touch()
	return nil
}

// Void transitions the invoice PENDING -> VOID
func (i *Invoice) Void() error {
	if i.Status != InvoiceStatusPending {
		return shared.ErrInvalidState
	}
	i.Status = InvoiceStatusVoid
	i.Touch()
	return nil
}

// DisplayTotal returns the total rounded to cents for presentation.
// Internal accumulation always keeps full precision.
func (i *Invoice) DisplayTotal() decimal.Decimal {
	return i.TotalAmount.Round(2)
}
