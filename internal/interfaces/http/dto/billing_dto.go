package dto

import (
	"time"

	appbilling "github.com/agentchat/backend/internal/application/billing"
	"github.com/agentchat/backend/internal/domain/billing"
)

// Billing action discriminator values for BillingActionRequest
const (
	ActionUpgradeTier        = "upgrade_tier"
	ActionCancelSubscription = "cancel_subscription"
	ActionGenerateInvoice    = "generate_invoice"
	ActionProcessPayment     = "process_payment"
)

// BillingActionRequest is the discriminated request body for POST /billing.
// Fields beyond Action are required per action and validated by the
// handler.
type BillingActionRequest struct {
	Action        string `json:"action" binding:"required,oneof=upgrade_tier cancel_subscription generate_invoice process_payment"`
	Tier          string `json:"tier,omitempty" binding:"omitempty,oneof=PERSONAL TEAM ENTERPRISE"`
	InvoiceID     string `json:"invoice_id,omitempty" binding:"omitempty,uuid"`
	PaymentMethod string `json:"payment_method,omitempty" binding:"omitempty,oneof=STRIPE CRYPTO_ETH CRYPTO_USDC CRYPTO_SOL"`
}

// TierLimitsResponse reports the caller's plan limits; -1 means unlimited
type TierLimitsResponse struct {
	VideoMinutes int64 `json:"video_minutes"`
	AudioMinutes int64 `json:"audio_minutes"`
	Messages     int64 `json:"messages"`
	DataGB       int64 `json:"data_gb"`
}

// UsageResponse reports accumulated usage within the current cycle
type UsageResponse struct {
	VideoMinutes int64  `json:"video_minutes"`
	AudioMinutes int64  `json:"audio_minutes"`
	Messages     int64  `json:"messages"`
	DataGB       string `json:"data_gb"`
}

// LineItemResponse is one cost component of an invoice
type LineItemResponse struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
}

// InvoiceResponse is the API representation of an invoice. Monetary
// amounts are rendered rounded to cents.
type InvoiceResponse struct {
	ID                 string             `json:"id"`
	InvoiceNumber      string             `json:"invoice_number"`
	BillingPeriodStart time.Time          `json:"billing_period_start"`
	BillingPeriodEnd   time.Time          `json:"billing_period_end"`
	DueDate            time.Time          `json:"due_date"`
	Subtotal           string             `json:"subtotal"`
	TaxAmount          string             `json:"tax_amount"`
	Total              string             `json:"total"`
	Status             string             `json:"status"`
	LineItems          []LineItemResponse `json:"line_items"`
}

// HistoryEntryResponse is one billing history event
type HistoryEntryResponse struct {
	EventType   string    `json:"event_type"`
	Description string    `json:"description"`
	Amount      *string   `json:"amount,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// BillingSummaryResponse is the response for GET /billing
type BillingSummaryResponse struct {
	UserID         string                 `json:"user_id"`
	Tier           string                 `json:"tier"`
	MonthlyFee     string                 `json:"monthly_fee"`
	TrialExpiresAt *time.Time             `json:"trial_expires_at,omitempty"`
	Limits         TierLimitsResponse     `json:"limits"`
	CycleStart     time.Time              `json:"cycle_start"`
	CycleEnd       time.Time              `json:"cycle_end"`
	Usage          UsageResponse          `json:"usage"`
	OverageCost    string                 `json:"overage_cost"`
	Invoices       []InvoiceResponse      `json:"invoices"`
	History        []HistoryEntryResponse `json:"history"`
}

// ProfileResponse is returned by tier transition actions
type ProfileResponse struct {
	UserID         string     `json:"user_id"`
	Tier           string     `json:"tier"`
	TrialExpiresAt *time.Time `json:"trial_expires_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
}

// PaymentResponse is returned by the process_payment action
type PaymentResponse struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoice_id"`
	Method    string    `json:"method"`
	Amount    string    `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
}

// ToInvoiceResponse converts a domain invoice to its API representation
func ToInvoiceResponse(invoice *billing.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:                 invoice.ID.String(),
		InvoiceNumber:      invoice.InvoiceNumber,
		BillingPeriodStart: invoice.BillingPeriodStart,
		BillingPeriodEnd:   invoice.BillingPeriodEnd,
		DueDate:            invoice.DueDate,
		Subtotal:           invoice.Subtotal.Round(2).String(),
		TaxAmount:          invoice.TaxAmount.Round(2).String(),
		Total:              invoice.DisplayTotal().String(),
		Status:             string(invoice.Status),
		LineItems:          make([]LineItemResponse, 0, len(invoice.LineItems)),
	}
	for _, item := range invoice.LineItems {
		resp.LineItems = append(resp.LineItems, LineItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.String(),
			Amount:      item.Amount.Round(4).String(),
			Category:    string(item.Category),
		})
	}
	return resp
}

// ToProfileResponse converts a domain profile to its API representation
func ToProfileResponse(profile *billing.UserProfile) ProfileResponse {
	return ProfileResponse{
		UserID:         profile.UserID.String(),
		Tier:           string(profile.Tier),
		TrialExpiresAt: profile.TrialExpiresAt,
		CancelledAt:    profile.CancelledAt,
	}
}

// ToPaymentResponse converts a domain payment to its API representation
func ToPaymentResponse(payment *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        payment.ID.String(),
		InvoiceID: payment.InvoiceID.String(),
		Method:    string(payment.Method),
		Amount:    payment.Amount.Round(2).String(),
		PaidAt:    payment.PaidAt,
	}
}

// ToBillingSummaryResponse converts an application summary to its API
// representation
func ToBillingSummaryResponse(summary *appbilling.Summary) BillingSummaryResponse {
	resp := BillingSummaryResponse{
		UserID:         summary.UserID.String(),
		Tier:           string(summary.Tier),
		MonthlyFee:     summary.MonthlyFee.Round(2).String(),
		TrialExpiresAt: summary.TrialExpiresAt,
		Limits: TierLimitsResponse{
			VideoMinutes: summary.Limits.VideoMinutes,
			AudioMinutes: summary.Limits.AudioMinutes,
			Messages:     summary.Limits.Messages,
			DataGB:       summary.Limits.DataGB,
		},
		CycleStart: summary.CycleStart,
		CycleEnd:   summary.CycleEnd,
		Usage: UsageResponse{
			VideoMinutes: summary.Usage.VideoMinutes,
			AudioMinutes: summary.Usage.AudioMinutes,
			Messages:     summary.Usage.Messages,
			DataGB:       summary.Usage.DataGB.String(),
		},
		OverageCost: summary.OverageCost.Round(4).String(),
		Invoices:    make([]InvoiceResponse, 0, len(summary.Invoices)),
		History:     make([]HistoryEntryResponse, 0, len(summary.History)),
	}
	for _, invoice := range summary.Invoices {
		resp.Invoices = append(resp.Invoices, ToInvoiceResponse(invoice))
	}
	for _, entry := range summary.History {
		historyResp := HistoryEntryResponse{
			EventType:   string(entry.EventType),
			Description: entry.Description,
			OccurredAt:  entry.OccurredAt,
		}
		if entry.Amount != nil {
			amount := entry.Amount.Round(2).String()
			historyResp.Amount = &amount
		}
		resp.History = append(resp.History, historyResp)
	}
	return resp
}
