package billing

import (
	"time"

	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod identifies how an invoice was settled
type PaymentMethod string

const (
	PaymentMethodStripe     PaymentMethod = "STRIPE"
	PaymentMethodCryptoETH  PaymentMethod = "CRYPTO_ETH"
	PaymentMethodCryptoUSDC PaymentMethod = "CRYPTO_USDC"
	PaymentMethodCryptoSOL  PaymentMethod = "CRYPTO_SOL"
)

// IsValid returns true if the payment method is supported
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodStripe, PaymentMethodCryptoETH, PaymentMethodCryptoUSDC, PaymentMethodCryptoSOL:
		return true
	}
	return false
}

// Payment records the settlement of an invoice. Payment capture mechanics
// live outside this subsystem; only the settlement record is kept here.
type Payment struct {
	shared.BaseEntity
	UserID    uuid.UUID
	InvoiceID uuid.UUID
	Method    PaymentMethod
	Amount    decimal.Decimal
	PaidAt    time.Time
}

// NewPayment creates a payment record for an invoice
func NewPayment(userID, invoiceID uuid.UUID, method PaymentMethod, amount decimal.Decimal) (*Payment, error) {
	if !method.IsValid() {
		return nil, shared.ErrInvalidPayment
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount cannot be negative")
	}
	return &Payment{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		InvoiceID:  invoiceID,
		Method:     method,
		Amount:     amount,
		PaidAt:     time.Now(),
	}, nil
}
