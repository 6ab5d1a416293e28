package billing

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPeriod() (time.Time, time.Time) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func TestNewInvoice(t *testing.T) {
	userID := uuid.New()
	periodStart, periodEnd := testPeriod()

	t.Run("subscription only", func(t *testing.T) {
		inv, err := NewInvoice(userID, TierTeam, periodStart, periodEnd, Overage{})
		require.NoError(t, err)

		require.Len(t, inv.LineItems, 1)
		assert.Equal(t, LineItemSubscription, inv.LineItems[0].Category)
		assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(29)))
		assert.True(t, inv.TaxAmount.Equal(decimal.RequireFromString("2.32")))
		assert.True(t, inv.TotalAmount.Equal(decimal.RequireFromString("31.32")))
		assert.Equal(t, InvoiceStatusPending, inv.Status)
	})

	t.Run("subscription plus overage lines", func(t *testing.T) {
		overage := Overage{VideoMinutes: 2000, DataGB: decimal.NewFromInt(5)}
		inv, err := NewInvoice(userID, TierPersonal, periodStart, periodEnd, overage)
		require.NoError(t, err)

		// subscription + video overage + data overage, zero dimensions omitted
		require.Len(t, inv.LineItems, 3)
		assert.True(t, inv.Subtotal.Equal(decimal.RequireFromString("10.4406")),
			"got %s", inv.Subtotal)
	})

	t.Run("total equals subtotal times 1.08 for any combination", func(t *testing.T) {
		overages := []Overage{
			{},
			{VideoMinutes: 1},
			{VideoMinutes: 500, AudioMinutes: 300, Messages: 12345},
			{DataGB: decimal.RequireFromString("17.25")},
		}
		for _, tier := range []Tier{TierTrial, TierPersonal, TierTeam, TierEnterprise} {
			for _, overage := range overages {
				inv, err := NewInvoice(userID, tier, periodStart, periodEnd, overage)
				require.NoError(t, err)
				expected := inv.Subtotal.Mul(decimal.RequireFromString("1.08"))
				assert.True(t, inv.TotalAmount.Equal(expected),
					"tier %s: total %s != subtotal*1.08 %s", tier, inv.TotalAmount, expected)
				assert.True(t, inv.TotalAmount.Equal(inv.Subtotal.Add(inv.TaxAmount)))
			}
		}
	})

	t.Run("trial with no overage has empty line items and zero total", func(t *testing.T) {
		inv, err := NewInvoice(userID, TierTrial, periodStart, periodEnd, Overage{})
		require.NoError(t, err)
		assert.Empty(t, inv.LineItems)
		assert.True(t, inv.TotalAmount.IsZero())
	})

	t.Run("rejects inverted period", func(t *testing.T) {
		_, err := NewInvoice(userID, TierTeam, periodEnd, periodStart, Overage{})
		assert.Error(t, err)
	})

	t.Run("rejects empty user", func(t *testing.T) {
		_, err := NewInvoice(uuid.Nil, TierTeam, periodStart, periodEnd, Overage{})
		assert.Error(t, err)
	})
}

func TestNewInvoiceNumber(t *testing.T) {
	t.Run("has expected shape", func(t *testing.T) {
		number := NewInvoiceNumber()
		assert.True(t, strings.HasPrefix(number, "INV-"))
		assert.Len(t, number, 20)
	})

	t.Run("unique across generations", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			number := NewInvoiceNumber()
			assert.False(t, seen[number], "duplicate invoice number %s", number)
			seen[number] = true
		}
	})
}

func TestInvoice_StatusTransitions(t *testing.T) {
	userID := uuid.New()
	periodStart, periodEnd := testPeriod()

	t.Run("mark paid", func(t *testing.T) {
		inv, err := NewInvoice(userID, TierTeam, periodStart, periodEnd, Overage{})
		require.NoError(t, err)

		require.NoError(t, inv.MarkPaid())
		assert.Equal(t, InvoiceStatusPaid, inv.Status)

		// already paid
		assert.Error(t, inv.MarkPaid())
		assert.Error(t, inv.Void())
	})

	t.Run("void", func(t *testing.T) {
		inv, err := NewInvoice(userID, TierTeam, periodStart, periodEnd, Overage{})
		require.NoError(t, err)

		require.NoError(t, inv.Void())
		assert.Equal(t, InvoiceStatusVoid, inv.Status)
		assert.Error(t, inv.MarkPaid())
	})
}

func TestInvoice_DisplayTotal(t *testing.T) {
	userID := uuid.New()
	periodStart, periodEnd := testPeriod()

	// 500 video overage on PERSONAL: subtotal 9.36, tax 0.7488, total 10.1088
	inv, err := NewInvoice(userID, TierPersonal, periodStart, periodEnd, Overage{VideoMinutes: 500})
	require.NoError(t, err)

	assert.True(t, inv.TotalAmount.Equal(decimal.RequireFromString("10.1088")))
	assert.True(t, inv.DisplayTotal().Equal(decimal.RequireFromString("10.11")))
}
