package billing

import (
	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/shopspring/decimal"
)

// Per-unit overage rates in USD. The rates already include the platform's
// 20% markup; it is never recomputed downstream.
var (
	RateVideoMinute = decimal.RequireFromString("0.00072")
	RateAudioMinute = decimal.RequireFromString("0.00036")
	RateMessage     = decimal.RequireFromString("0.00012")
	RateDataGB      = decimal.RequireFromString("0.00012")
)

// Overage holds the usage beyond a tier's limits, per resource dimension.
// All values are non-negative; an unlimited dimension never produces
// overage.
type Overage struct {
	VideoMinutes int64
	AudioMinutes int64
	Messages     int64
	DataGB       decimal.Decimal
}

// HasOverage returns true if any dimension exceeded its limit
func (o Overage) HasOverage() bool {
	return o.VideoMinutes > 0 || o.AudioMinutes > 0 || o.Messages > 0 ||
		o.DataGB.IsPositive()
}

// Cost returns the total overage cost in USD. The cost is linear and
// additive over the overage dimensions.
func (o Overage) Cost() decimal.Decimal {
	cost := RateVideoMinute.Mul(decimal.NewFromInt(o.VideoMinutes))
	cost = cost.Add(RateAudioMinute.Mul(decimal.NewFromInt(o.AudioMinutes)))
	cost = cost.Add(RateMessage.Mul(decimal.NewFromInt(o.Messages)))
	cost = cost.Add(RateDataGB.Mul(o.DataGB))
	return cost
}

// ComputeOverage compares aggregated cycle usage against a tier's limits.
// Each dimension is max(0, used-limit) unless the limit is the unlimited
// sentinel, in which case the dimension never produces overage.
func ComputeOverage(tier Tier, totals usage.Totals) Overage {
	limits := ResolveLimits(tier)
	return Overage{
		VideoMinutes: overageAmount(totals.VideoMinutes, limits.VideoMinutes),
		AudioMinutes: overageAmount(totals.AudioMinutes, limits.AudioMinutes),
		Messages:     overageAmount(totals.Messages, limits.Messages),
		DataGB:       overageAmountDecimal(totals.DataGB, limits.DataGB),
	}
}

// ComputeOverageCost is a convenience combining ComputeOverage and Cost
func ComputeOverageCost(tier Tier, totals usage.Totals) decimal.Decimal {
	return ComputeOverage(tier, totals).Cost()
}

func overageAmount(used, limit int64) int64 {
	if IsUnlimited(limit) || used <= limit {
		return 0
	}
	return used - limit
}

func overageAmountDecimal(used decimal.Decimal, limit int64) decimal.Decimal {
	if IsUnlimited(limit) {
		return decimal.Zero
	}
	over := used.Sub(decimal.NewFromInt(limit))
	if over.IsNegative() {
		return decimal.Zero
	}
	return over
}
