package billing

import "github.com/shopspring/decimal"

// Tier identifies a subscription plan. The tier determines the monthly
// flat fee and the per-cycle usage limits enforced by the overage
// calculator.
type Tier string

const (
	TierTrial      Tier = "TRIAL"
	TierPersonal   Tier = "PERSONAL"
	TierTeam       Tier = "TEAM"
	TierEnterprise Tier = "ENTERPRISE"
)

// UnlimitedLimit is the sentinel value marking a dimension as unlimited.
// It propagates through all downstream comparisons as "always within limit".
const UnlimitedLimit int64 = -1

// IsValid returns true if the tier is a known plan
func (t Tier) IsValid() bool {
	switch t {
	case TierTrial, TierPersonal, TierTeam, TierEnterprise:
		return true
	}
	return false
}

// IsPaid returns true for tiers that carry a monthly subscription fee
func (t Tier) IsPaid() bool {
	return t == TierPersonal || t == TierTeam || t == TierEnterprise
}

// TierLimits holds the per-cycle usage limits for a tier.
// A value of -1 means the dimension is unlimited.
type TierLimits struct {
	VideoMinutes int64
	AudioMinutes int64
	Messages     int64
	DataGB       int64
}

// tierLimits is immutable plan configuration, not user-owned data.
var tierLimits = map[Tier]TierLimits{
	TierTrial: {
		VideoMinutes: 500,
		AudioMinutes: 1000,
		Messages:     10000,
		DataGB:       1,
	},
	TierPersonal: {
		VideoMinutes: 5000,
		AudioMinutes: 10000,
		Messages:     100000,
		DataGB:       10,
	},
	TierTeam: {
		VideoMinutes: 50000,
		AudioMinutes: 100000,
		Messages:     1000000,
		DataGB:       100,
	},
	TierEnterprise: {
		VideoMinutes: UnlimitedLimit,
		AudioMinutes: UnlimitedLimit,
		Messages:     UnlimitedLimit,
		DataGB:       UnlimitedLimit,
	},
}

// tierMonthlyFees holds the flat monthly subscription fee per tier in USD.
var tierMonthlyFees = map[Tier]decimal.Decimal{
	TierTrial:      decimal.Zero,
	TierPersonal:   decimal.NewFromInt(9),
	TierTeam:       decimal.NewFromInt(29),
	TierEnterprise: decimal.NewFromInt(99),
}

// ResolveLimits maps a tier to its usage limits. Unknown tiers fall back
// to TRIAL limits rather than failing, so a misconfigured profile is
// billed at the most restrictive plan.
func ResolveLimits(tier Tier) TierLimits {
	if limits, ok := tierLimits[tier]; ok {
		return limits
	}
	return tierLimits[TierTrial]
}

// MonthlyFee returns the flat subscription fee for a tier. Unknown tiers
// resolve to the TRIAL fee (zero).
func MonthlyFee(tier Tier) decimal.Decimal {
	if fee, ok := tierMonthlyFees[tier]; ok {
		return fee
	}
	return tierMonthlyFees[TierTrial]
}

// IsUnlimited reports whether a single limit value is the unlimited sentinel
func IsUnlimited(limit int64) bool {
	return limit == UnlimitedLimit
}
