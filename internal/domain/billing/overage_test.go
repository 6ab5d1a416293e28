package billing

import (
	"testing"

	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeOverage(t *testing.T) {
	t.Run("usage within limits produces no overage", func(t *testing.T) {
		totals := usage.Totals{
			VideoMinutes: 40000,
			AudioMinutes: 90000,
			Messages:     900000,
			DataGB:       decimal.NewFromInt(80),
		}
		overage := ComputeOverage(TierTeam, totals)
		assert.False(t, overage.HasOverage())
		assert.True(t, overage.Cost().IsZero())
	})

	t.Run("single dimension over limit", func(t *testing.T) {
		totals := usage.Totals{
			VideoMinutes: 50500,
			AudioMinutes: 90000,
			Messages:     900000,
			DataGB:       decimal.NewFromInt(80),
		}
		overage := ComputeOverage(TierTeam, totals)
		assert.Equal(t, int64(500), overage.VideoMinutes)
		assert.Equal(t, int64(0), overage.AudioMinutes)
		assert.Equal(t, int64(0), overage.Messages)
		assert.True(t, overage.DataGB.IsZero())

		// 500 video minutes * 0.00072 = $0.36
		assert.True(t, overage.Cost().Equal(decimal.RequireFromString("0.36")),
			"got %s", overage.Cost())
	})

	t.Run("2000 video minutes over costs 1.44", func(t *testing.T) {
		totals := usage.Totals{VideoMinutes: 52000}
		overage := ComputeOverage(TierTeam, totals)
		assert.Equal(t, int64(2000), overage.VideoMinutes)
		assert.True(t, overage.Cost().Equal(decimal.RequireFromString("1.44")))
	})

	t.Run("enterprise never has overage regardless of usage", func(t *testing.T) {
		totals := usage.Totals{
			VideoMinutes: 10_000_000,
			AudioMinutes: 10_000_000,
			Messages:     10_000_000,
			DataGB:       decimal.NewFromInt(100000),
		}
		overage := ComputeOverage(TierEnterprise, totals)
		assert.False(t, overage.HasOverage())
	})

	t.Run("usage exactly at limit is not overage", func(t *testing.T) {
		limits := ResolveLimits(TierTeam)
		totals := usage.Totals{
			VideoMinutes: limits.VideoMinutes,
			AudioMinutes: limits.AudioMinutes,
			Messages:     limits.Messages,
			DataGB:       decimal.NewFromInt(limits.DataGB),
		}
		assert.False(t, ComputeOverage(TierTeam, totals).HasOverage())
	})

	t.Run("fractional data overage", func(t *testing.T) {
		totals := usage.Totals{DataGB: decimal.RequireFromString("100.5")}
		overage := ComputeOverage(TierTeam, totals)
		assert.True(t, overage.DataGB.Equal(decimal.RequireFromString("0.5")))
	})
}

func TestOverage_CostIsAdditive(t *testing.T) {
	a := Overage{VideoMinutes: 123, AudioMinutes: 77, Messages: 4000, DataGB: decimal.NewFromInt(3)}
	b := Overage{VideoMinutes: 877, AudioMinutes: 23, Messages: 6000, DataGB: decimal.NewFromInt(7)}
	sum := Overage{
		VideoMinutes: a.VideoMinutes + b.VideoMinutes,
		AudioMinutes: a.AudioMinutes + b.AudioMinutes,
		Messages:     a.Messages + b.Messages,
		DataGB:       a.DataGB.Add(b.DataGB),
	}

	assert.True(t, sum.Cost().Equal(a.Cost().Add(b.Cost())))
}

func TestOverage_CostRates(t *testing.T) {
	tests := []struct {
		name    string
		overage Overage
		cost    string
	}{
		{"video only", Overage{VideoMinutes: 1000}, "0.72"},
		{"audio only", Overage{AudioMinutes: 1000}, "0.36"},
		{"messages only", Overage{Messages: 10000}, "1.2"},
		{"data only", Overage{DataGB: decimal.NewFromInt(100)}, "0.012"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.overage.Cost().Equal(decimal.RequireFromString(tt.cost)),
				"got %s", tt.overage.Cost())
		})
	}
}
