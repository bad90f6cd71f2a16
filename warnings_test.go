package twap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePriority(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*OrderDraft, *MarketSnapshot)
		want   Warning
	}{
		{
			name:   "valid order",
			mutate: func(*OrderDraft, *MarketSnapshot) {},
			want:   WarningNone,
		},
		{
			name: "tokens mask amount",
			mutate: func(d *OrderDraft, _ *MarketSnapshot) {
				d.SrcToken = nil
				d.TypedSrcAmount = ""
			},
			want: WarningSelectTokens,
		},
		{
			name: "same token on both sides",
			mutate: func(d *OrderDraft, _ *MarketSnapshot) {
				dst := NewToken(usdc.Address, usdc.Decimals, usdc.Symbol)
				d.DstToken = &dst
			},
			want: WarningSelectTokens,
		},
		{
			name: "amount masks balance",
			mutate: func(d *OrderDraft, m *MarketSnapshot) {
				d.TypedSrcAmount = ""
				m.SrcBalance.SetInt64(0)
			},
			want: WarningEnterAmount,
		},
		{
			name:   "balance too low",
			mutate: func(d *OrderDraft, _ *MarketSnapshot) { d.TypedSrcAmount = "3000" },
			want:   WarningInsufficientFunds,
		},
		{
			name:   "unknown balance is not checked",
			mutate: func(d *OrderDraft, m *MarketSnapshot) { d.TypedSrcAmount = "3000"; m.SrcBalance = nil },
			want:   WarningNone,
		},
		{
			name:   "chunk rounds to zero",
			mutate: func(d *OrderDraft, _ *MarketSnapshot) { d.TypedSrcAmount = "0.000003" },
			want:   WarningEnterTradeSize,
		},
		{
			name:   "no duration",
			mutate: func(d *OrderDraft, _ *MarketSnapshot) { d.Duration = TimeDuration{} },
			want:   WarningEnterMaxDuration,
		},
		{
			name:   "cleared limit price",
			mutate: func(d *OrderDraft, _ *MarketSnapshot) { d.TypedLimitPrice = strPtr("") },
			want:   WarningInsertLimitPrice,
		},
		{
			name: "limit price buys nothing per chunk",
			mutate: func(d *OrderDraft, m *MarketSnapshot) {
				d.TypedLimitPrice = strPtr("0.000000000000000000001")
				m.SrcUsd1Token = nil
			},
			want: WarningInsertLimitPrice,
		},
		{
			name: "market order ignores limit price",
			mutate: func(d *OrderDraft, _ *MarketSnapshot) {
				d.TypedLimitPrice = strPtr("")
				d.IsMarketOrder = true
			},
			want: WarningNone,
		},
		{
			name:   "chunk below usd floor",
			mutate: func(d *OrderDraft, _ *MarketSnapshot) { d.Chunks = 40 },
			want:   WarningTradeSizeMustBeEqualToFloor,
		},
		{
			name: "floor skipped without usd price",
			mutate: func(d *OrderDraft, m *MarketSnapshot) {
				d.Chunks = 40
				m.SrcUsd1Token = nil
			},
			want: WarningNone,
		},
		{
			name: "custom fill delay below minimum",
			mutate: func(d *OrderDraft, _ *MarketSnapshot) {
				d.CustomFillDelayEnabled = true
				d.FillDelay = TimeDuration{Value: 30, Unit: Seconds}
			},
			want: WarningMinFillDelay,
		},
		{
			name: "floor masks fill delay",
			mutate: func(d *OrderDraft, _ *MarketSnapshot) {
				d.Chunks = 40
				d.CustomFillDelayEnabled = true
				d.FillDelay = TimeDuration{Value: 30, Unit: Seconds}
			},
			want: WarningTradeSizeMustBeEqualToFloor,
		},
		{
			name: "disabled custom fill delay is ignored",
			mutate: func(d *OrderDraft, _ *MarketSnapshot) {
				d.FillDelay = TimeDuration{Value: 30, Unit: Seconds}
			},
			want: WarningNone,
		},
	}

	cfg := testNetwork()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, market := baseDraft(), baseMarket()
			tt.mutate(&draft, &market)

			derived := DeriveOrderParams(cfg, draft, market, testNow)
			assert.Equal(t, tt.want, Validate(cfg, draft, derived, market))
		})
	}
}

func TestIsPartialFill(t *testing.T) {
	cfg := testNetwork()

	draft := baseDraft()
	derived := DeriveOrderParams(cfg, draft, baseMarket(), testNow)
	assert.False(t, IsPartialFill(draft, derived))

	// 4 chunks 2 minutes apart do not fit in 5 minutes.
	draft.Duration = TimeDuration{Value: 5, Unit: Minutes}
	derived = DeriveOrderParams(cfg, draft, baseMarket(), testNow)
	assert.True(t, IsPartialFill(draft, derived))

	draft.Chunks = 1
	derived = DeriveOrderParams(cfg, draft, baseMarket(), testNow)
	assert.False(t, IsPartialFill(draft, derived))
}
