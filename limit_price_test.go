package twap

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestRoundPrice(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1.23456789", "1.234568"},
		{"2500", "2500"},
		{"0.000123456789", "0.000123"},
		{"0.0000004", "0"},
		{"0.5", "0.5"},
		{"0", "0"},
		{"-0.00123456789", "-0.001235"},
	}
	for _, tt := range tests {
		assertDecimal(t, tt.want, RoundPrice(dec(tt.in)))
	}
}

func TestInvertPrice(t *testing.T) {
	assertDecimal(t, "0.5", InvertPrice(dec("2")))
	assertDecimal(t, "0.333333", InvertPrice(dec("3")))
	assertDecimal(t, "2500", InvertPrice(dec("0.0004")))
	assertDecimal(t, "0", InvertPrice(decimal.Zero))
}

func TestInvertPriceRoundTrip(t *testing.T) {
	tolerance := dec("0.00001")
	for _, p := range []string{"2", "3", "0.0004", "1234.5678", "0.987654321"} {
		price := dec(p)
		back := InvertPrice(InvertPrice(price))
		relative := back.Sub(price).Abs().Div(price)
		assert.True(t, relative.LessThanOrEqual(tolerance), "%s came back as %s", p, back)
	}
}

func TestPriceWithPercent(t *testing.T) {
	assertDecimal(t, "2.1", PriceWithPercent(dec("2"), false, dec("5")))
	assertDecimal(t, "0.525", PriceWithPercent(dec("2"), true, dec("5")))
	assertDecimal(t, "1.9", PriceWithPercent(dec("2"), false, dec("-5")))
	// 1/3 * 1.1 rounds once, from the exact inverse.
	assertDecimal(t, "0.366667", PriceWithPercent(dec("3"), true, dec("10")))
}

func TestPriceDiffFromMarketPercent(t *testing.T) {
	assertDecimal(t, "5", PriceDiffFromMarketPercent(dec("2.1"), dec("2"), false))
	assertDecimal(t, "5", PriceDiffFromMarketPercent(dec("0.525"), dec("2"), true))
	assertDecimal(t, "-10", PriceDiffFromMarketPercent(dec("1.8"), dec("2"), false))
	assertDecimal(t, "0", PriceDiffFromMarketPercent(dec("1.8"), decimal.Zero, false))
}

func TestResolveLimitPrice(t *testing.T) {
	// 0.0004 WETH per USDC
	market := big.NewInt(400_000_000_000_000)

	tests := []struct {
		name        string
		draft       OrderDraft
		market      *big.Int
		wantKnown   bool
		wantDisplay string
		wantPrice   string
	}{
		{
			name:        "market price",
			draft:       OrderDraft{},
			market:      market,
			wantKnown:   true,
			wantDisplay: "0.0004",
			wantPrice:   "0.0004",
		},
		{
			name:        "market price inverted",
			draft:       OrderDraft{IsInvertedPrice: true},
			market:      market,
			wantKnown:   true,
			wantDisplay: "2500",
			wantPrice:   "0.0004",
		},
		{
			name:        "percent offset",
			draft:       OrderDraft{SelectedPricePercent: strPtr("5")},
			market:      market,
			wantKnown:   true,
			wantDisplay: "0.00042",
			wantPrice:   "0.00042",
		},
		{
			name:        "percent offset below display precision",
			draft:       OrderDraft{SelectedPricePercent: strPtr("10")},
			market:      big.NewInt(100_000_000_000),
			wantKnown:   true,
			wantDisplay: "0",
			wantPrice:   "0.00000011",
		},
		{
			name:        "zero percent falls back to market",
			draft:       OrderDraft{SelectedPricePercent: strPtr("0")},
			market:      market,
			wantKnown:   true,
			wantDisplay: "0.0004",
			wantPrice:   "0.0004",
		},
		{
			name:        "typed price wins over percent",
			draft:       OrderDraft{TypedLimitPrice: strPtr("0.0005"), SelectedPricePercent: strPtr("5")},
			market:      market,
			wantKnown:   true,
			wantDisplay: "0.0005",
			wantPrice:   "0.0005",
		},
		{
			name:        "typed inverted price",
			draft:       OrderDraft{TypedLimitPrice: strPtr("0.5"), IsInvertedPrice: true},
			market:      nil,
			wantKnown:   true,
			wantDisplay: "0.5",
			wantPrice:   "2",
		},
		{
			name:        "cleared typed price is zero",
			draft:       OrderDraft{TypedLimitPrice: strPtr("")},
			market:      market,
			wantKnown:   true,
			wantDisplay: "0",
			wantPrice:   "0",
		},
		{
			name:      "unknown market",
			draft:     OrderDraft{SelectedPricePercent: strPtr("5")},
			market:    nil,
			wantKnown: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveLimitPrice(tt.draft, tt.market, 18)
			assert.Equal(t, tt.wantKnown, got.Known)
			if !tt.wantKnown {
				return
			}
			assertDecimal(t, tt.wantDisplay, got.Display)
			assertDecimal(t, tt.wantPrice, got.Price)
		})
	}
}

func TestResolveLimitPriceInvertedPercent(t *testing.T) {
	// 3 dst per src, shown inverted and raised by 10%.
	draft := OrderDraft{SelectedPricePercent: strPtr("10"), IsInvertedPrice: true}
	got := ResolveLimitPrice(draft, big.NewInt(3_000_000_000_000_000_000), 18)

	assert.True(t, got.Known)
	assertDecimal(t, "0.366667", got.Display)
	assertDecimal(t, "2.727272727273", got.Price.Round(12))
}
