package twap

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceDecimalPlaces is the display precision of limit prices
const PriceDecimalPlaces = 6

// divisionPrecision bounds intermediate quotients before display rounding.
const divisionPrecision = 36

var hundred = decimal.NewFromInt(100)

// RoundPrice rounds a display price to 6 decimal places. Only displayed
// values go through it; order amounts use the unrounded price.
func RoundPrice(price decimal.Decimal) decimal.Decimal {
	return price.Round(PriceDecimalPlaces)
}

// InvertPrice returns 1/price rounded for display; zero stays zero
func InvertPrice(price decimal.Decimal) decimal.Decimal {
	return RoundPrice(invert(price))
}

func invert(price decimal.Decimal) decimal.Decimal {
	if price.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).DivRound(price, divisionPrecision)
}

// MarketPriceUI converts a base-unit market price into dst tokens per src token
func MarketPriceUI(marketPrice *big.Int, dstDecimals uint8) decimal.Decimal {
	return FromBaseUnit(marketPrice, dstDecimals)
}

// PriceWithPercent offsets the market price by percent. The base price is
// inverted before scaling when the price is displayed inverted.
func PriceWithPercent(marketPriceUI decimal.Decimal, inverted bool, percent decimal.Decimal) decimal.Decimal {
	return RoundPrice(offsetPrice(marketPriceUI, inverted, percent))
}

// offsetPrice is PriceWithPercent before display rounding
func offsetPrice(marketPriceUI decimal.Decimal, inverted bool, percent decimal.Decimal) decimal.Decimal {
	base := marketPriceUI
	if inverted {
		base = invert(base)
	}
	return base.Mul(percent.Div(hundred).Add(decimal.NewFromInt(1)))
}

// PriceDiffFromMarketPercent returns how far limitPriceUI sits from the
// market price, in percent rounded to two places. Both prices are in the
// displayed orientation.
func PriceDiffFromMarketPercent(limitPriceUI, marketPriceUI decimal.Decimal, inverted bool) decimal.Decimal {
	market := marketPriceUI
	if inverted {
		market = invert(market)
	}
	if market.IsZero() || limitPriceUI.IsZero() {
		return decimal.Zero
	}
	return limitPriceUI.DivRound(market, divisionPrecision).Sub(decimal.NewFromInt(1)).Mul(hundred).Round(2)
}

// LimitPriceResolution is the limit price of a draft in both orientations
type LimitPriceResolution struct {
	// Display is what the price input shows, inverted when the draft is inverted.
	Display decimal.Decimal
	// Price is dst tokens per src token regardless of inversion.
	Price decimal.Decimal
	Known bool
}

// ResolveLimitPrice picks the draft's effective limit price: a typed price
// first, then a selected percent offset, then the market price.
func ResolveLimitPrice(draft OrderDraft, marketPrice *big.Int, dstDecimals uint8) LimitPriceResolution {
	if draft.TypedLimitPrice != nil {
		// A cleared or malformed input is a typed zero, not a fallback to market.
		typed, _ := parseOptionalDecimal(draft.TypedLimitPrice)
		return resolutionFromDisplay(typed, draft.IsInvertedPrice)
	}

	if marketPrice == nil {
		return LimitPriceResolution{}
	}
	marketUI := MarketPriceUI(marketPrice, dstDecimals)

	if percent, ok := parseOptionalDecimal(draft.SelectedPricePercent); ok && !percent.IsZero() {
		offset := offsetPrice(marketUI, draft.IsInvertedPrice, percent)
		price := offset
		if draft.IsInvertedPrice {
			price = invert(offset)
		}
		return LimitPriceResolution{Display: RoundPrice(offset), Price: price, Known: true}
	}

	if draft.IsInvertedPrice {
		return LimitPriceResolution{Display: InvertPrice(marketUI), Price: marketUI, Known: true}
	}
	return LimitPriceResolution{Display: marketUI, Price: marketUI, Known: true}
}

func resolutionFromDisplay(display decimal.Decimal, inverted bool) LimitPriceResolution {
	price := display
	if inverted {
		price = invert(display)
	}
	return LimitPriceResolution{Display: display, Price: price, Known: true}
}

func parseOptionalDecimal(s *string) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Zero, false
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
