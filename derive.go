package twap

import (
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// MaxChunks caps chunk counts so they always fit an int on every platform
const MaxChunks = math.MaxInt32

// DeriveOrderParams computes the order parameters for draft against market at
// time now. It never fails: missing inputs are reported through
// DerivedOrderParams.Unresolved and every field that can be computed is.
func DeriveOrderParams(cfg NetworkConfig, draft OrderDraft, market MarketSnapshot, now time.Time) DerivedOrderParams {
	params := DerivedOrderParams{
		SrcAmount:        new(big.Int),
		Chunks:           NormalizeChunks(draft.Chunks),
		SrcChunkAmount:   new(big.Int),
		IsMarketOrder:    draft.IsMarketOrder,
		Deadline:         OrderDeadline(now, draft.Duration),
		FillDelaySeconds: FillDelaySeconds(cfg, draft),
	}

	if draft.SrcToken == nil || draft.DstToken == nil {
		params.Unresolved = UnresolvedTokens
		return params
	}
	srcToken, dstToken := *draft.SrcToken, *draft.DstToken

	srcAmount, err := ToBaseUnit(draft.TypedSrcAmount, srcToken.Decimals)
	if err != nil {
		srcAmount = new(big.Int)
	}
	params.SrcAmount = srcAmount
	params.SrcChunkAmount = ChunkAmount(srcAmount, params.Chunks)
	params.MaxPossibleChunks = MaxPossibleChunks(srcAmount, srcToken.Decimals, market.SrcUsd1Token, cfg.MinChunkSizeUsd)

	var limit LimitPriceResolution
	if draft.IsMarketOrder {
		params.DstMinChunkAmountOut = new(big.Int).Set(MarketOrderDstMinAmount)
		if market.MarketPrice != nil {
			params.LimitPrice = new(big.Int).Set(market.MarketPrice)
			params.LimitPriceUI = MarketPriceUI(market.MarketPrice, dstToken.Decimals)
		}
	} else {
		limit = ResolveLimitPrice(draft, market.MarketPrice, dstToken.Decimals)
		if limit.Known {
			params.LimitPriceUI = limit.Display
			limitPrice, err := DecimalToBaseUnit(limit.Price, dstToken.Decimals)
			if err != nil {
				limitPrice = new(big.Int)
			}
			params.LimitPrice = limitPrice
			params.DstMinChunkAmountOut = DstMinAmountOut(params.SrcChunkAmount, limit.Price, srcToken.Decimals, dstToken.Decimals)
		}
	}

	switch {
	case srcAmount.Sign() == 0:
		params.Unresolved = UnresolvedAmount
	case draft.IsMarketOrder:
	case !limit.Known:
		params.Unresolved = UnresolvedMarketPrice
	case !limit.Price.IsPositive():
		params.Unresolved = UnresolvedLimitPrice
	case params.DstMinChunkAmountOut.Sign() == 0:
		params.Unresolved = UnresolvedDstMinAmount
	}

	return params
}

// NormalizeChunks treats any non-positive chunk count as a single chunk
func NormalizeChunks(chunks int) int {
	if chunks <= 0 {
		return 1
	}
	return chunks
}

// ChunkAmount splits srcAmount into chunks equal parts, rounding down
func ChunkAmount(srcAmount *big.Int, chunks int) *big.Int {
	if srcAmount == nil {
		return new(big.Int)
	}
	return new(big.Int).Quo(srcAmount, big.NewInt(int64(NormalizeChunks(chunks))))
}

// DstMinAmountOut is the minimum dst base units one chunk must buy at
// limitPrice (dst tokens per src token), floored once. A limit order never
// resolves to the market order sentinel.
func DstMinAmountOut(srcChunkAmount *big.Int, limitPrice decimal.Decimal, srcDecimals, dstDecimals uint8) *big.Int {
	if srcChunkAmount == nil || !limitPrice.IsPositive() {
		return new(big.Int)
	}
	out := FromBaseUnit(srcChunkAmount, srcDecimals).Mul(limitPrice).Shift(int32(dstDecimals)).Floor().BigInt()
	if out.Cmp(MarketOrderDstMinAmount) == 0 {
		return out.Add(out, big.NewInt(1))
	}
	return out
}

// MinChunkSizeBaseUnit converts the USD floor into src base units, rounding
// up so a chunk of that size is never worth less than the floor. It returns
// nil when the src USD price is unknown.
func MinChunkSizeBaseUnit(minChunkSizeUsd decimal.Decimal, srcUsd1Token *decimal.Decimal, srcDecimals uint8) *big.Int {
	if srcUsd1Token == nil || !srcUsd1Token.IsPositive() {
		return nil
	}
	size := minChunkSizeUsd.DivRound(*srcUsd1Token, divisionPrecision).Shift(int32(srcDecimals)).Ceil().BigInt()
	if size.Sign() <= 0 {
		return big.NewInt(1)
	}
	return size
}

// MaxPossibleChunks bounds the chunk selector. It returns 0 while the src USD
// price is unknown; a zero floor leaves only the one-base-unit-per-chunk bound.
func MaxPossibleChunks(srcAmount *big.Int, srcDecimals uint8, srcUsd1Token *decimal.Decimal, minChunkSizeUsd decimal.Decimal) int {
	if srcAmount == nil {
		srcAmount = new(big.Int)
	}
	if !minChunkSizeUsd.IsPositive() {
		return clampChunks(srcAmount)
	}

	minChunk := MinChunkSizeBaseUnit(minChunkSizeUsd, srcUsd1Token, srcDecimals)
	if minChunk == nil {
		return 0
	}
	return clampChunks(new(big.Int).Quo(srcAmount, minChunk))
}

func clampChunks(n *big.Int) int {
	if n.Sign() <= 0 {
		return 1
	}
	if !n.IsInt64() || n.Int64() > MaxChunks {
		return MaxChunks
	}
	return int(n.Int64())
}

// OrderDeadline returns now plus the order duration as unix seconds
func OrderDeadline(now time.Time, duration TimeDuration) int64 {
	return (now.UnixMilli() + duration.Millis()) / 1000
}

// FillDelaySeconds returns the delay between chunks. The network default is
// used unless the user enabled a custom, non-zero fill delay.
func FillDelaySeconds(cfg NetworkConfig, draft OrderDraft) int64 {
	fillDelay := cfg.DefaultFillDelay
	if draft.CustomFillDelayEnabled && !draft.FillDelay.IsZero() {
		fillDelay = draft.FillDelay
	}
	return fillDelay.Seconds()
}

// ChunkUsdValue returns the USD value of one chunk, or false when the src USD
// price is unknown
func ChunkUsdValue(srcChunkAmount *big.Int, srcDecimals uint8, srcUsd1Token *decimal.Decimal) (decimal.Decimal, bool) {
	if srcUsd1Token == nil {
		return decimal.Zero, false
	}
	return FromBaseUnit(srcChunkAmount, srcDecimals).Mul(*srcUsd1Token), true
}
