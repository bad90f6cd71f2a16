package twap

import (
	"math/big"
)

// Warning is a user-actionable condition that blocks order submission
type Warning string

// Warnings in the order Validate evaluates them
const (
	WarningNone                        Warning = ""
	WarningSelectTokens                Warning = "selectTokens"
	WarningEnterAmount                 Warning = "enterAmount"
	WarningInsufficientFunds           Warning = "insufficientFunds"
	WarningEnterTradeSize              Warning = "enterTradeSize"
	WarningEnterMaxDuration            Warning = "enterMaxDuration"
	WarningInsertLimitPrice            Warning = "insertLimitPriceWarning"
	WarningTradeSizeMustBeEqualToFloor Warning = "tradeSizeMustBeEqualToFloor"
	WarningMinFillDelay                Warning = "minFillDelay"
)

// Validate returns the single highest-priority warning for the draft, or
// WarningNone. Earlier checks mask later ones, so the order of the checks
// below must not change.
func Validate(cfg NetworkConfig, draft OrderDraft, derived DerivedOrderParams, market MarketSnapshot) Warning {
	if draft.SrcToken == nil || draft.DstToken == nil || draft.SrcToken.Equal(*draft.DstToken) {
		return WarningSelectTokens
	}

	if isZeroOrNil(derived.SrcAmount) {
		return WarningEnterAmount
	}

	if market.SrcBalance != nil && derived.SrcAmount.Cmp(market.SrcBalance) > 0 {
		return WarningInsufficientFunds
	}

	if isZeroOrNil(derived.SrcChunkAmount) {
		return WarningEnterTradeSize
	}

	if draft.Duration.IsZero() {
		return WarningEnterMaxDuration
	}

	// A limit that buys nothing per chunk is as good as no limit.
	if !draft.IsMarketOrder && derived.LimitPrice != nil && isZeroOrNil(derived.DstMinChunkAmountOut) {
		return WarningInsertLimitPrice
	}

	if chunkUsd, ok := ChunkUsdValue(derived.SrcChunkAmount, draft.SrcToken.Decimals, market.SrcUsd1Token); ok {
		if chunkUsd.LessThan(cfg.MinChunkSizeUsd) {
			return WarningTradeSizeMustBeEqualToFloor
		}
	}

	if draft.CustomFillDelayEnabled && derived.FillDelaySeconds < cfg.MinFillDelay.Seconds() {
		return WarningMinFillDelay
	}

	return WarningNone
}

// IsPartialFill reports whether the order cannot execute every chunk before
// its deadline, given the fill delay between chunks. It is informational only.
func IsPartialFill(draft OrderDraft, derived DerivedOrderParams) bool {
	if !derived.HasInterval() {
		return false
	}
	total := new(big.Int).Mul(big.NewInt(int64(derived.Chunks)), big.NewInt(derived.FillDelaySeconds*1000))
	return total.Cmp(big.NewInt(draft.Duration.Millis())) > 0
}
