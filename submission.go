package twap

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kaifufi/twap-sdk-go/chain"
)

// Submission is an order ready to be sent to the TWAP contract
type Submission struct {
	// To is the TWAP contract address.
	To   string
	Data []byte
	Ask  chain.AskParams
	// Args are the ask arguments as decimal or hex strings, in contract order.
	Args []string
}

// BuildSubmission builds the ask call for a resolved order. Signing and
// sending the transaction is left to the caller.
func BuildSubmission(cfg NetworkConfig, draft OrderDraft, derived DerivedOrderParams) (*Submission, error) {
	if !derived.IsResolved() {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedOrder, derived.Unresolved)
	}
	if draft.SrcToken == nil || draft.DstToken == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedOrder, UnresolvedTokens)
	}
	if draft.SrcToken.IsNative() {
		return nil, &InvalidParamError{Message: "native source token must be wrapped before submitting"}
	}
	if !common.IsHexAddress(cfg.ExchangeAddress) {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid exchange address: %q", cfg.ExchangeAddress)}
	}
	if derived.Deadline <= 0 || derived.Deadline > math.MaxUint32 {
		return nil, &InvalidParamError{Message: fmt.Sprintf("deadline out of range: %d", derived.Deadline)}
	}
	if derived.FillDelaySeconds < 0 || derived.FillDelaySeconds > math.MaxUint32 {
		return nil, &InvalidParamError{Message: fmt.Sprintf("fill delay out of range: %d", derived.FillDelaySeconds)}
	}

	dstMin := derived.DstMinChunkAmountOut
	if derived.IsMarketOrder {
		dstMin = MarketOrderDstMinAmount
	}

	builder, err := chain.NewOrderBuilder(cfg.TwapAddress, int64(cfg.ChainID))
	if err != nil {
		return nil, &InvalidParamError{Message: err.Error()}
	}

	ask := chain.AskParams{
		Exchange:     common.HexToAddress(cfg.ExchangeAddress),
		SrcToken:     common.HexToAddress(draft.SrcToken.Address),
		DstToken:     common.HexToAddress(draft.DstToken.Address),
		SrcAmount:    new(big.Int).Set(derived.SrcAmount),
		SrcBidAmount: new(big.Int).Set(derived.SrcChunkAmount),
		DstMinAmount: new(big.Int).Set(dstMin),
		Deadline:     uint32(derived.Deadline),
		BidDelay:     uint32(cfg.BidDelaySeconds),
		FillDelay:    uint32(derived.FillDelaySeconds),
		Data:         []byte{},
	}

	data, err := builder.BuildAskCalldata(&ask)
	if err != nil {
		return nil, &InvalidParamError{Message: err.Error()}
	}

	return &Submission{
		To:   builder.TwapAddress().Hex(),
		Data: data,
		Ask:  ask,
		Args: []string{
			ask.Exchange.Hex(),
			ask.SrcToken.Hex(),
			ask.DstToken.Hex(),
			ask.SrcAmount.String(),
			ask.SrcBidAmount.String(),
			ask.DstMinAmount.String(),
			strconv.FormatUint(uint64(ask.Deadline), 10),
			strconv.FormatUint(uint64(ask.BidDelay), 10),
			strconv.FormatUint(uint64(ask.FillDelay), 10),
			"0x",
		},
	}, nil
}

// RawOrder describes the submitted order the way the order source will
// report it once indexed
func (s *Submission) RawOrder(maker string, orderID uint64, txHash string, now time.Time) RawOrder {
	return RawOrder{
		ID:               orderID,
		Maker:            maker,
		Exchange:         s.Ask.Exchange.Hex(),
		SrcToken:         s.Ask.SrcToken.Hex(),
		DstToken:         s.Ask.DstToken.Hex(),
		SrcAmount:        new(big.Int).Set(s.Ask.SrcAmount),
		SrcFilledAmount:  new(big.Int),
		SrcBidAmount:     new(big.Int).Set(s.Ask.SrcBidAmount),
		DstMinAmount:     new(big.Int).Set(s.Ask.DstMinAmount),
		DstFilledAmount:  new(big.Int),
		CreatedAt:        now.Unix(),
		Deadline:         int64(s.Ask.Deadline),
		FillDelaySeconds: int64(s.Ask.FillDelay),
		TxHash:           txHash,
	}
}

// BuildCancelCalldata packs the cancel call for orderID
func BuildCancelCalldata(orderID uint64) ([]byte, error) {
	return chain.PackCancel(orderID)
}
