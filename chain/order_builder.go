package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OrderBuilder builds calldata for the TWAP contract. It never signs or sends.
type OrderBuilder struct {
	twapAddr common.Address
	chainID  *big.Int
}

// NewOrderBuilder creates a new OrderBuilder
func NewOrderBuilder(twapAddr string, chainID int64) (*OrderBuilder, error) {
	if !common.IsHexAddress(twapAddr) {
		return nil, fmt.Errorf("invalid TWAP address: %q", twapAddr)
	}
	return &OrderBuilder{
		twapAddr: common.HexToAddress(twapAddr),
		chainID:  big.NewInt(chainID),
	}, nil
}

// TwapAddress returns the contract the calldata is meant for
func (ob *OrderBuilder) TwapAddress() common.Address {
	return ob.twapAddr
}

// ChainID returns the chain the builder targets
func (ob *OrderBuilder) ChainID() *big.Int {
	return new(big.Int).Set(ob.chainID)
}

// BuildAskCalldata packs a call to ask(params)
func (ob *OrderBuilder) BuildAskCalldata(params *AskParams) ([]byte, error) {
	if err := ob.validateInputs(params); err != nil {
		return nil, err
	}
	if params.Data == nil {
		params.Data = []byte{}
	}

	data, err := twapABI.Pack("ask", *params)
	if err != nil {
		return nil, fmt.Errorf("failed to pack ask: %w", err)
	}
	return data, nil
}

// BuildCancelCalldata packs a call to cancel(orderID)
func (ob *OrderBuilder) BuildCancelCalldata(orderID uint64) ([]byte, error) {
	return PackCancel(orderID)
}

// PackCancel packs a call to cancel(orderID) for any TWAP deployment
func PackCancel(orderID uint64) ([]byte, error) {
	data, err := twapABI.Pack("cancel", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to pack cancel: %w", err)
	}
	return data, nil
}

// DecodeAskID unpacks the order id returned by ask
func DecodeAskID(output []byte) (uint64, error) {
	values, err := twapABI.Unpack("ask", output)
	if err != nil {
		return 0, fmt.Errorf("failed to unpack ask result: %w", err)
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("unexpected ask result length: %d", len(values))
	}
	id, ok := values[0].(uint64)
	if !ok {
		return 0, fmt.Errorf("unexpected ask result type: %T", values[0])
	}
	return id, nil
}

func (ob *OrderBuilder) validateInputs(params *AskParams) error {
	if params == nil {
		return fmt.Errorf("ask params are required")
	}
	if params.SrcAmount == nil || params.SrcAmount.Sign() <= 0 {
		return fmt.Errorf("srcAmount must be positive")
	}
	if params.SrcBidAmount == nil || params.SrcBidAmount.Sign() <= 0 {
		return fmt.Errorf("srcBidAmount must be positive")
	}
	if params.SrcBidAmount.Cmp(params.SrcAmount) > 0 {
		return fmt.Errorf("srcBidAmount %s exceeds srcAmount %s", params.SrcBidAmount, params.SrcAmount)
	}
	if params.DstMinAmount == nil || params.DstMinAmount.Sign() <= 0 {
		return fmt.Errorf("dstMinAmount must be positive")
	}
	if params.SrcToken == params.DstToken {
		return fmt.Errorf("srcToken and dstToken must differ")
	}
	if params.Deadline == 0 {
		return fmt.Errorf("deadline is required")
	}
	return nil
}
