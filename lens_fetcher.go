package twap

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kaifufi/twap-sdk-go/chain"
)

// MakerOrdersReader reads raw orders from the lens contract
type MakerOrdersReader interface {
	MakerOrders(ctx context.Context, maker common.Address) ([]chain.LensOrder, error)
}

// LensOrderFetcher reads order history directly from the chain. It is the
// fallback when no indexer is configured.
type LensOrderFetcher struct {
	reader MakerOrdersReader
}

// NewLensOrderFetcher creates a fetcher over reader
func NewLensOrderFetcher(reader MakerOrdersReader) *LensOrderFetcher {
	return &LensOrderFetcher{reader: reader}
}

// FetchOrders returns every order the account created
func (f *LensOrderFetcher) FetchOrders(ctx context.Context, account string) ([]RawOrder, error) {
	if !common.IsHexAddress(account) {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid account address: %q", account)}
	}

	lensOrders, err := f.reader.MakerOrders(ctx, common.HexToAddress(account))
	if err != nil {
		return nil, err
	}

	orders := make([]RawOrder, 0, len(lensOrders))
	for _, o := range lensOrders {
		orders = append(orders, rawOrderFromLens(o))
	}
	return orders, nil
}

func rawOrderFromLens(o chain.LensOrder) RawOrder {
	raw := RawOrder{
		ID:               o.Id,
		Maker:            o.Maker.Hex(),
		Exchange:         o.Ask.Exchange.Hex(),
		SrcToken:         o.Ask.SrcToken.Hex(),
		DstToken:         o.Ask.DstToken.Hex(),
		SrcAmount:        o.Ask.SrcAmount,
		SrcFilledAmount:  o.SrcFilledAmount,
		SrcBidAmount:     o.Ask.SrcBidAmount,
		DstMinAmount:     o.Ask.DstMinAmount,
		CreatedAt:        int64(o.Ask.Time),
		Deadline:         int64(o.Ask.Deadline),
		FillDelaySeconds: int64(o.Ask.FillDelay),
	}

	switch o.Status {
	case chain.LensOrderStatusCanceled:
		raw.Canceled = true
	case chain.LensOrderStatusCompleted:
		raw.Completed = true
	default:
		// An open order's status holds its deadline.
		if o.Status != 0 {
			raw.Deadline = int64(o.Status)
		}
	}
	return raw
}

var (
	_ OrderFetcher      = (*LensOrderFetcher)(nil)
	_ OrderFetcher      = (*APIClient)(nil)
	_ MakerOrdersReader = (*chain.ContractCaller)(nil)
)
