package twap

import (
	"github.com/shopspring/decimal"
)

// ChainID represents a blockchain chain ID
type ChainID int

const (
	ChainIDEthereum ChainID = 1
	ChainIDBNB      ChainID = 56  // BNB Chain (BSC) mainnet
	ChainIDPolygon  ChainID = 137 // Polygon PoS mainnet
	ChainIDArbitrum ChainID = 42161
)

// SupportedChainIDs lists all supported chain IDs
var SupportedChainIDs = []ChainID{ChainIDEthereum, ChainIDBNB, ChainIDPolygon, ChainIDArbitrum}

// NetworkConfig holds the TWAP deployment and order policy for one chain
type NetworkConfig struct {
	ChainID         ChainID
	TwapAddress     string
	LensAddress     string
	ExchangeAddress string
	// MinChunkSizeUsd is the smallest USD value a single chunk may have.
	MinChunkSizeUsd  decimal.Decimal
	DefaultFillDelay TimeDuration
	MinFillDelay     TimeDuration
	// BidDelaySeconds is the minimum time a bid must wait before it can be filled.
	BidDelaySeconds int64
}

const (
	defaultTwapAddress = "0xceFf098C9199c5d9cf24078dc14Eb8F787631cC0"
	defaultLensAddress = "0x6313188c1909b161074D62E43105faC9B756A23e"
)

// DefaultNetworks maps chain IDs to their TWAP deployments
var DefaultNetworks = map[ChainID]NetworkConfig{
	ChainIDEthereum: {
		ChainID:          ChainIDEthereum,
		TwapAddress:      defaultTwapAddress,
		LensAddress:      defaultLensAddress,
		ExchangeAddress:  "0xb2BAFe188faD927240038cC4FfF2d771d8A58905",
		MinChunkSizeUsd:  decimal.NewFromInt(50),
		DefaultFillDelay: TimeDuration{Value: 2, Unit: Minutes},
		MinFillDelay:     TimeDuration{Value: 1, Unit: Minutes},
		BidDelaySeconds:  60,
	},
	ChainIDBNB: {
		ChainID:          ChainIDBNB,
		TwapAddress:      defaultTwapAddress,
		LensAddress:      defaultLensAddress,
		ExchangeAddress:  "0xb2BAFe188faD927240038cC4FfF2d771d8A58905",
		MinChunkSizeUsd:  decimal.NewFromInt(10),
		DefaultFillDelay: TimeDuration{Value: 2, Unit: Minutes},
		MinFillDelay:     TimeDuration{Value: 1, Unit: Minutes},
		BidDelaySeconds:  60,
	},
	ChainIDPolygon: {
		ChainID:          ChainIDPolygon,
		TwapAddress:      defaultTwapAddress,
		LensAddress:      defaultLensAddress,
		ExchangeAddress:  "0x8FCc245209bE85C49D738D0CE5613F74E5d91E86",
		MinChunkSizeUsd:  decimal.NewFromInt(10),
		DefaultFillDelay: TimeDuration{Value: 2, Unit: Minutes},
		MinFillDelay:     TimeDuration{Value: 1, Unit: Minutes},
		BidDelaySeconds:  60,
	},
	ChainIDArbitrum: {
		ChainID:          ChainIDArbitrum,
		TwapAddress:      defaultTwapAddress,
		LensAddress:      defaultLensAddress,
		ExchangeAddress:  "0xE6E61E8B1e9D7bBEc4E1B1E6F4C44a2Ad4B9e8C5",
		MinChunkSizeUsd:  decimal.NewFromInt(10),
		DefaultFillDelay: TimeDuration{Value: 2, Unit: Minutes},
		MinFillDelay:     TimeDuration{Value: 1, Unit: Minutes},
		BidDelaySeconds:  60,
	},
}

// IsSupportedChain reports whether chainID has a default deployment
func IsSupportedChain(chainID ChainID) bool {
	for _, supportedID := range SupportedChainIDs {
		if chainID == supportedID {
			return true
		}
	}
	return false
}
