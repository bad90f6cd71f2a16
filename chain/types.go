package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// LensOrderStatusCanceled and LensOrderStatusCompleted are the terminal status
// codes of the lens contract. Any other status value is the order deadline.
const (
	LensOrderStatusCanceled  uint32 = 1
	LensOrderStatusCompleted uint32 = 2
)

// AskParams is the argument of the TWAP ask function
type AskParams struct {
	Exchange     common.Address
	SrcToken     common.Address
	DstToken     common.Address
	SrcAmount    *big.Int
	SrcBidAmount *big.Int
	DstMinAmount *big.Int
	Deadline     uint32
	BidDelay     uint32
	FillDelay    uint32
	Data         []byte
}

// LensAsk is the ask part of an order read from the lens contract
type LensAsk struct {
	Time         uint32
	Deadline     uint32
	BidDelay     uint32
	FillDelay    uint32
	Exchange     common.Address
	SrcToken     common.Address
	DstToken     common.Address
	SrcAmount    *big.Int
	SrcBidAmount *big.Int
	DstMinAmount *big.Int
	Data         []byte
}

// LensBid is the current winning bid of an order
type LensBid struct {
	Time      uint32
	Taker     common.Address
	Exchange  common.Address
	DstAmount *big.Int
	DstFee    *big.Int
	Data      []byte
}

// LensOrder is one entry of the lens makerOrders result
type LensOrder struct {
	Id              uint64
	Status          uint32
	Time            uint32
	FilledTime      uint32
	SrcFilledAmount *big.Int
	Maker           common.Address
	Ask             LensAsk
	Bid             LensBid
}

const askComponentsJSON = `[
	{"name": "exchange", "type": "address"},
	{"name": "srcToken", "type": "address"},
	{"name": "dstToken", "type": "address"},
	{"name": "srcAmount", "type": "uint256"},
	{"name": "srcBidAmount", "type": "uint256"},
	{"name": "dstMinAmount", "type": "uint256"},
	{"name": "deadline", "type": "uint32"},
	{"name": "bidDelay", "type": "uint32"},
	{"name": "fillDelay", "type": "uint32"},
	{"name": "data", "type": "bytes"}
]`

// TWAP ABI JSON for ask, cancel and length
const twapABIJSON = `[
	{
		"inputs": [
			{"name": "_ask", "type": "tuple", "components": ` + askComponentsJSON + `}
		],
		"name": "ask",
		"outputs": [{"name": "id", "type": "uint64"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "id", "type": "uint64"}],
		"name": "cancel",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "length",
		"outputs": [{"name": "", "type": "uint64"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Lens ABI JSON for makerOrders
const lensABIJSON = `[
	{
		"inputs": [{"name": "maker", "type": "address"}],
		"name": "makerOrders",
		"outputs": [
			{
				"name": "result",
				"type": "tuple[]",
				"components": [
					{"name": "id", "type": "uint64"},
					{"name": "status", "type": "uint32"},
					{"name": "time", "type": "uint32"},
					{"name": "filledTime", "type": "uint32"},
					{"name": "srcFilledAmount", "type": "uint256"},
					{"name": "maker", "type": "address"},
					{
						"name": "ask",
						"type": "tuple",
						"components": [
							{"name": "time", "type": "uint32"},
							{"name": "deadline", "type": "uint32"},
							{"name": "bidDelay", "type": "uint32"},
							{"name": "fillDelay", "type": "uint32"},
							{"name": "exchange", "type": "address"},
							{"name": "srcToken", "type": "address"},
							{"name": "dstToken", "type": "address"},
							{"name": "srcAmount", "type": "uint256"},
							{"name": "srcBidAmount", "type": "uint256"},
							{"name": "dstMinAmount", "type": "uint256"},
							{"name": "data", "type": "bytes"}
						]
					},
					{
						"name": "bid",
						"type": "tuple",
						"components": [
							{"name": "time", "type": "uint32"},
							{"name": "taker", "type": "address"},
							{"name": "exchange", "type": "address"},
							{"name": "dstAmount", "type": "uint256"},
							{"name": "dstFee", "type": "uint256"},
							{"name": "data", "type": "bytes"}
						]
					}
				]
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// ERC20 ABI JSON for balanceOf and decimals
const erc20ABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	}
]`

var (
	twapABI  = mustParseABI("TWAP", twapABIJSON)
	lensABI  = mustParseABI("Lens", lensABIJSON)
	erc20ABI = mustParseABI("ERC20", erc20ABIJSON)
)

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("failed to parse " + name + " ABI: " + err.Error())
	}
	return parsed
}

// GetTWAPABI returns the parsed TWAP ABI
func GetTWAPABI() abi.ABI {
	return twapABI
}

// GetLensABI returns the parsed Lens ABI
func GetLensABI() abi.ABI {
	return lensABI
}

// GetERC20ABI returns the parsed ERC20 ABI
func GetERC20ABI() abi.ABI {
	return erc20ABI
}
