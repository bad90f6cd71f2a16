package twap

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TimeUnit is a duration resolution expressed in milliseconds
type TimeUnit int64

const (
	Seconds TimeUnit = 1000
	Minutes TimeUnit = 60 * Seconds
	Hours   TimeUnit = 60 * Minutes
	Days    TimeUnit = 24 * Hours
	Weeks   TimeUnit = 7 * Days
)

// TimeDuration is a user-facing amount of time such as "5 Minutes"
type TimeDuration struct {
	Value float64  `toml:"value" json:"value"`
	Unit  TimeUnit `toml:"unit" json:"unit"`
}

// Millis returns the duration in milliseconds, truncated toward zero
func (d TimeDuration) Millis() int64 {
	if d.Value <= 0 || d.Unit <= 0 {
		return 0
	}
	return int64(d.Value * float64(d.Unit))
}

// Seconds returns the duration in whole seconds
func (d TimeDuration) Seconds() int64 {
	return d.Millis() / 1000
}

// IsZero reports whether the duration resolves to no time at all
func (d TimeDuration) IsZero() bool {
	return d.Millis() == 0
}

const (
	ZeroAddress = "0x0000000000000000000000000000000000000000"
	// NativeSentinelAddress is the alternate placeholder some dapps use for the native currency.
	NativeSentinelAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"
)

// Token describes an ERC20 token or the chain's native currency
type Token struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	LogoURL  string `json:"logoUrl,omitempty"`
}

// NewToken returns a token with its address checksum-normalized
func NewToken(address string, decimals uint8, symbol string) Token {
	if !IsNativeAddress(address) && common.IsHexAddress(address) {
		address = common.HexToAddress(address).Hex()
	}
	return Token{Address: address, Decimals: decimals, Symbol: symbol}
}

// IsNative reports whether the token is the chain's native currency
func (t Token) IsNative() bool {
	return IsNativeAddress(t.Address)
}

// Equal compares two tokens by address, ignoring case
func (t Token) Equal(other Token) bool {
	return EqIgnoreCase(t.Address, other.Address)
}

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "Open"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCanceled  OrderStatus = "Canceled"
	OrderStatusExpired   OrderStatus = "Expired"
	// OrderStatusAll is a UI aggregate and never a real order state.
	OrderStatusAll OrderStatus = "All"
)

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled || s == OrderStatusExpired
}

// MarketOrderDstMinAmount is the on-chain dstMinAmount that marks an order as
// a market order: no minimum output is enforced per chunk.
var MarketOrderDstMinAmount = big.NewInt(1)

// RawOrder is an order as reported by the indexer or the lens contract
type RawOrder struct {
	ID               uint64   `json:"id"`
	Maker            string   `json:"maker"`
	Exchange         string   `json:"exchange"`
	SrcToken         string   `json:"srcToken"`
	DstToken         string   `json:"dstToken"`
	SrcAmount        *big.Int `json:"srcAmount"`
	SrcFilledAmount  *big.Int `json:"srcFilledAmount"`
	SrcBidAmount     *big.Int `json:"srcBidAmount"`
	DstMinAmount     *big.Int `json:"dstMinAmount"`
	DstFilledAmount  *big.Int `json:"dstFilledAmount"`
	CreatedAt        int64    `json:"createdAt"`
	Deadline         int64    `json:"deadline"`
	FillDelaySeconds int64    `json:"fillDelay"`
	TxHash           string   `json:"txHash"`
	Canceled         bool     `json:"canceled"`
	Completed        bool     `json:"completed"`
}

// Order is a RawOrder with its classified status and display fields
type Order struct {
	RawOrder
	Status        OrderStatus
	IsMarketOrder bool
	// TotalChunks is the number of chunks the source amount is split into.
	TotalChunks int
	// Progress is the filled share of the source amount, in percent.
	Progress decimal.Decimal
}

// OrderDraft is the order form as the user fills it in
type OrderDraft struct {
	SrcToken               *Token
	DstToken               *Token
	TypedSrcAmount         string
	IsMarketOrder          bool
	TypedLimitPrice        *string
	IsInvertedPrice        bool
	SelectedPricePercent   *string
	Chunks                 int
	FillDelay              TimeDuration
	CustomFillDelayEnabled bool
	Duration               TimeDuration
}

// MarketSnapshot carries external market data. A nil field is not yet known,
// which is distinct from a known zero.
type MarketSnapshot struct {
	// MarketPrice is dst base units received for one whole src token.
	MarketPrice  *big.Int
	SrcUsd1Token *decimal.Decimal
	DstUsd1Token *decimal.Decimal
	SrcBalance   *big.Int
	DstBalance   *big.Int
}

// UnresolvedReason explains why order parameters could not be derived
type UnresolvedReason string

const (
	Resolved              UnresolvedReason = ""
	UnresolvedTokens      UnresolvedReason = "tokens not selected"
	UnresolvedAmount      UnresolvedReason = "source amount is zero"
	UnresolvedMarketPrice UnresolvedReason = "market price unknown"
	UnresolvedLimitPrice  UnresolvedReason = "limit price is zero"

	// UnresolvedDstMinAmount means the limit price buys less than one dst
	// base unit per chunk.
	UnresolvedDstMinAmount UnresolvedReason = "minimum output per chunk is zero"
)

// DerivedOrderParams are the order parameters computed from a draft
type DerivedOrderParams struct {
	SrcAmount            *big.Int
	Chunks               int
	SrcChunkAmount       *big.Int
	DstMinChunkAmountOut *big.Int
	// LimitPrice is dst base units per one whole src token; nil when unknown.
	LimitPrice       *big.Int
	LimitPriceUI     decimal.Decimal
	Deadline         int64
	FillDelaySeconds int64
	// MaxPossibleChunks is 0 while the USD floor cannot be evaluated.
	MaxPossibleChunks int
	IsMarketOrder     bool
	Unresolved        UnresolvedReason
}

// IsResolved reports whether every parameter needed for submission is known
func (p DerivedOrderParams) IsResolved() bool {
	return p.Unresolved == Resolved
}

// HasInterval reports whether the order executes over more than one chunk.
// Single-chunk orders have no fill interval and no chunk size to display.
func (p DerivedOrderParams) HasInterval() bool {
	return p.Chunks > 1
}

func normalizeHex(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}
