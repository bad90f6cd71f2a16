package twap

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// orderStatuses is the fixed order buckets are flattened in
var orderStatuses = []OrderStatus{OrderStatusOpen, OrderStatusCompleted, OrderStatusExpired, OrderStatusCanceled}

// ClassifyOrder derives the status of raw at time now. Canceled wins over
// everything, a full fill wins over expiry, and records missing their amount
// or deadline are kept Open rather than hidden.
func ClassifyOrder(raw RawOrder, now time.Time) OrderStatus {
	if raw.Canceled {
		return OrderStatusCanceled
	}
	if raw.Completed {
		return OrderStatusCompleted
	}
	if raw.SrcAmount == nil || raw.Deadline == 0 {
		return OrderStatusOpen
	}
	if raw.SrcFilledAmount != nil && raw.SrcFilledAmount.Cmp(raw.SrcAmount) >= 0 {
		return OrderStatusCompleted
	}
	if raw.Deadline < now.Unix() {
		return OrderStatusExpired
	}
	return OrderStatusOpen
}

// NewOrder classifies raw and fills in its display fields
func NewOrder(raw RawOrder, now time.Time) *Order {
	return &Order{
		RawOrder:      raw,
		Status:        ClassifyOrder(raw, now),
		IsMarketOrder: IsMarketOrderAmount(raw.DstMinAmount),
		TotalChunks:   totalChunks(raw.SrcAmount, raw.SrcBidAmount),
		Progress:      fillProgress(raw.SrcFilledAmount, raw.SrcAmount),
	}
}

// IsMarketOrderAmount reports whether dstMinAmount is the market order sentinel
func IsMarketOrderAmount(dstMinAmount *big.Int) bool {
	return dstMinAmount != nil && dstMinAmount.Cmp(MarketOrderDstMinAmount) == 0
}

func totalChunks(srcAmount, srcBidAmount *big.Int) int {
	if isZeroOrNil(srcAmount) || isZeroOrNil(srcBidAmount) {
		return 1
	}
	n := new(big.Int).Add(srcAmount, srcBidAmount)
	n.Sub(n, big.NewInt(1))
	n.Quo(n, srcBidAmount)
	return clampChunks(n)
}

func fillProgress(filled, total *big.Int) decimal.Decimal {
	if isZeroOrNil(total) || filled == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(filled, 0).Mul(hundred).DivRound(decimal.NewFromBigInt(total, 0), 2)
}

// SortOrders sorts orders most recent first. Equal timestamps keep their
// relative order.
func SortOrders(orders []*Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt > orders[j].CreatedAt
	})
}

// GroupOrdersByStatus buckets orders by status, keeping the input order within
// each bucket. It never produces an OrderStatusAll bucket.
func GroupOrdersByStatus(orders []*Order) map[OrderStatus][]*Order {
	grouped := make(map[OrderStatus][]*Order)
	for _, o := range orders {
		if o == nil || o.Status == OrderStatusAll {
			continue
		}
		grouped[o.Status] = append(grouped[o.Status], o)
	}
	return grouped
}

// FlattenGroups concatenates every bucket into one list
func FlattenGroups(grouped map[OrderStatus][]*Order) []*Order {
	var all []*Order
	for _, status := range orderStatuses {
		all = append(all, grouped[status]...)
	}
	return all
}

// SelectOrders returns the orders shown for a status tab. OrderStatusAll is
// the union of every bucket, most recent first.
func SelectOrders(grouped map[OrderStatus][]*Order, status OrderStatus) []*Order {
	if status != OrderStatusAll {
		return grouped[status]
	}
	all := FlattenGroups(grouped)
	SortOrders(all)
	return all
}

// FindOrderByID returns the order with the given id
func FindOrderByID(orders []*Order, id uint64) (*Order, bool) {
	for _, o := range orders {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// FindOrderByTxHash returns the order created by the given transaction
func FindOrderByTxHash(orders []*Order, txHash string) (*Order, bool) {
	if txHash == "" {
		return nil, false
	}
	for _, o := range orders {
		if EqIgnoreCase(o.TxHash, txHash) {
			return o, true
		}
	}
	return nil, false
}

// OrderExecutionPrice is the average dst received per src sold so far
func OrderExecutionPrice(order *Order, srcDecimals, dstDecimals uint8) (decimal.Decimal, bool) {
	if isZeroOrNil(order.SrcFilledAmount) || isZeroOrNil(order.DstFilledAmount) {
		return decimal.Zero, false
	}
	src := FromBaseUnit(order.SrcFilledAmount, srcDecimals)
	dst := FromBaseUnit(order.DstFilledAmount, dstDecimals)
	return dst.DivRound(src, divisionPrecision), true
}

// OrderLimitPrice is the worst dst per src each chunk accepts. Market orders
// have no limit price.
func OrderLimitPrice(order *Order, srcDecimals, dstDecimals uint8) (decimal.Decimal, bool) {
	if order.IsMarketOrder || isZeroOrNil(order.SrcBidAmount) || order.DstMinAmount == nil {
		return decimal.Zero, false
	}
	src := FromBaseUnit(order.SrcBidAmount, srcDecimals)
	dst := FromBaseUnit(order.DstMinAmount, dstDecimals)
	return dst.DivRound(src, divisionPrecision), true
}

// OrderFillDelay estimates the time between two chunk executions: the order's
// own fill delay plus the bidding window on both sides of it.
func OrderFillDelay(order *Order, cfg NetworkConfig) time.Duration {
	seconds := order.FillDelaySeconds + 2*cfg.BidDelaySeconds
	return time.Duration(seconds) * time.Second
}

// FillDelayText renders a delay as "1 day 2 hours 30 minutes"
func FillDelayText(d time.Duration) string {
	if d <= 0 {
		return "0"
	}

	days := int64(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int64(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int64(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := int64(d / time.Second)

	var parts []string
	for _, p := range []struct {
		n    int64
		unit string
	}{{days, "day"}, {hours, "hour"}, {minutes, "minute"}, {seconds, "second"}} {
		if p.n == 0 {
			continue
		}
		unit := p.unit
		if p.n > 1 {
			unit += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", p.n, unit))
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, " ")
}
