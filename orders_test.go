package twap

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawOrder(id uint64, createdAt int64) RawOrder {
	return RawOrder{
		ID:               id,
		Maker:            "0x00000000000000000000000000000000000000aa",
		SrcToken:         usdc.Address,
		DstToken:         weth.Address,
		SrcAmount:        big.NewInt(1_000_000_000),
		SrcFilledAmount:  new(big.Int),
		SrcBidAmount:     big.NewInt(250_000_000),
		DstMinAmount:     big.NewInt(100_000_000_000_000_000),
		DstFilledAmount:  new(big.Int),
		CreatedAt:        createdAt,
		Deadline:         testNow.Unix() + 3600,
		FillDelaySeconds: 120,
	}
}

func TestClassifyOrder(t *testing.T) {
	past := testNow.Unix() - 1

	tests := []struct {
		name   string
		mutate func(*RawOrder)
		want   OrderStatus
	}{
		{"open", func(*RawOrder) {}, OrderStatusOpen},
		{"expired unfilled", func(r *RawOrder) { r.Deadline = past }, OrderStatusExpired},
		{
			name: "filled beats expired",
			mutate: func(r *RawOrder) {
				r.Deadline = past
				r.SrcFilledAmount = big.NewInt(1_000_000_000)
			},
			want: OrderStatusCompleted,
		},
		{
			name: "canceled beats filled",
			mutate: func(r *RawOrder) {
				r.Canceled = true
				r.SrcFilledAmount = big.NewInt(1_000_000_000)
			},
			want: OrderStatusCanceled,
		},
		{"completed flag", func(r *RawOrder) { r.Completed = true; r.Deadline = past }, OrderStatusCompleted},
		{"canceled without amount", func(r *RawOrder) { r.Canceled = true; r.SrcAmount = nil }, OrderStatusCanceled},
		{"missing amount stays open", func(r *RawOrder) { r.SrcAmount = nil; r.Deadline = past }, OrderStatusOpen},
		{"missing deadline stays open", func(r *RawOrder) { r.Deadline = 0 }, OrderStatusOpen},
		{"deadline equal to now is open", func(r *RawOrder) { r.Deadline = testNow.Unix() }, OrderStatusOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawOrder(1, testNow.Unix())
			tt.mutate(&raw)

			got := ClassifyOrder(raw, testNow)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, ClassifyOrder(raw, testNow))
			assert.Equal(t, got, NewOrder(NewOrder(raw, testNow).RawOrder, testNow).Status)
		})
	}
}

func TestNewOrderDisplayFields(t *testing.T) {
	raw := rawOrder(1, testNow.Unix())
	raw.SrcFilledAmount = big.NewInt(500_000_000)
	raw.SrcBidAmount = big.NewInt(300_000_000)

	order := NewOrder(raw, testNow)
	assert.Equal(t, 4, order.TotalChunks)
	assertDecimal(t, "50", order.Progress)
	assert.False(t, order.IsMarketOrder)

	raw.DstMinAmount = big.NewInt(1)
	assert.True(t, NewOrder(raw, testNow).IsMarketOrder)

	raw.SrcBidAmount = nil
	assert.Equal(t, 1, NewOrder(raw, testNow).TotalChunks)
}

func TestGroupOrdersByStatus(t *testing.T) {
	open := NewOrder(rawOrder(1, 30), testNow)
	expiredRaw := rawOrder(2, 20)
	expiredRaw.Deadline = 10
	expired := NewOrder(expiredRaw, testNow)
	canceledRaw := rawOrder(3, 10)
	canceledRaw.Canceled = true
	canceled := NewOrder(canceledRaw, testNow)
	open2 := NewOrder(rawOrder(4, 40), testNow)

	grouped := GroupOrdersByStatus([]*Order{open, expired, canceled, open2, nil})

	assert.Equal(t, []*Order{open, open2}, grouped[OrderStatusOpen])
	assert.Equal(t, []*Order{expired}, grouped[OrderStatusExpired])
	assert.Equal(t, []*Order{canceled}, grouped[OrderStatusCanceled])
	assert.Empty(t, grouped[OrderStatusCompleted])
	assert.NotContains(t, grouped, OrderStatusAll)

	assert.Equal(t, grouped, GroupOrdersByStatus(FlattenGroups(grouped)))

	all := SelectOrders(grouped, OrderStatusAll)
	require.Len(t, all, 4)
	assert.Equal(t, []uint64{4, 1, 2, 3}, []uint64{all[0].ID, all[1].ID, all[2].ID, all[3].ID})
	assert.Equal(t, grouped[OrderStatusOpen], SelectOrders(grouped, OrderStatusOpen))
}

func TestSortOrdersIsStable(t *testing.T) {
	a := NewOrder(rawOrder(1, 10), testNow)
	b := NewOrder(rawOrder(2, 10), testNow)
	c := NewOrder(rawOrder(3, 20), testNow)

	orders := []*Order{a, b, c}
	SortOrders(orders)
	assert.Equal(t, []*Order{c, a, b}, orders)
}

func TestFindOrder(t *testing.T) {
	raw := rawOrder(9, 10)
	raw.TxHash = "0xABCDEF"
	orders := []*Order{NewOrder(rawOrder(1, 10), testNow), NewOrder(raw, testNow)}

	found, ok := FindOrderByID(orders, 9)
	require.True(t, ok)
	assert.Equal(t, uint64(9), found.ID)

	found, ok = FindOrderByTxHash(orders, "0xabcdef")
	require.True(t, ok)
	assert.Equal(t, uint64(9), found.ID)

	_, ok = FindOrderByTxHash(orders, "")
	assert.False(t, ok)
	_, ok = FindOrderByID(orders, 42)
	assert.False(t, ok)
}

func TestOrderPrices(t *testing.T) {
	raw := rawOrder(1, 10)
	order := NewOrder(raw, testNow)

	limit, ok := OrderLimitPrice(order, usdc.Decimals, weth.Decimals)
	require.True(t, ok)
	assertDecimal(t, "0.0004", limit)

	_, ok = OrderExecutionPrice(order, usdc.Decimals, weth.Decimals)
	assert.False(t, ok)

	raw.SrcFilledAmount = big.NewInt(500_000_000)
	raw.DstFilledAmount = big.NewInt(210_000_000_000_000_000)
	exec, ok := OrderExecutionPrice(NewOrder(raw, testNow), usdc.Decimals, weth.Decimals)
	require.True(t, ok)
	assertDecimal(t, "0.00042", exec)

	raw.DstMinAmount = big.NewInt(1)
	_, ok = OrderLimitPrice(NewOrder(raw, testNow), usdc.Decimals, weth.Decimals)
	assert.False(t, ok)
}

func TestOrderFillDelay(t *testing.T) {
	order := NewOrder(rawOrder(1, 10), testNow)
	delay := OrderFillDelay(order, testNetwork())
	assert.Equal(t, 4*time.Minute, delay)
	assert.Equal(t, "4 minutes", FillDelayText(delay))
}

func TestFillDelayText(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0"},
		{time.Hour, "1 hour"},
		{26*time.Hour + 30*time.Minute, "1 day 2 hours 30 minutes"},
		{90 * time.Second, "1 minute 30 seconds"},
		{500 * time.Millisecond, "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FillDelayText(tt.in))
	}
}
