package twap

import (
	"sync"
	"time"
)

// Overlay remembers orders this process submitted or canceled so reads stay
// correct until the indexer catches up. It holds no I/O and lives only as
// long as the process.
type Overlay struct {
	mu       sync.RWMutex
	accounts map[string]*accountOverlay
}

type accountOverlay struct {
	pending   []RawOrder
	byTxHash  map[string]int
	cancelled map[uint64]struct{}
}

// NewOverlay creates an empty overlay
func NewOverlay() *Overlay {
	return &Overlay{accounts: make(map[string]*accountOverlay)}
}

func (o *Overlay) account(account string) *accountOverlay {
	key := normalizeHex(account)
	acc, ok := o.accounts[key]
	if !ok {
		acc = &accountOverlay{
			byTxHash:  make(map[string]int),
			cancelled: make(map[uint64]struct{}),
		}
		o.accounts[key] = acc
	}
	return acc
}

// AddNewOrder records an order the account just submitted. Re-adding the
// same transaction replaces the earlier record.
func (o *Overlay) AddNewOrder(account string, raw RawOrder) {
	o.mu.Lock()
	defer o.mu.Unlock()

	acc := o.account(account)
	if raw.TxHash != "" {
		key := normalizeHex(raw.TxHash)
		if idx, ok := acc.byTxHash[key]; ok {
			acc.pending[idx] = raw
			return
		}
		acc.byTxHash[key] = len(acc.pending)
	}
	acc.pending = append(acc.pending, raw)
}

// AddCancelledOrder records that the account canceled orderID. The id stays
// canceled for the rest of the process lifetime.
func (o *Overlay) AddCancelledOrder(account string, orderID uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.account(account).cancelled[orderID] = struct{}{}
}

// IsCancelled reports whether the account canceled orderID in this process
func (o *Overlay) IsCancelled(account string, orderID uint64) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	acc, ok := o.accounts[normalizeHex(account)]
	if !ok {
		return false
	}
	_, cancelled := acc.cancelled[orderID]
	return cancelled
}

// PendingCount returns how many submitted orders the indexer has not yet returned
func (o *Overlay) PendingCount(account string) int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	acc, ok := o.accounts[normalizeHex(account)]
	if !ok {
		return 0
	}
	return len(acc.pending)
}

// TotalPending returns the pending count summed over every account
func (o *Overlay) TotalPending() int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	total := 0
	for _, acc := range o.accounts {
		total += len(acc.pending)
	}
	return total
}

// Merge combines a fetched snapshot with the account's local records:
// submitted orders missing from fetched are prepended, and canceled ids are
// forced to OrderStatusCanceled. Submitted orders the indexer now returns are
// dropped from the overlay.
func (o *Overlay) Merge(account string, fetched []RawOrder, now time.Time) []*Order {
	o.mu.Lock()
	defer o.mu.Unlock()

	acc, ok := o.accounts[normalizeHex(account)]
	if !ok {
		orders := make([]*Order, 0, len(fetched))
		for _, raw := range fetched {
			orders = append(orders, NewOrder(raw, now))
		}
		return orders
	}

	fetchedIDs := make(map[uint64]struct{}, len(fetched))
	fetchedTx := make(map[string]struct{}, len(fetched))
	for _, raw := range fetched {
		fetchedIDs[raw.ID] = struct{}{}
		if raw.TxHash != "" {
			fetchedTx[normalizeHex(raw.TxHash)] = struct{}{}
		}
	}

	var stillPending []RawOrder
	for _, raw := range acc.pending {
		if _, ok := fetchedTx[normalizeHex(raw.TxHash)]; ok && raw.TxHash != "" {
			continue
		}
		if _, ok := fetchedIDs[raw.ID]; ok && raw.ID != 0 {
			continue
		}
		stillPending = append(stillPending, raw)
	}
	acc.pending = stillPending
	acc.byTxHash = make(map[string]int, len(stillPending))
	for i, raw := range stillPending {
		if raw.TxHash != "" {
			acc.byTxHash[normalizeHex(raw.TxHash)] = i
		}
	}

	orders := make([]*Order, 0, len(stillPending)+len(fetched))
	for _, raw := range stillPending {
		order := NewOrder(raw, now)
		// Id 0 on a tracked transaction means the id is not known yet.
		if raw.ID == 0 && raw.TxHash != "" {
			orders = append(orders, order)
			continue
		}
		orders = append(orders, acc.apply(order))
	}
	for _, raw := range fetched {
		orders = append(orders, acc.apply(NewOrder(raw, now)))
	}
	return orders
}

func (acc *accountOverlay) apply(order *Order) *Order {
	if _, ok := acc.cancelled[order.ID]; ok {
		order.Status = OrderStatusCanceled
	}
	return order
}
