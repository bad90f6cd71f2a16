package twap

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrdersUpdate is one poll result for a session
type OrdersUpdate struct {
	SessionID string
	Account   string
	Orders    []*Order
	Grouped   map[OrderStatus][]*Order
	// Err is set when the poll failed; Orders and Grouped are then empty.
	Err error
	At  time.Time
}

type pollSession struct {
	id      string
	account string
}

// OrderPoller keeps the order history of one account fresh. Polls run on a
// ticker and on demand, never overlap, and results of a previous session
// are discarded.
type OrderPoller struct {
	client   *Client
	interval time.Duration
	logger   *zap.Logger

	mu          sync.Mutex
	session     pollSession
	cancelFetch context.CancelFunc
	latest      *OrdersUpdate
	subscribers map[int]chan OrdersUpdate
	nextSubID   int

	refresh chan struct{}
}

// NewOrderPoller creates a poller over the client's order source. A zero
// interval uses the client's configured poll interval.
func (c *Client) NewOrderPoller(interval time.Duration) *OrderPoller {
	if interval <= 0 {
		interval = c.pollInterval
	}
	return &OrderPoller{
		client:      c,
		interval:    interval,
		logger:      c.logger.Named("poller"),
		subscribers: make(map[int]chan OrdersUpdate),
		refresh:     make(chan struct{}, 1),
	}
}

// SetSession switches the poller to account. Any in-flight fetch of the
// previous session is canceled and its result dropped. An empty account
// pauses polling. It returns the new session id.
func (p *OrderPoller) SetSession(account string) string {
	p.mu.Lock()
	if p.cancelFetch != nil {
		p.cancelFetch()
		p.cancelFetch = nil
	}
	p.session = pollSession{id: uuid.NewString(), account: account}
	p.latest = nil
	id := p.session.id
	p.mu.Unlock()

	p.logger.Info("session changed", zap.String("session_id", id), zap.String("account", account))
	p.Refresh()
	return id
}

// Refresh requests a poll as soon as the current one, if any, finishes
func (p *OrderPoller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Latest returns the last successful update of the current session
func (p *OrderPoller) Latest() (OrdersUpdate, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.latest == nil {
		return OrdersUpdate{}, false
	}
	return *p.latest, true
}

// Subscribe returns a channel receiving every update and a function that
// unsubscribes. A slow subscriber only sees the most recent update.
func (p *OrderPoller) Subscribe() (<-chan OrdersUpdate, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSubID
	p.nextSubID++
	ch := make(chan OrdersUpdate, 1)
	p.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subscribers, id)
			close(ch)
		})
	}
}

// Run polls until ctx is canceled
func (p *OrderPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-p.refresh:
		}
		p.poll(ctx)
	}
}

// HandleOrderEvent refreshes when event concerns the current session's account
func (p *OrderPoller) HandleOrderEvent(event OrderEvent) {
	p.mu.Lock()
	account := p.session.account
	p.mu.Unlock()

	if account == "" || !EqIgnoreCase(event.Maker, account) {
		return
	}
	if event.ChainID != 0 && event.ChainID != p.client.ChainID() {
		return
	}
	p.logger.Debug("order event", zap.String("type", string(event.Type)), zap.Uint64("order_id", event.OrderID))
	p.Refresh()
}

func (p *OrderPoller) poll(ctx context.Context) {
	p.mu.Lock()
	session := p.session
	if session.account == "" {
		p.mu.Unlock()
		return
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	p.cancelFetch = cancel
	p.mu.Unlock()
	defer cancel()

	orders, err := p.client.GetUserOrders(fetchCtx, session.account)

	p.mu.Lock()
	if p.session.id != session.id {
		p.mu.Unlock()
		p.client.metrics.staleResults.Inc()
		p.logger.Debug("discarding stale poll result", zap.String("session_id", session.id))
		return
	}
	p.cancelFetch = nil

	update := OrdersUpdate{
		SessionID: session.id,
		Account:   session.account,
		Err:       err,
		At:        p.client.now(),
	}
	if err == nil {
		update.Orders = orders
		update.Grouped = GroupOrdersByStatus(orders)
		latest := update
		p.latest = &latest
	} else {
		p.logger.Warn("poll failed", zap.String("account", session.account), zap.Error(err))
	}
	p.publish(update)
	p.mu.Unlock()
}

// publish must be called with p.mu held
func (p *OrderPoller) publish(update OrdersUpdate) {
	for _, ch := range p.subscribers {
		select {
		case ch <- update:
			continue
		default:
		}
		// Drop the stale update so the newest one fits.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- update:
		default:
		}
	}
}

// NewOrderEventStream creates a stream whose order events trigger poller
// refreshes. The caller starts it and subscribes the account.
func (c *Client) NewOrderEventStream(p *OrderPoller) *OrderStream {
	logger := c.logger.Named("stream")
	return NewOrderStream(StreamConfig{
		Endpoint:     c.wsEndpoint,
		APIKey:       c.apiKey,
		OnOrderEvent: p.HandleOrderEvent,
		OnError: func(err error) {
			logger.Warn("order event stream error", zap.Error(err))
		},
		OnConnect: func() {
			logger.Info("order event stream connected")
			p.Refresh()
		},
	})
}
