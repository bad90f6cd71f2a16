package twap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

const (
	HeartbeatInterval = 30 * time.Second

	DefaultReconnectInterval    = 5 * time.Second
	DefaultMaxReconnectAttempts = 10
)

// Stream actions
const (
	ActionHeartbeat   = "HEARTBEAT"
	ActionSubscribe   = "SUBSCRIBE"
	ActionUnsubscribe = "UNSUBSCRIBE"
)

// ChannelOrderEvents carries lifecycle events of a maker's orders
const ChannelOrderEvents = "twap.order.events"

// OrderEventType is the kind of change an OrderEvent reports
type OrderEventType string

const (
	OrderEventCreated  OrderEventType = "created"
	OrderEventFilled   OrderEventType = "filled"
	OrderEventCanceled OrderEventType = "canceled"
)

// SubscribeOrdersMessage subscribes to or unsubscribes from a maker's order events
type SubscribeOrdersMessage struct {
	Action  string  `json:"action"`
	Channel string  `json:"channel"`
	ChainID ChainID `json:"chainId"`
	Maker   string  `json:"maker"`
}

// HeartbeatMessage keeps the connection open
type HeartbeatMessage struct {
	Action string `json:"action"`
}

// OrderEvent is an order lifecycle notification pushed by the indexer
type OrderEvent struct {
	Type    OrderEventType `json:"type"`
	Channel string         `json:"channel"`
	ChainID ChainID        `json:"chainId"`
	Maker   string         `json:"maker"`
	OrderID uint64         `json:"orderId"`
	TxHash  string         `json:"txHash"`
}

// StreamConfig configures an OrderStream. Callbacks run on the stream's
// goroutine and must not block.
type StreamConfig struct {
	Endpoint             string
	APIKey               string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int

	OnOrderEvent func(event OrderEvent)
	// OnRaw receives every frame before it is decoded.
	OnRaw        func(data []byte)
	OnError      func(err error)
	OnConnect    func()
	OnDisconnect func()
}

// OrderStream follows order events over a WebSocket. Subscriptions are
// replayed on every reconnect.
type OrderStream struct {
	cfg StreamConfig

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   map[string]SubscribeOrdersMessage
	cancel context.CancelFunc
	done   chan struct{}

	// gorilla/websocket allows one writer at a time.
	writeMu sync.Mutex
}

// NewOrderStream creates a stream; call Start to connect
func NewOrderStream(cfg StreamConfig) *OrderStream {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	return &OrderStream{
		cfg:  cfg,
		subs: make(map[string]SubscribeOrdersMessage),
	}
}

// Start dials the endpoint and keeps the stream alive until ctx is canceled,
// Stop is called or reconnecting gives up
func (s *OrderStream) Start(ctx context.Context) error {
	if s.cfg.Endpoint == "" {
		return &InvalidParamError{Message: "websocket endpoint is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("order stream already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	conn, err := s.dial(ctx)
	if err != nil {
		cancel()
		return err
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, conn, s.done)
	return nil
}

// Stop closes the stream and waits for its goroutine to exit
func (s *OrderStream) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Connected reports whether a connection is currently open
func (s *OrderStream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func subscriptionKey(chainID ChainID, maker string) string {
	return fmt.Sprintf("%s:%d:%s", ChannelOrderEvents, chainID, normalizeHex(maker))
}

// SubscribeOrders follows order events of maker on chainID. While
// disconnected the subscription is only recorded and sent on connect.
func (s *OrderStream) SubscribeOrders(chainID ChainID, maker string) error {
	msg := SubscribeOrdersMessage{
		Action:  ActionSubscribe,
		Channel: ChannelOrderEvents,
		ChainID: chainID,
		Maker:   normalizeHex(maker),
	}

	s.mu.Lock()
	s.subs[subscriptionKey(chainID, maker)] = msg
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return s.write(conn, msg)
}

// UnsubscribeOrders stops following maker on chainID
func (s *OrderStream) UnsubscribeOrders(chainID ChainID, maker string) error {
	s.mu.Lock()
	delete(s.subs, subscriptionKey(chainID, maker))
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return s.write(conn, SubscribeOrdersMessage{
		Action:  ActionUnsubscribe,
		Channel: ChannelOrderEvents,
		ChainID: chainID,
		Maker:   normalizeHex(maker),
	})
}

// Subscriptions returns the recorded subscription keys, sorted
func (s *OrderStream) Subscriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.subs))
	for key := range s.subs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *OrderStream) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(s.cfg.Endpoint)
	if err != nil {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid websocket endpoint %q: %v", s.cfg.Endpoint, err)}
	}
	if s.cfg.APIKey != "" {
		q := u.Query()
		q.Set("apikey", s.cfg.APIKey)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial order stream: %w", err)
	}
	return conn, nil
}

func (s *OrderStream) run(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		s.serve(ctx, conn)
		if ctx.Err() != nil {
			return
		}

		var err error
		conn, err = s.reconnect(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.reportError(err)
			}
			return
		}
	}
}

// serve owns conn until it fails or ctx is canceled
func (s *OrderStream) serve(ctx context.Context, conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	pending := make([]SubscribeOrdersMessage, 0, len(s.subs))
	for _, msg := range s.subs {
		pending = append(pending, msg)
	}
	s.mu.Unlock()

	connCtx, stop := context.WithCancel(ctx)
	go func() {
		// Closing the socket unblocks ReadMessage.
		<-connCtx.Done()
		_ = conn.Close()
	}()
	go s.heartbeat(connCtx, conn)

	for _, msg := range pending {
		if err := s.write(conn, msg); err != nil {
			s.reportError(fmt.Errorf("resubscribe %s: %w", msg.Maker, err))
		}
	}
	if s.cfg.OnConnect != nil {
		s.cfg.OnConnect()
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.reportError(fmt.Errorf("read order stream: %w", err))
			}
			break
		}
		s.dispatch(data)
	}

	stop()
	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()

	if s.cfg.OnDisconnect != nil {
		s.cfg.OnDisconnect()
	}
}

func (s *OrderStream) reconnect(ctx context.Context) (*websocket.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.cfg.ReconnectInterval):
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.ReconnectInterval
	policy.MaxElapsedTime = 0

	attempt := 0
	var conn *websocket.Conn
	err := backoff.RetryNotify(func() error {
		attempt++
		c, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.cfg.MaxReconnectAttempts-1)), ctx), func(err error, wait time.Duration) {
		s.reportError(fmt.Errorf("reconnect attempt %d failed, retrying in %s: %w", attempt, wait, err))
	})
	if err != nil {
		return nil, fmt.Errorf("order stream gave up after %d attempts: %w", attempt, err)
	}
	return conn, nil
}

func (s *OrderStream) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.write(conn, HeartbeatMessage{Action: ActionHeartbeat}); err != nil {
				s.reportError(fmt.Errorf("heartbeat: %w", err))
			}
		}
	}
}

func (s *OrderStream) write(conn *websocket.Conn, msg interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write order stream: %w", err)
	}
	return nil
}

func (s *OrderStream) dispatch(data []byte) {
	if s.cfg.OnRaw != nil {
		s.cfg.OnRaw(data)
	}
	if s.cfg.OnOrderEvent == nil {
		return
	}

	event, ok, err := decodeOrderEvent(data)
	if err != nil {
		s.reportError(err)
		return
	}
	if ok {
		s.cfg.OnOrderEvent(event)
	}
}

// decodeOrderEvent parses data as an order event. Heartbeat replies and
// messages of other channels are skipped.
func decodeOrderEvent(data []byte) (OrderEvent, bool, error) {
	var event OrderEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return OrderEvent{}, false, fmt.Errorf("decode order event: %w", err)
	}
	if event.Channel != ChannelOrderEvents || event.Type == "" {
		return OrderEvent{}, false, nil
	}
	return event, true, nil
}

func (s *OrderStream) reportError(err error) {
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
}
