package twap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/kaifufi/twap-sdk-go/chain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultPollInterval    = 30 * time.Second
	DefaultPriceCacheTTL   = time.Minute
	DefaultMaxFetchRetries = 3
)

// Client is the main SDK client
type Client struct {
	network        NetworkConfig
	fetcher        OrderFetcher
	contractCaller *chain.ContractCaller
	prices         UsdPriceSource
	redis          *redis.Client
	overlay        *Overlay
	group          singleflight.Group
	fetchMu        sync.Mutex
	fetches        map[string]*sharedFetch
	maxRetries     int
	pollInterval   time.Duration
	wsEndpoint     string
	apiKey         string
	logger         *zap.Logger
	metrics        *Metrics
	now            func() time.Time
	newBackOff     func() backoff.BackOff
}

// ClientConfig holds configuration for creating a Client
type ClientConfig struct {
	ChainID ChainID `toml:"chain_id"`
	// IndexerHost is the base URL of the order indexer. When empty, orders are
	// read from the lens contract through RPCURL.
	IndexerHost string `toml:"indexer_host"`
	APIKey      string `toml:"api_key"`
	RPCURL      string `toml:"rpc_url"`
	WSEndpoint  string `toml:"ws_endpoint"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	PollInterval    Duration `toml:"poll_interval"`
	IndexerRPS      float64  `toml:"indexer_rps"`
	PriceCacheTTL   Duration `toml:"price_cache_ttl"`
	MaxFetchRetries int      `toml:"max_fetch_retries"`
	// MinChunkSizeUsd overrides the network's chunk floor when set.
	MinChunkSizeUsd string `toml:"min_chunk_size_usd"`

	LogLevel string `toml:"log_level"`
	LogJSON  bool   `toml:"log_json"`

	Fetcher           OrderFetcher          `toml:"-"`
	PriceSource       UsdPriceSource        `toml:"-"`
	PriceCache        PriceCache            `toml:"-"`
	Logger            *zap.Logger           `toml:"-"`
	MetricsRegisterer prometheus.Registerer `toml:"-"`
}

// NewClient creates a new TWAP SDK client
func NewClient(config ClientConfig) (*Client, error) {
	network, ok := DefaultNetworks[config.ChainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d (supported: %v)", ErrUnsupportedChain, config.ChainID, SupportedChainIDs)
	}

	if config.MinChunkSizeUsd != "" {
		floor, err := decimal.NewFromString(config.MinChunkSizeUsd)
		if err != nil || floor.IsNegative() {
			return nil, &InvalidParamError{Message: fmt.Sprintf("invalid min_chunk_size_usd: %q", config.MinChunkSizeUsd)}
		}
		network.MinChunkSizeUsd = floor
	}

	if config.PollInterval.Duration <= 0 {
		config.PollInterval.Duration = DefaultPollInterval
	}
	if config.PriceCacheTTL.Duration <= 0 {
		config.PriceCacheTTL.Duration = DefaultPriceCacheTTL
	}
	if config.MaxFetchRetries <= 0 {
		config.MaxFetchRetries = DefaultMaxFetchRetries
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		network:      network,
		overlay:      NewOverlay(),
		fetches:      make(map[string]*sharedFetch),
		maxRetries:   config.MaxFetchRetries,
		pollInterval: config.PollInterval.Duration,
		wsEndpoint:   config.WSEndpoint,
		apiKey:       config.APIKey,
		logger:       logger.With(zap.Int("chain_id", int(config.ChainID))),
		metrics:      NewMetrics(config.MetricsRegisterer),
		now:          time.Now,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}

	if config.RPCURL != "" {
		contractCaller, err := chain.NewContractCaller(config.RPCURL, network.LensAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to create contract caller: %w", err)
		}
		c.contractCaller = contractCaller
	}

	switch {
	case config.Fetcher != nil:
		c.fetcher = config.Fetcher
	case config.IndexerHost != "":
		c.fetcher = NewAPIClient(strings.TrimRight(config.IndexerHost, "/"), config.APIKey, config.ChainID, network.ExchangeAddress, config.IndexerRPS)
	case c.contractCaller != nil:
		c.fetcher = NewLensOrderFetcher(c.contractCaller)
	default:
		return nil, &InvalidParamError{Message: "one of indexer_host, rpc_url or Fetcher is required"}
	}

	if config.PriceSource != nil {
		cache := config.PriceCache
		if cache == nil && config.RedisAddr != "" {
			c.redis = redis.NewClient(&redis.Options{
				Addr:     config.RedisAddr,
				Password: config.RedisPassword,
				DB:       config.RedisDB,
			})
			cache = NewRedisPriceCache(c.redis, config.PriceCacheTTL.Duration)
		}
		if cache == nil {
			cache = NewMemoryPriceCache(config.PriceCacheTTL.Duration)
		}
		c.prices = NewCachedPriceSource(config.PriceSource, cache)
	}

	return c, nil
}

// Close closes the client and cleans up resources
func (c *Client) Close() {
	if c.contractCaller != nil {
		c.contractCaller.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
}

// Network returns the deployment and order policy the client uses
func (c *Client) Network() NetworkConfig {
	return c.network
}

// ChainID returns the chain the client is bound to
func (c *Client) ChainID() ChainID {
	return c.network.ChainID
}

// Overlay returns the client's local order overlay
func (c *Client) Overlay() *Overlay {
	return c.overlay
}

// DeriveOrderParams derives order parameters with the client's network policy
func (c *Client) DeriveOrderParams(draft OrderDraft, market MarketSnapshot) DerivedOrderParams {
	return DeriveOrderParams(c.network, draft, market, c.now())
}

// Validate returns the highest-priority warning with the client's network policy
func (c *Client) Validate(draft OrderDraft, derived DerivedOrderParams, market MarketSnapshot) Warning {
	return Validate(c.network, draft, derived, market)
}

// BuildSubmission builds the ask call with the client's network policy
func (c *Client) BuildSubmission(draft OrderDraft, derived DerivedOrderParams) (*Submission, error) {
	return BuildSubmission(c.network, draft, derived)
}

// GetUserOrders returns the account's orders merged with the local overlay,
// most recent first. Concurrent calls for the same account share one fetch.
// Fetches are retried; once retries run out the error wraps
// ErrOrdersUnavailable.
func (c *Client) GetUserOrders(ctx context.Context, account string) ([]*Order, error) {
	if strings.TrimSpace(account) == "" {
		return nil, &InvalidParamError{Message: "account is required"}
	}

	key := fmt.Sprintf("%d:%s", c.network.ChainID, normalizeHex(account))
	fetched, shared, err := c.joinFetch(ctx, key, account)
	if err != nil {
		return nil, err
	}

	orders := c.overlay.Merge(account, fetched, c.now())
	SortOrders(orders)

	c.metrics.pendingOrders.Set(float64(c.overlay.TotalPending()))
	c.logger.Debug("orders loaded",
		zap.String("account", account),
		zap.Int("fetched", len(fetched)),
		zap.Int("merged", len(orders)),
		zap.Bool("shared", shared),
	)
	return orders, nil
}

// sharedFetch scopes one in-flight fetch to the callers waiting on it. Its
// context is canceled only once every waiter has gone.
type sharedFetch struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// joinFetch waits for the shared fetch of key, starting one if needed. A
// caller whose ctx ends returns alone; the fetch keeps going for the others.
func (c *Client) joinFetch(ctx context.Context, key, account string) ([]RawOrder, bool, error) {
	c.fetchMu.Lock()
	f, ok := c.fetches[key]
	if !ok {
		fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &sharedFetch{ctx: fetchCtx, cancel: cancel}
		c.fetches[key] = f
	}
	f.waiters++
	c.fetchMu.Unlock()

	defer func() {
		c.fetchMu.Lock()
		defer c.fetchMu.Unlock()
		f.waiters--
		if f.waiters == 0 {
			f.cancel()
			delete(c.fetches, key)
			// Later callers must not join a call running on a canceled context.
			c.group.Forget(key)
		}
	}()

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-c.group.DoChan(key, func() (interface{}, error) {
		return c.fetchWithRetry(f.ctx, account)
	}):
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		return res.Val.([]RawOrder), res.Shared, nil
	}
}

func (c *Client) fetchWithRetry(ctx context.Context, account string) ([]RawOrder, error) {
	start := time.Now()
	attempt := 0

	var fetched []RawOrder
	operation := func() error {
		attempt++
		orders, err := c.fetcher.FetchOrders(ctx, account)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			var invalid *InvalidParamError
			if errors.As(err, &invalid) {
				return backoff.Permanent(err)
			}
			var indexerErr *IndexerError
			if errors.As(err, &indexerErr) && !indexerErr.Temporary() {
				return backoff.Permanent(err)
			}
			return err
		}
		fetched = orders
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		c.metrics.fetchRetries.Inc()
		c.logger.Warn("order fetch failed, retrying",
			zap.String("account", account),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	c.metrics.observeFetch(start, err)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var invalid *InvalidParamError
		if errors.As(err, &invalid) {
			return nil, err
		}
		c.logger.Error("order fetch gave up",
			zap.String("account", account),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrOrdersUnavailable, err)
	}
	return fetched, nil
}

// AddNewOrder records an order the account just submitted so it shows up
// before the order source reports it
func (c *Client) AddNewOrder(account string, raw RawOrder) {
	if raw.Maker == "" {
		raw.Maker = account
	}
	c.overlay.AddNewOrder(account, raw)
	c.metrics.pendingOrders.Set(float64(c.overlay.TotalPending()))
	c.logger.Info("order added to overlay",
		zap.String("account", account),
		zap.Uint64("order_id", raw.ID),
		zap.String("tx_hash", raw.TxHash),
	)
}

// AddSubmittedOrder records a submission the account sent in txHash
func (c *Client) AddSubmittedOrder(account string, orderID uint64, txHash string, submission *Submission, now time.Time) {
	c.AddNewOrder(account, submission.RawOrder(account, orderID, txHash, now))
}

// AddCancelledOrder records that the account canceled orderID; later reads
// report it as Canceled whatever the order source says
func (c *Client) AddCancelledOrder(account string, orderID uint64) {
	c.overlay.AddCancelledOrder(account, orderID)
	c.metrics.canceledOrders.Inc()
	c.logger.Info("order marked canceled",
		zap.String("account", account),
		zap.Uint64("order_id", orderID),
	)
}

// MarketSnapshot reads balances and USD prices for the pair in parallel.
// Reads that fail, or that have no backing source, are left nil.
func (c *Client) MarketSnapshot(ctx context.Context, account string, src, dst *Token, marketPrice *big.Int) MarketSnapshot {
	snapshot := MarketSnapshot{}
	if marketPrice != nil {
		snapshot.MarketPrice = new(big.Int).Set(marketPrice)
	}

	var g errgroup.Group
	g.SetLimit(4)

	if c.contractCaller != nil && common.IsHexAddress(account) {
		owner := common.HexToAddress(account)
		if src != nil {
			g.Go(func() error {
				snapshot.SrcBalance = c.tokenBalance(ctx, *src, owner)
				return nil
			})
		}
		if dst != nil {
			g.Go(func() error {
				snapshot.DstBalance = c.tokenBalance(ctx, *dst, owner)
				return nil
			})
		}
	}

	if c.prices != nil {
		if src != nil {
			g.Go(func() error {
				snapshot.SrcUsd1Token = c.usdPrice(ctx, *src)
				return nil
			})
		}
		if dst != nil {
			g.Go(func() error {
				snapshot.DstUsd1Token = c.usdPrice(ctx, *dst)
				return nil
			})
		}
	}

	_ = g.Wait()
	return snapshot
}

func (c *Client) tokenBalance(ctx context.Context, token Token, owner common.Address) *big.Int {
	balance, err := c.contractCaller.TokenBalance(ctx, common.HexToAddress(token.Address), owner)
	if err != nil {
		c.logger.Warn("balance read failed", zap.String("token", token.Address), zap.Error(err))
		return nil
	}
	return balance
}

func (c *Client) usdPrice(ctx context.Context, token Token) *decimal.Decimal {
	price, err := c.prices.UsdPrice(ctx, c.network.ChainID, token)
	if err != nil {
		c.logger.Warn("usd price read failed", zap.String("token", token.Address), zap.Error(err))
		return nil
	}
	return &price
}
