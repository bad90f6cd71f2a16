package twap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// OrderFetcher returns the full order history of an account. Implementations
// must honour ctx cancellation.
type OrderFetcher interface {
	FetchOrders(ctx context.Context, account string) ([]RawOrder, error)
}

// APIClient handles HTTP requests to the TWAP order indexer
type APIClient struct {
	host     string
	apiKey   string
	chainID  ChainID
	exchange string
	client   *http.Client
	limiter  *rate.Limiter
}

// ordersResponse is the indexer envelope for an order list
type ordersResponse struct {
	Code   int        `json:"code"`
	Msg    string     `json:"msg"`
	Result []RawOrder `json:"result"`
}

// NewAPIClient creates a new API client. requestsPerSecond <= 0 disables rate limiting.
func NewAPIClient(host, apiKey string, chainID ChainID, exchange string, requestsPerSecond float64) *APIClient {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &APIClient{
		host:     host,
		apiKey:   apiKey,
		chainID:  chainID,
		exchange: exchange,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// doRequest performs a rate-limited HTTP GET
func (c *APIClient) doRequest(ctx context.Context, endpoint string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build indexer request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer request %s: %w", endpoint, err)
	}

	return resp, nil
}

// decodeResponse decodes a 200 JSON body into result. Any other status
// becomes an *IndexerError carrying the body.
func decodeResponse(resp *http.Response, result interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read indexer response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := bodySnippet(body)
		if msg == "" {
			msg = resp.Status
		}
		return &IndexerError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode indexer response: %w (body: %s)", err, bodySnippet(body))
	}
	return nil
}

func bodySnippet(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

// FetchOrders fetches every order the account created on this chain and exchange
func (c *APIClient) FetchOrders(ctx context.Context, account string) ([]RawOrder, error) {
	query := url.Values{}
	query.Set("chainId", fmt.Sprintf("%d", c.chainID))
	query.Set("maker", normalizeHex(account))
	if c.exchange != "" {
		query.Set("exchange", normalizeHex(c.exchange))
	}

	resp, err := c.doRequest(ctx, "/orders?"+query.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result ordersResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("indexer error %d: %s", result.Code, result.Msg)
	}

	return result.Result, nil
}
