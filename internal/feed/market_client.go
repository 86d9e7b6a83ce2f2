package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"solana-prepump-engine/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
)

// MarketClient fetches token metrics from the market-data HTTP API.
type MarketClient struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
	now        func() time.Time
}

// MarketOption configures MarketClient.
type MarketOption func(*MarketClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) MarketOption {
	return func(c *MarketClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) MarketOption {
	return func(c *MarketClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) MarketOption {
	return func(c *MarketClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) MarketOption {
	return func(c *MarketClient) {
		c.client = client
	}
}

// NewMarketClient creates a new market-data client.
func NewMarketClient(baseURL string, opts ...MarketOption) *MarketClient {
	c := &MarketClient{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Source = (*MarketClient)(nil)

// metricsResponse is the wire format of the token metrics endpoint.
type metricsResponse struct {
	Address         string  `json:"address"`
	TimestampMs     int64   `json:"timestampMs"`
	Price           float64 `json:"price"`
	MarketCap       float64 `json:"marketCap"`
	Liquidity       float64 `json:"liquidity"`
	HolderCount     int64   `json:"holderCount"`
	Volume5m        float64 `json:"volume5m"`
	Volume1h        float64 `json:"volume1h"`
	Buys5m          int64   `json:"buys5m"`
	Sells5m         int64   `json:"sells5m"`
	Buys20m         int64   `json:"buys20m"`
	Sells20m        int64   `json:"sells20m"`
	UniqueBuyers20m int64   `json:"uniqueBuyers20m"`
	Top10Ratio      float64 `json:"top10Ratio"`
}

// priceResponse is the wire format of the price endpoint.
type priceResponse struct {
	Price float64 `json:"price"`
}

// GetSnapshot fetches the current metrics for an asset.
// The smart-wallet count is not part of market data; the composite source
// fills it in.
func (c *MarketClient) GetSnapshot(ctx context.Context, asset string) (*domain.MetricSnapshot, error) {
	var wire metricsResponse
	if err := c.get(ctx, fmt.Sprintf("%s/tokens/%s/metrics", c.baseURL, asset), &wire); err != nil {
		return nil, err
	}

	timestampMs := wire.TimestampMs
	if timestampMs == 0 {
		timestampMs = c.now().UnixMilli()
	}

	return &domain.MetricSnapshot{
		AssetAddress:    asset,
		TimestampMs:     timestampMs,
		Price:           wire.Price,
		MarketCap:       wire.MarketCap,
		Liquidity:       wire.Liquidity,
		HolderCount:     wire.HolderCount,
		Volume5m:        wire.Volume5m,
		Volume1h:        wire.Volume1h,
		Buys5m:          wire.Buys5m,
		Sells5m:         wire.Sells5m,
		Buys20m:         wire.Buys20m,
		Sells20m:        wire.Sells20m,
		UniqueBuyers20m: wire.UniqueBuyers20m,
		Top10Ratio:      wire.Top10Ratio,
	}, nil
}

// GetPrice fetches only the current price for an asset.
func (c *MarketClient) GetPrice(ctx context.Context, asset string) (float64, error) {
	var wire priceResponse
	if err := c.get(ctx, fmt.Sprintf("%s/tokens/%s/price", c.baseURL, asset), &wire); err != nil {
		return 0, err
	}
	return wire.Price, nil
}

// get performs a GET with retries and exponential backoff. A 429 and a 404
// return immediately; transport failures and 5xx responses are retried.
func (c *MarketClient) get(ctx context.Context, url string, result interface{}) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return ErrRateLimited
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrUnavailable, url)
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server status %d", resp.StatusCode)
			continue
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}

		return nil
	}

	return fmt.Errorf("%w: max retries exceeded: %v", ErrUnavailable, lastErr)
}
