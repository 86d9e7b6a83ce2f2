package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-prepump-engine/internal/domain"
)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxElapsed bounds the whole retry sequence for one trade.
	DefaultMaxElapsed = 15 * time.Second

	// DefaultRetryDelay is the initial backoff interval.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultPriorityFee is the tip attached to every trade, in SOL.
	DefaultPriorityFee = 0.0001

	// DefaultPool lets the venue route to whichever pool has the best
	// liquidity for the mint.
	DefaultPool = "auto"

	// amountPrecision rounds order amounts to lamport precision so the
	// wire never carries float artifacts.
	amountPrecision = 9
)

// HTTPGateway submits trades to an HTTP trade API. Submissions are
// serialized: one trade is in flight at a time.
type HTTPGateway struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	logger      *zap.Logger
	maxElapsed  time.Duration
	retryDelay  time.Duration
	priorityFee float64
	pool        string

	mu sync.Mutex
}

// GatewayOption configures the HTTPGateway.
type GatewayOption func(*HTTPGateway)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) GatewayOption {
	return func(g *HTTPGateway) {
		g.client.Timeout = timeout
	}
}

// WithMaxElapsed bounds the retry sequence for one submission.
func WithMaxElapsed(d time.Duration) GatewayOption {
	return func(g *HTTPGateway) {
		g.maxElapsed = d
	}
}

// WithRetryDelay sets the initial backoff interval.
func WithRetryDelay(d time.Duration) GatewayOption {
	return func(g *HTTPGateway) {
		g.retryDelay = d
	}
}

// WithPriorityFee sets the tip attached to every trade, in SOL.
func WithPriorityFee(fee float64) GatewayOption {
	return func(g *HTTPGateway) {
		g.priorityFee = fee
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *HTTPGateway) {
		g.client = client
	}
}

// NewHTTPGateway creates a gateway for the trade API at baseURL. The
// API key is passed per request; a nil logger disables logging.
func NewHTTPGateway(baseURL, apiKey string, logger *zap.Logger, opts ...GatewayOption) *HTTPGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &HTTPGateway{
		baseURL:     baseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		logger:      logger.Named("gateway"),
		maxElapsed:  DefaultMaxElapsed,
		retryDelay:  DefaultRetryDelay,
		priorityFee: DefaultPriorityFee,
		pool:        DefaultPool,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ Gateway = (*HTTPGateway)(nil)

// tradeRequest is the wire format of a trade submission.
type tradeRequest struct {
	Action           string  `json:"action"`
	Mint             string  `json:"mint"`
	Amount           string  `json:"amount"`
	DenominatedInSol string  `json:"denominatedInSol"`
	Slippage         float64 `json:"slippage"`
	PriorityFee      float64 `json:"priorityFee"`
	Pool             string  `json:"pool"`
}

// tradeResponse is the wire format of a trade confirmation. A missing
// signature with a populated errors field is a venue rejection.
type tradeResponse struct {
	Signature     string  `json:"signature"`
	ExecutedPrice float64 `json:"executedPrice"`
	AmountOut     float64 `json:"amountOut"`
	Errors        string  `json:"errors"`
}

// Submit executes the intent against the trade API. Server errors are
// retried with exponential backoff; rejections and rate limits are
// surfaced immediately.
func (g *HTTPGateway) Submit(ctx context.Context, intent domain.TradeIntent) (*domain.TradeOutcome, error) {
	if err := validateIntent(intent); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	body, err := json.Marshal(buildRequest(intent, g.priorityFee, g.pool))
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrSubmission, err)
	}

	// One idempotency key per submission, held across retries.
	idempotencyKey := uuid.New().String()

	g.logger.Info("submitting trade",
		zap.String("asset", intent.AssetAddress),
		zap.String("side", intent.Side.String()),
		zap.Float64("amount", intent.Amount))

	var outcome *domain.TradeOutcome
	operation := func() error {
		out, err := g.post(ctx, body, idempotencyKey)
		if err != nil {
			return err
		}
		outcome = out
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.retryDelay
	bo.MaxElapsedTime = g.maxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		switch {
		case errors.Is(err, ErrRateLimited), errors.Is(err, ErrSubmission):
			return nil, err
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: retries exhausted: %v", ErrSubmission, err)
		}
	}

	g.logger.Info("trade confirmed",
		zap.String("asset", intent.AssetAddress),
		zap.String("side", intent.Side.String()),
		zap.String("tx", outcome.TxRef))

	return outcome, nil
}

func validateIntent(intent domain.TradeIntent) error {
	if intent.AssetAddress == "" {
		return fmt.Errorf("%w: empty asset address", ErrSubmission)
	}
	if !intent.Side.IsValid() {
		return fmt.Errorf("%w: invalid side %q", ErrSubmission, intent.Side)
	}
	if intent.Amount < 0 {
		return fmt.Errorf("%w: negative amount", ErrSubmission)
	}
	if intent.Side == domain.SideBuy && intent.Amount == 0 {
		return fmt.Errorf("%w: zero buy amount", ErrSubmission)
	}
	return nil
}

// buildRequest maps the intent onto the wire format. Buys are
// denominated in the quote currency, sells in tokens; a zero sell
// amount liquidates the whole balance.
func buildRequest(intent domain.TradeIntent, priorityFee float64, pool string) tradeRequest {
	req := tradeRequest{
		Mint:        intent.AssetAddress,
		Slippage:    intent.SlippagePct,
		PriorityFee: priorityFee,
		Pool:        pool,
	}

	switch intent.Side {
	case domain.SideBuy:
		req.Action = "buy"
		req.DenominatedInSol = "true"
		req.Amount = formatAmount(intent.Amount)
	case domain.SideSell:
		req.Action = "sell"
		req.DenominatedInSol = "false"
		if intent.Amount == 0 {
			req.Amount = "100%"
		} else {
			req.Amount = formatAmount(intent.Amount)
		}
	}
	return req
}

func formatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).Round(amountPrecision).String()
}

// post performs one submission attempt. Retryable failures return a
// plain error; rejections and rate limits come back wrapped in
// backoff.Permanent so the retry loop stops.
func (g *HTTPGateway) post(ctx context.Context, body []byte, idempotencyKey string) (*domain.TradeOutcome, error) {
	url := fmt.Sprintf("%s/api/trade?api-key=%s", g.baseURL, g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: build request: %v", ErrSubmission, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("trade request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, backoff.Permanent(fmt.Errorf("%w: status 429", ErrRateLimited))
	case resp.StatusCode >= 500:
		g.logger.Warn("trade endpoint error", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("server error: status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrSubmission, resp.StatusCode, payload))
	}

	var tr tradeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if tr.Signature == "" {
		reason := tr.Errors
		if reason == "" {
			reason = "no signature returned"
		}
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrSubmission, reason))
	}

	return &domain.TradeOutcome{
		TxRef:         tr.Signature,
		ExecutedPrice: tr.ExecutedPrice,
		AmountOut:     tr.AmountOut,
	}, nil
}
