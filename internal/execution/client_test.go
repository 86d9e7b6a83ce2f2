package execution

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"solana-prepump-engine/internal/domain"
)

func decodeTradeRequest(t *testing.T, r *http.Request) tradeRequest {
	t.Helper()
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Fatalf("decode trade request: %v", err)
	}
	return req
}

func TestHTTPGateway_SubmitBuy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/api/trade" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-key") != "test-key" {
			t.Errorf("missing api key, got %q", r.URL.Query().Get("api-key"))
		}
		if r.Header.Get("Idempotency-Key") == "" {
			t.Error("missing idempotency key")
		}

		req := decodeTradeRequest(t, r)
		if req.Action != "buy" {
			t.Errorf("unexpected action: %s", req.Action)
		}
		if req.Mint != "TokenAAA" {
			t.Errorf("unexpected mint: %s", req.Mint)
		}
		if req.Amount != "0.25" {
			t.Errorf("unexpected amount: %s", req.Amount)
		}
		if req.DenominatedInSol != "true" {
			t.Errorf("buy must be denominated in sol, got %s", req.DenominatedInSol)
		}
		if req.Slippage != 2 {
			t.Errorf("unexpected slippage: %f", req.Slippage)
		}
		if req.Pool != "auto" {
			t.Errorf("unexpected pool: %s", req.Pool)
		}

		json.NewEncoder(w).Encode(tradeResponse{
			Signature:     "sig-buy-1",
			ExecutedPrice: 0.0000012,
			AmountOut:     208_333.3,
		})
	}))
	defer server.Close()

	gateway := NewHTTPGateway(server.URL, "test-key", nil)

	outcome, err := gateway.Submit(context.Background(), domain.TradeIntent{
		AssetAddress: "TokenAAA",
		Side:         domain.SideBuy,
		Amount:       0.25,
		SlippagePct:  2,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if outcome.TxRef != "sig-buy-1" {
		t.Errorf("unexpected tx ref: %s", outcome.TxRef)
	}
	if outcome.ExecutedPrice != 0.0000012 {
		t.Errorf("unexpected price: %f", outcome.ExecutedPrice)
	}
	if outcome.AmountOut != 208_333.3 {
		t.Errorf("unexpected amount out: %f", outcome.AmountOut)
	}
}

func TestHTTPGateway_SellAllLiquidatesBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeTradeRequest(t, r)
		if req.Action != "sell" {
			t.Errorf("unexpected action: %s", req.Action)
		}
		if req.Amount != "100%" {
			t.Errorf("zero sell amount must liquidate everything, got %s", req.Amount)
		}
		if req.DenominatedInSol != "false" {
			t.Errorf("sell must be denominated in tokens, got %s", req.DenominatedInSol)
		}
		json.NewEncoder(w).Encode(tradeResponse{Signature: "sig-sell-1"})
	}))
	defer server.Close()

	gateway := NewHTTPGateway(server.URL, "test-key", nil)

	outcome, err := gateway.Submit(context.Background(), domain.TradeIntent{
		AssetAddress: "TokenAAA",
		Side:         domain.SideSell,
		SlippagePct:  2,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if outcome.TxRef != "sig-sell-1" {
		t.Errorf("unexpected tx ref: %s", outcome.TxRef)
	}
}

func TestHTTPGateway_AmountRoundedToLamportPrecision(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeTradeRequest(t, r)
		if req.Amount != "0.123456789" {
			t.Errorf("expected 9 decimal places, got %s", req.Amount)
		}
		json.NewEncoder(w).Encode(tradeResponse{Signature: "sig-1"})
	}))
	defer server.Close()

	gateway := NewHTTPGateway(server.URL, "test-key", nil)

	_, err := gateway.Submit(context.Background(), domain.TradeIntent{
		AssetAddress: "TokenAAA",
		Side:         domain.SideBuy,
		Amount:       0.12345678949,
		SlippagePct:  2,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func TestHTTPGateway_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	var keys []string
	var keysMu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keysMu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		keysMu.Unlock()

		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(tradeResponse{Signature: "sig-after-retry"})
	}))
	defer server.Close()

	gateway := NewHTTPGateway(server.URL, "test-key", nil, WithRetryDelay(10*time.Millisecond))

	outcome, err := gateway.Submit(context.Background(), domain.TradeIntent{
		AssetAddress: "TokenAAA",
		Side:         domain.SideBuy,
		Amount:       0.1,
		SlippagePct:  2,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if outcome.TxRef != "sig-after-retry" {
		t.Errorf("unexpected tx ref: %s", outcome.TxRef)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}

	keysMu.Lock()
	defer keysMu.Unlock()
	for _, k := range keys {
		if k != keys[0] {
			t.Errorf("idempotency key changed across retries: %v", keys)
		}
	}
}

func TestHTTPGateway_RateLimitedFailsFast(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	gateway := NewHTTPGateway(server.URL, "test-key", nil, WithRetryDelay(10*time.Millisecond))

	_, err := gateway.Submit(context.Background(), domain.TradeIntent{
		AssetAddress: "TokenAAA",
		Side:         domain.SideBuy,
		Amount:       0.1,
		SlippagePct:  2,
	})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("rate limit must not be retried, got %d attempts", got)
	}
}

func TestHTTPGateway_RejectionNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("unknown mint"))
	}))
	defer server.Close()

	gateway := NewHTTPGateway(server.URL, "test-key", nil, WithRetryDelay(10*time.Millisecond))

	_, err := gateway.Submit(context.Background(), domain.TradeIntent{
		AssetAddress: "TokenAAA",
		Side:         domain.SideBuy,
		Amount:       0.1,
		SlippagePct:  2,
	})
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("expected ErrSubmission, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown mint") {
		t.Errorf("expected venue reason in error, got %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("rejection must not be retried, got %d attempts", got)
	}
}

func TestHTTPGateway_VenueErrorInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tradeResponse{Errors: "insufficient balance"})
	}))
	defer server.Close()

	gateway := NewHTTPGateway(server.URL, "test-key", nil)

	_, err := gateway.Submit(context.Background(), domain.TradeIntent{
		AssetAddress: "TokenAAA",
		Side:         domain.SideBuy,
		Amount:       0.1,
		SlippagePct:  2,
	})
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("expected ErrSubmission, got %v", err)
	}
	if !strings.Contains(err.Error(), "insufficient balance") {
		t.Errorf("expected venue reason in error, got %v", err)
	}
}

func TestHTTPGateway_RetryExhaustion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	gateway := NewHTTPGateway(server.URL, "test-key", nil,
		WithRetryDelay(10*time.Millisecond),
		WithMaxElapsed(100*time.Millisecond))

	_, err := gateway.Submit(context.Background(), domain.TradeIntent{
		AssetAddress: "TokenAAA",
		Side:         domain.SideBuy,
		Amount:       0.1,
		SlippagePct:  2,
	})
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("expected ErrSubmission after exhaustion, got %v", err)
	}
}

func TestHTTPGateway_ValidatesIntent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	gateway := NewHTTPGateway(server.URL, "test-key", nil)
	ctx := context.Background()

	bad := []domain.TradeIntent{
		{Side: domain.SideBuy, Amount: 0.1},
		{AssetAddress: "TokenAAA", Side: "HOLD", Amount: 0.1},
		{AssetAddress: "TokenAAA", Side: domain.SideBuy, Amount: -1},
		{AssetAddress: "TokenAAA", Side: domain.SideBuy, Amount: 0},
	}
	for _, intent := range bad {
		if _, err := gateway.Submit(ctx, intent); !errors.Is(err, ErrSubmission) {
			t.Errorf("expected ErrSubmission for %+v, got %v", intent, err)
		}
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("invalid intents must not reach the venue, got %d calls", got)
	}
}
