package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// serveRPC decodes each JSON-RPC request and hands it to the handler.
func serveRPC(t *testing.T, handler func(w http.ResponseWriter, req rpcRequest)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
			return
		}
		handler(w, req)
	}))
	t.Cleanup(server.Close)
	return server
}

func writeResult(w http.ResponseWriter, id uint64, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

func accountValue(owner, data string) map[string]any {
	return map[string]any{
		"lamports":   uint64(1_461_600),
		"owner":      owner,
		"data":       []string{data, "base64"},
		"executable": false,
		"rentEpoch":  uint64(371),
	}
}

func TestHTTPClient_GetSlot(t *testing.T) {
	server := serveRPC(t, func(w http.ResponseWriter, req rpcRequest) {
		if req.Method != "getSlot" {
			t.Errorf("method = %s, want getSlot", req.Method)
		}
		writeResult(w, req.ID, int64(287_431_055))
	})

	slot, err := NewHTTPClient(server.URL).GetSlot(context.Background())
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if slot != 287_431_055 {
		t.Errorf("slot = %d, want 287431055", slot)
	}
}

func TestHTTPClient_RetriesThrottling(t *testing.T) {
	var attempts atomic.Int32
	server := serveRPC(t, func(w http.ResponseWriter, req rpcRequest) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeResult(w, req.ID, int64(999))
	})

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(5*time.Millisecond),
	)

	slot, err := client.GetSlot(context.Background())
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if slot != 999 {
		t.Errorf("slot = %d, want 999", slot)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestHTTPClient_NodeErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := serveRPC(t, func(w http.ResponseWriter, req rpcRequest) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]any{"code": -32600, "message": "Invalid Request"},
		})
	})

	client := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond))

	_, err := client.GetSlot(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	rpcErr, ok := err.(*rpcError)
	if !ok {
		t.Fatalf("expected *rpcError, got %T: %v", err, err)
	}
	if rpcErr.Code != -32600 {
		t.Errorf("code = %d, want -32600", rpcErr.Code)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestHTTPClient_GetAccountInfo(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{0xde, 0xad, 0xbe, 0xef})
	server := serveRPC(t, func(w http.ResponseWriter, req rpcRequest) {
		if req.Method != "getAccountInfo" {
			t.Errorf("method = %s, want getAccountInfo", req.Method)
		}
		writeResult(w, req.ID, map[string]any{"value": accountValue(TokenProgramID, payload)})
	})

	info, err := NewHTTPClient(server.URL).GetAccountInfo(context.Background(), "SomeMint")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}
	if info == nil {
		t.Fatal("expected account info")
	}
	if info.Lamports != 1_461_600 {
		t.Errorf("lamports = %d, want 1461600", info.Lamports)
	}
	if info.Owner != TokenProgramID {
		t.Errorf("owner = %s, want %s", info.Owner, TokenProgramID)
	}
	if info.Data != payload {
		t.Errorf("data = %q, want %q", info.Data, payload)
	}
}

func TestHTTPClient_GetAccountInfo_Missing(t *testing.T) {
	server := serveRPC(t, func(w http.ResponseWriter, req rpcRequest) {
		writeResult(w, req.ID, map[string]any{"value": nil})
	})

	info, err := NewHTTPClient(server.URL).GetAccountInfo(context.Background(), "NoSuchAccount")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}
	if info != nil {
		t.Errorf("expected nil for a missing account, got %+v", info)
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := serveRPC(t, func(w http.ResponseWriter, req rpcRequest) {
		time.Sleep(100 * time.Millisecond)
		writeResult(w, req.ID, int64(1))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewHTTPClient(server.URL).GetSlot(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

// mintAccountData builds an SPL mint base layout for tests.
func mintAccountData(mintEnabled, freezeEnabled, initialized bool) []byte {
	data := make([]byte, mintAccountSize)
	if mintEnabled {
		binary.LittleEndian.PutUint32(data[mintAuthorityTagOffset:], 1)
	}
	binary.LittleEndian.PutUint64(data[mintSupplyOffset:], 1_000_000_000)
	data[mintDecimalsOffset] = 9
	if initialized {
		data[mintInitializedOffset] = 1
	}
	if freezeEnabled {
		binary.LittleEndian.PutUint32(data[freezeAuthorityOffset:], 1)
	}
	return data
}

func TestHTTPClient_GetAuthorityState(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString(mintAccountData(true, false, true))
	server := serveRPC(t, func(w http.ResponseWriter, req rpcRequest) {
		writeResult(w, req.ID, map[string]any{"value": accountValue(TokenProgramID, payload)})
	})

	state, err := NewHTTPClient(server.URL).GetAuthorityState(context.Background(), "SomeMint")
	if err != nil {
		t.Fatalf("GetAuthorityState: %v", err)
	}
	if !state.MintEnabled {
		t.Error("expected mint authority enabled")
	}
	if state.FreezeEnabled {
		t.Error("expected freeze authority disabled")
	}
}

func TestHTTPClient_GetAuthorityState_MissingAccount(t *testing.T) {
	server := serveRPC(t, func(w http.ResponseWriter, req rpcRequest) {
		writeResult(w, req.ID, map[string]any{"value": nil})
	})

	_, err := NewHTTPClient(server.URL).GetAuthorityState(context.Background(), "NoSuchMint")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestHTTPClient_GetAuthorityState_WrongOwner(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString(mintAccountData(false, false, true))
	server := serveRPC(t, func(w http.ResponseWriter, req rpcRequest) {
		writeResult(w, req.ID, map[string]any{"value": accountValue("11111111111111111111111111111111", payload)})
	})

	_, err := NewHTTPClient(server.URL).GetAuthorityState(context.Background(), "SystemAccount")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestParseMintAccount(t *testing.T) {
	account, err := parseMintAccount(mintAccountData(true, true, true))
	if err != nil {
		t.Fatalf("parseMintAccount: %v", err)
	}
	if !account.MintAuthorityEnabled || !account.FreezeAuthorityEnabled {
		t.Errorf("expected both authorities enabled, got %+v", account)
	}
	if account.Supply != 1_000_000_000 {
		t.Errorf("expected supply 1000000000, got %d", account.Supply)
	}
	if account.Decimals != 9 {
		t.Errorf("expected 9 decimals, got %d", account.Decimals)
	}

	account, err = parseMintAccount(mintAccountData(false, false, true))
	if err != nil {
		t.Fatalf("parseMintAccount: %v", err)
	}
	if account.MintAuthorityEnabled || account.FreezeAuthorityEnabled {
		t.Errorf("expected both authorities disabled, got %+v", account)
	}

	if _, err := parseMintAccount(make([]byte, 40)); err == nil {
		t.Error("expected error for short data")
	}

	if _, err := parseMintAccount(mintAccountData(false, false, false)); err == nil {
		t.Error("expected error for uninitialized mint")
	}
}

func TestParseMintAccount_Token2022Extensions(t *testing.T) {
	// Token-2022 appends extension data after the base layout.
	data := append(mintAccountData(false, true, true), make([]byte, 100)...)

	account, err := parseMintAccount(data)
	if err != nil {
		t.Fatalf("parseMintAccount: %v", err)
	}
	if account.MintAuthorityEnabled {
		t.Error("expected mint authority disabled")
	}
	if !account.FreezeAuthorityEnabled {
		t.Error("expected freeze authority enabled")
	}
}
