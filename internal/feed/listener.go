package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event types on the listing/trade stream.
const (
	EventCreate = "create"
	EventBuy    = "buy"
	EventSell   = "sell"
)

// Event is one message from the listing/trade stream.
type Event struct {
	Type       string
	Mint       string
	Trader     string
	Name       string
	Symbol     string
	SolAmount  float64
	Signature  string
	ReceivedAt int64 // receipt timestamp (ms), stamped locally
}

// ListenerConfig configures stream connection behavior.
type ListenerConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultListenerConfig returns default stream configuration.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Listener subscribes to the listing/trade WebSocket stream and delivers
// typed events. It reconnects with capped exponential backoff and replays
// its subscriptions after each reconnect.
type Listener struct {
	endpoint string
	config   ListenerConfig
	logger   *zap.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// events carries all decoded stream events. Blocking send ensures no
	// event loss; the buffer absorbs bursts.
	events chan Event

	// active stores subscription payloads for replay after reconnect
	active   []subscribeRequest
	activeMu sync.Mutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool

	now func() time.Time
}

// subscribeRequest is the wire format of a stream subscription.
type subscribeRequest struct {
	Method string   `json:"method"`
	Keys   []string `json:"keys,omitempty"`
}

// wireEvent is the wire format of a stream message.
type wireEvent struct {
	Signature       string  `json:"signature"`
	Mint            string  `json:"mint"`
	TraderPublicKey string  `json:"traderPublicKey"`
	TxType          string  `json:"txType"`
	Name            string  `json:"name"`
	Symbol          string  `json:"symbol"`
	SolAmount       float64 `json:"solAmount"`
	Message         string  `json:"message"` // server acks and notices
}

// NewListener creates a listener and connects to the endpoint.
func NewListener(ctx context.Context, endpoint string, config *ListenerConfig, logger *zap.Logger) (*Listener, error) {
	cfg := DefaultListenerConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Listener{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		events:   make(chan Event, 10000),
		done:     make(chan struct{}),
		now:      time.Now,
	}

	if err := l.connect(ctx); err != nil {
		return nil, err
	}

	l.wg.Add(1)
	go l.readLoop()

	l.wg.Add(1)
	go l.pingLoop()

	return l, nil
}

// connect establishes the WebSocket connection.
func (l *Listener) connect(ctx context.Context) error {
	l.connMu.Lock()
	defer l.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, l.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	l.conn = conn
	return nil
}

// Events returns the event channel. The channel is never closed; consumers
// stop through their own context.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// SubscribeNewListings subscribes to token creation events.
func (l *Listener) SubscribeNewListings(ctx context.Context) error {
	return l.subscribe(ctx, subscribeRequest{Method: "subscribeNewToken"})
}

// SubscribeTrades subscribes to trade events. With no mints given, the
// stream delivers trades for all tokens.
func (l *Listener) SubscribeTrades(ctx context.Context, mints ...string) error {
	return l.subscribe(ctx, subscribeRequest{Method: "subscribeTokenTrade", Keys: mints})
}

// subscribe sends the subscription and remembers it for replay.
func (l *Listener) subscribe(ctx context.Context, req subscribeRequest) error {
	if l.closed.Load() {
		return fmt.Errorf("listener closed")
	}

	if err := l.writeJSON(req); err != nil {
		return err
	}

	l.activeMu.Lock()
	l.active = append(l.active, req)
	l.activeMu.Unlock()

	return nil
}

// writeJSON sends one message under the connection lock.
func (l *Listener) writeJSON(v interface{}) error {
	l.connMu.Lock()
	defer l.connMu.Unlock()

	if l.conn == nil {
		return fmt.Errorf("not connected")
	}

	l.conn.SetWriteDeadline(time.Now().Add(l.config.WriteTimeout))
	if err := l.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the stream connection.
func (l *Listener) Close() error {
	if l.closed.Swap(true) {
		return nil // Already closed
	}

	close(l.done)

	l.connMu.Lock()
	if l.conn != nil {
		l.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		l.conn.Close()
	}
	l.connMu.Unlock()

	l.wg.Wait()
	return nil
}

// readLoop reads messages and dispatches events until closed.
func (l *Listener) readLoop() {
	defer l.wg.Done()

	reconnectDelay := l.config.ReconnectDelay

	for !l.closed.Load() {
		l.connMu.Lock()
		conn := l.conn
		l.connMu.Unlock()

		if conn == nil {
			select {
			case <-l.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(l.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if l.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !l.reconnecting.Swap(true) {
				l.logger.Warn("stream read failed, reconnecting",
					zap.Error(err),
					zap.Duration("delay", reconnectDelay))
				go l.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > l.config.MaxReconnectDelay {
				reconnectDelay = l.config.MaxReconnectDelay
			}

			select {
			case <-l.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = l.config.ReconnectDelay

		l.handleMessage(message)
	}
}

// reconnect attempts to reconnect and replay subscriptions.
func (l *Listener) reconnect(delay time.Duration) {
	defer l.reconnecting.Store(false)

	if l.closed.Load() {
		return
	}

	select {
	case <-l.done:
		return
	case <-time.After(delay):
	}

	l.connMu.Lock()
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
	l.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := l.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	l.resubscribeAll()
	l.logger.Info("stream reconnected")
}

// resubscribeAll replays every active subscription after reconnect.
func (l *Listener) resubscribeAll() {
	l.activeMu.Lock()
	subs := make([]subscribeRequest, len(l.active))
	copy(subs, l.active)
	l.activeMu.Unlock()

	for _, req := range subs {
		if err := l.writeJSON(req); err != nil {
			l.logger.Warn("resubscribe failed",
				zap.String("method", req.Method),
				zap.Error(err))
		}
	}
}

// handleMessage decodes one stream message and dispatches it.
func (l *Listener) handleMessage(message []byte) {
	var wire wireEvent
	if err := json.Unmarshal(message, &wire); err != nil {
		l.logger.Warn("undecodable stream message", zap.Error(err))
		return
	}

	if wire.TxType == "" {
		// Subscription acks and server notices carry no txType.
		return
	}

	event := Event{
		Type:       wire.TxType,
		Mint:       wire.Mint,
		Trader:     wire.TraderPublicKey,
		Name:       wire.Name,
		Symbol:     wire.Symbol,
		SolAmount:  wire.SolAmount,
		Signature:  wire.Signature,
		ReceivedAt: l.now().UnixMilli(),
	}

	// Block until we can send - never drop events
	select {
	case l.events <- event:
	case <-l.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (l *Listener) pingLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.connMu.Lock()
			if l.conn != nil {
				l.conn.SetWriteDeadline(time.Now().Add(l.config.WriteTimeout))
				if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			l.connMu.Unlock()
		}
	}
}
