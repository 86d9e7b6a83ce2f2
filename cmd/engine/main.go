// Package main runs the live engine: stream discovery, the periodic
// scoring cycle and the TP/SL position monitor in one process.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"solana-prepump-engine/internal/alpha"
	"solana-prepump-engine/internal/breaker"
	"solana-prepump-engine/internal/engine"
	"solana-prepump-engine/internal/execution"
	execstub "solana-prepump-engine/internal/execution/stub"
	"solana-prepump-engine/internal/feed"
	"solana-prepump-engine/internal/lifecycle"
	"solana-prepump-engine/internal/observability"
	"solana-prepump-engine/internal/safety"
	"solana-prepump-engine/internal/scoring"
	"solana-prepump-engine/internal/solana"
	"solana-prepump-engine/internal/storage"
	chstore "solana-prepump-engine/internal/storage/clickhouse"
	"solana-prepump-engine/internal/storage/memory"
	"solana-prepump-engine/internal/storage/migrations"
	pgstore "solana-prepump-engine/internal/storage/postgres"
)

// Server holds the engine's long-lived components.
type Server struct {
	streamEndpoint string
	trading        bool

	stores   *allStores
	tracker  *feed.ActivityTracker
	breakers *breaker.Registry
	runner   *engine.Runner
	monitor  *engine.MonitorRunner
	logger   *zap.Logger

	startedAt time.Time
}

// allStores holds all storage implementations.
type allStores struct {
	assets       storage.AssetStore
	snapshots    storage.SnapshotStore
	signals      storage.SignalStore
	rejections   storage.RejectionStore
	positions    storage.PositionStore
	walletScores storage.WalletScoreStore
}

func main() {
	// .env fills gaps in the environment; real env vars always win.
	_ = godotenv.Load()

	marketEndpoint := flag.String("market-endpoint", os.Getenv("MARKET_ENDPOINT"), "Market data HTTP API base URL")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	streamEndpoint := flag.String("stream-endpoint", os.Getenv("STREAM_WS_ENDPOINT"), "Listing/trade WebSocket endpoint (optional)")
	gatewayEndpoint := flag.String("gateway-endpoint", os.Getenv("TRADE_GATEWAY_ENDPOINT"), "Trade gateway base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL and ClickHouse")
	scanInterval := flag.Duration("scan-interval", engine.DefaultScanInterval, "Pause between scoring cycles")
	monitorInterval := flag.Duration("monitor-interval", engine.DefaultMonitorInterval, "Pause between open-position sweeps")
	capital := flag.Float64("capital", engine.DefaultCapital, "Account capital for position sizing")
	trade := flag.Bool("trade", false, "Submit real trades through the gateway")
	httpAddr := flag.String("http-addr", ":9090", "Health/metrics/status HTTP address")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	logger := newLogger(*debug)
	defer logger.Sync()

	if *marketEndpoint == "" {
		logger.Fatal("--market-endpoint is required")
	}
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// The gateway key rides only in the environment so it never shows
	// up in process listings.
	gatewayKey := os.Getenv("TRADE_GATEWAY_API_KEY")
	if *trade && (*gatewayEndpoint == "" || gatewayKey == "") {
		logger.Fatal("--trade requires --gateway-endpoint and TRADE_GATEWAY_API_KEY")
	}

	cycleConfig := engine.DefaultConfig()
	cycleConfig.Capital = *capital
	cycleConfig.TradingEnabled = *trade
	if err := cycleConfig.Validate(); err != nil {
		logger.Fatal("invalid engine config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatal("create stores", zap.Error(err))
	}
	defer cleanup()

	rpc := solana.NewHTTPClient(*rpcEndpoint)
	probeCtx, probeCancel := context.WithTimeout(ctx, 15*time.Second)
	if slot, err := rpc.GetSlot(probeCtx); err != nil {
		logger.Warn("rpc endpoint not reachable yet", zap.Error(err))
	} else {
		logger.Info("rpc endpoint reachable", zap.Int64("slot", slot))
	}
	probeCancel()

	server := buildServer(serverConfig{
		marketEndpoint:  *marketEndpoint,
		rpc:             rpc,
		streamEndpoint:  *streamEndpoint,
		gatewayEndpoint: *gatewayEndpoint,
		gatewayKey:      gatewayKey,
		scanInterval:    *scanInterval,
		monitorInterval: *monitorInterval,
		cycle:           cycleConfig,
	}, stores, logger)

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()

		select {
		case sig := <-sigCh:
			logger.Warn("second signal, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go server.startHTTPServer(*httpAddr)

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("engine stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// serverConfig carries the flag-derived settings.
type serverConfig struct {
	marketEndpoint  string
	rpc             *solana.HTTPClient
	streamEndpoint  string
	gatewayEndpoint string
	gatewayKey      string
	scanInterval    time.Duration
	monitorInterval time.Duration
	cycle           engine.Config
}

// buildServer wires the pipeline: market source, chain client, gateway,
// scoring, safety, sizing, lifecycle and the two loops. Without --trade
// the gateway is a paper stub and entries never execute.
func buildServer(cfg serverConfig, stores *allStores, logger *zap.Logger) *Server {
	tracker := feed.NewActivityTracker(feed.DefaultActivityWindow)
	smart := feed.NewSmartWalletCounter(tracker, stores.walletScores, feed.DefaultSmartWalletCriteria(), feed.DefaultQualifiedTTL)
	market := feed.NewMarketClient(cfg.marketEndpoint)
	source := feed.NewCompositeSource(market, smart, logger)

	var gateway execution.Gateway = execstub.NewGateway()
	if cfg.cycle.TradingEnabled {
		gateway = execution.NewHTTPGateway(cfg.gatewayEndpoint, cfg.gatewayKey, logger)
	}

	breakers := breaker.NewRegistry(breaker.DefaultConfig())
	exits := lifecycle.DefaultConfig()
	manager := lifecycle.NewManager(stores.positions, gateway, exits, logger)

	cycle := engine.New(engine.Options{
		Assets:     stores.assets,
		Snapshots:  stores.snapshots,
		Signals:    stores.signals,
		Rejections: stores.rejections,
		Positions:  stores.positions,
		Source:     source,
		Authority:  cfg.rpc,
		Scorer:     scoring.NewScorer(scoring.DefaultConfig()),
		Filter:     safety.NewFilter(safety.DefaultConfig()),
		Alpha:      alpha.NewEngine(alpha.DefaultConfig()),
		Lifecycle:  manager,
		Breakers:   breakers,
		Tracker:    tracker,
		Config:     cfg.cycle,
		Logger:     logger,
	})

	metrics := observability.NewMetrics("prepump")

	runner := engine.NewRunner(cycle, cfg.scanInterval, logger)
	runner.OnCycle(func(result *engine.CycleResult) {
		metrics.ObserveCycle(result)
		metrics.ObserveBreakers(breakers.States())
	})

	monitor := lifecycle.NewMonitor(stores.positions, market, gateway, exits, logger)

	return &Server{
		streamEndpoint: cfg.streamEndpoint,
		trading:        cfg.cycle.TradingEnabled,
		stores:         stores,
		tracker:        tracker,
		breakers:       breakers,
		runner:         runner,
		monitor:        engine.NewMonitorRunner(monitor, cfg.monitorInterval, logger),
		logger:         logger,
		startedAt:      time.Now(),
	}
}

// createStores builds the storage layer. Persistent mode runs the
// embedded migrations before handing out stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			assets:       memory.NewAssetStore(),
			snapshots:    memory.NewSnapshotStore(),
			signals:      memory.NewSignalStore(),
			rejections:   memory.NewRejectionStore(),
			positions:    memory.NewPositionStore(),
			walletScores: memory.NewWalletScoreStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	stores := &allStores{
		assets:       pgstore.NewAssetStore(pool),
		signals:      pgstore.NewSignalStore(pool),
		rejections:   pgstore.NewRejectionStore(pool),
		positions:    pgstore.NewPositionStore(pool),
		walletScores: pgstore.NewWalletScoreStore(pool),
		snapshots:    chstore.NewSnapshotStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the loops and blocks until cancellation or a fatal error.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting engine",
		zap.Bool("trading", s.trading),
		zap.Bool("stream", s.streamEndpoint != ""))

	errCh := make(chan error, 3)

	go func() {
		if err := s.runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("scan loop: %w", err)
		}
	}()

	go func() {
		if err := s.monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("position monitor: %w", err)
		}
	}()

	if s.streamEndpoint != "" {
		go func() {
			if err := s.runStream(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("stream: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runStream connects the listing/trade stream and drains it into the
// asset store and activity tracker.
func (s *Server) runStream(ctx context.Context) error {
	listener, err := feed.NewListener(ctx, s.streamEndpoint, nil, s.logger)
	if err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	defer listener.Close()

	if err := listener.SubscribeNewListings(ctx); err != nil {
		return fmt.Errorf("subscribe listings: %w", err)
	}

	s.logger.Info("stream connected", zap.String("endpoint", s.streamEndpoint))
	return feed.IngestEvents(ctx, listener.Events(), s.stores.assets, s.tracker, listener, s.logger)
}

// startHTTPServer serves health, metrics, status and the manual close
// endpoint.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("POST /positions/{id}/close", s.handleClosePosition)

	s.logger.Info("http server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("http server", zap.Error(err))
	}
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status    string              `json:"status"`
	Uptime    string              `json:"uptime"`
	Trading   bool                `json:"trading"`
	LastCycle *engine.CycleResult `json:"lastCycle,omitempty"`
	Breakers  []breaker.State     `json:"breakers,omitempty"`
}

// handleStatus returns engine status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:    "running",
		Uptime:    time.Since(s.startedAt).String(),
		Trading:   s.trading,
		LastCycle: s.runner.LastResult(),
		Breakers:  s.breakers.States(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleClosePosition flags an OPEN position for manual close; the
// monitor executes the exit on its next sweep.
func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	positionID := r.PathValue("id")

	err := s.stores.positions.RequestClose(r.Context(), positionID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, "close requested for %s\n", positionID)
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "position not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrInvalidInput):
		http.Error(w, "position is not open", http.StatusConflict)
	default:
		s.logger.Error("request close",
			zap.String("position", positionID),
			zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// newLogger builds the process logger. Debug switches to the
// development config with human-readable output.
func newLogger(debug bool) *zap.Logger {
	config := zap.NewProductionConfig()
	if debug {
		config = zap.NewDevelopmentConfig()
	}
	return zap.Must(config.Build())
}
