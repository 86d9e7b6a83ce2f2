// Package main replays stored snapshot history through the scoring
// pipeline and reports how the simulated trades came out.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"solana-prepump-engine/internal/backtest"
	"solana-prepump-engine/internal/safety"
	"solana-prepump-engine/internal/scoring"
	chstore "solana-prepump-engine/internal/storage/clickhouse"
	pgstore "solana-prepump-engine/internal/storage/postgres"
)

func main() {
	// .env fills gaps in the environment; real env vars always win.
	_ = godotenv.Load()

	defaults := backtest.DefaultConfig()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	from := flag.String("from", "", "Replay range start, RFC3339 (default 24h before --to)")
	to := flag.String("to", "", "Replay range end, RFC3339 (default now)")
	quantum := flag.Duration("cycle-quantum", defaults.CycleQuantum, "Width of one replay cycle bucket")
	takeProfit := flag.Float64("take-profit", defaults.TakeProfitPct, "Take-profit exit (percent)")
	stopLoss := flag.Float64("stop-loss", defaults.StopLossPct, "Stop-loss exit (percent)")
	maxHold := flag.Duration("max-hold", defaults.MaxHold, "Maximum hold before a timed exit")
	outputJSON := flag.Bool("json", false, "Output results as JSON")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	logger := newLogger(*debug)
	defer logger.Sync()

	if *postgresDSN == "" || *clickhouseDSN == "" {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required")
	}

	toTime := time.Now()
	if *to != "" {
		parsed, err := time.Parse(time.RFC3339, *to)
		if err != nil {
			logger.Fatal("parse --to", zap.Error(err))
		}
		toTime = parsed
	}
	fromTime := toTime.Add(-24 * time.Hour)
	if *from != "" {
		parsed, err := time.Parse(time.RFC3339, *from)
		if err != nil {
			logger.Fatal("parse --from", zap.Error(err))
		}
		fromTime = parsed
	}

	config := defaults
	config.CycleQuantum = *quantum
	config.TakeProfitPct = *takeProfit
	config.StopLossPct = *stopLoss
	config.MaxHold = *maxHold
	if err := config.Validate(); err != nil {
		logger.Fatal("invalid replay config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("interrupted", zap.String("signal", sig.String()))
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatal("connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatal("connect to clickhouse", zap.Error(err))
	}
	defer conn.Close()

	engine := backtest.NewEngine(
		scoring.NewScorer(scoring.DefaultConfig()),
		safety.NewFilter(safety.DefaultConfig()),
		config,
	)
	runner := backtest.NewRunner(
		pgstore.NewAssetStore(pool),
		chstore.NewSnapshotStore(conn),
		engine,
		logger,
	)

	results, err := runner.Run(ctx, fromTime.UnixMilli(), toTime.UnixMilli())
	if err != nil {
		logger.Fatal("replay failed", zap.Error(err))
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return
	}
	fmt.Println(results.Summary())
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
