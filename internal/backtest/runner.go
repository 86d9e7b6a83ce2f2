package backtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// Runner loads snapshot history from storage and feeds it to the replay
// engine.
type Runner struct {
	assets    storage.AssetStore
	snapshots storage.SnapshotStore
	engine    *Engine
	logger    *zap.Logger
}

// NewRunner creates a backtest runner over the given stores.
func NewRunner(assets storage.AssetStore, snapshots storage.SnapshotStore, engine *Engine, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		assets:    assets,
		snapshots: snapshots,
		engine:    engine,
		logger:    logger.Named("backtest"),
	}
}

// Run replays every tracked asset's snapshots in [fromMs, toMs]. History
// before fromMs is loaded up to one feature window back so cycles at the
// range start have derivation context.
func (r *Runner) Run(ctx context.Context, fromMs, toMs int64) (*Results, error) {
	if fromMs < 0 || fromMs >= toMs {
		return nil, fmt.Errorf("invalid replay range [%d, %d]", fromMs, toMs)
	}

	universe, err := r.assets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}

	historyFloor := fromMs - r.engine.Config().HistoryWindow.Milliseconds()
	if historyFloor < 0 {
		historyFloor = 0
	}

	series := make(map[string][]*domain.MetricSnapshot, len(universe))
	loaded := 0
	for _, asset := range universe {
		snaps, err := r.snapshots.GetRecent(ctx, asset.Address, historyFloor)
		if err != nil {
			return nil, fmt.Errorf("load history for %s: %w", asset.Address, err)
		}

		var kept []*domain.MetricSnapshot
		for _, s := range snaps {
			if s.TimestampMs <= toMs {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			continue
		}
		series[asset.Address] = kept
		loaded += len(kept)
	}

	r.logger.Info("replaying history",
		zap.Int("assets", len(series)),
		zap.Int("snapshots", loaded),
		zap.Int64("from_ms", fromMs),
		zap.Int64("to_ms", toMs),
	)

	result, err := r.engine.Replay(ctx, series, fromMs, toMs)
	if err != nil {
		return nil, err
	}

	r.logger.Info("replay complete",
		zap.Int("cycles", result.Cycles),
		zap.Int("candidates", result.Candidates),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("win_rate", result.WinRate),
		zap.Float64("avg_roi", result.AvgROI),
	)
	return result, nil
}
