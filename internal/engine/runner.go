package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultScanInterval is the pause between scoring cycles.
const DefaultScanInterval = 60 * time.Second

// Runner drives the scoring cycle on a fixed interval and keeps the
// latest result for status reporting.
type Runner struct {
	cycle    *Cycle
	interval time.Duration
	logger   *zap.Logger

	mu   sync.RWMutex
	last *CycleResult

	onCycle func(*CycleResult)
}

// NewRunner creates a Runner. A zero interval falls back to the
// default scan interval; a nil logger disables logging.
func NewRunner(cycle *Cycle, interval time.Duration, logger *zap.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cycle:    cycle,
		interval: interval,
		logger:   logger.Named("runner"),
	}
}

// OnCycle registers a callback invoked after every completed cycle.
// Must be set before Run.
func (r *Runner) OnCycle(fn func(*CycleResult)) {
	r.onCycle = fn
}

// LastResult returns the most recent cycle result, or nil before the
// first cycle completes.
func (r *Runner) LastResult() *CycleResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Run executes cycles until the context is cancelled. The first cycle
// starts immediately. It blocks and returns the context's error.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("scan loop started", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scan loop stopping")
			return ctx.Err()
		case <-ticker.C:
			r.runCycle(ctx)
		}
	}
}

func (r *Runner) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	result, err := r.cycle.RunOnce(ctx)
	if err != nil {
		r.logger.Error("cycle failed", zap.Error(err))
		return
	}

	r.mu.Lock()
	r.last = result
	r.mu.Unlock()

	if r.onCycle != nil {
		r.onCycle(result)
	}

	r.logger.Info("cycle complete",
		zap.Int64("duration_ms", result.DurationMs),
		zap.Int("universe", result.UniverseSize),
		zap.Int("batch", result.BatchSize),
		zap.String("regime", result.Regime),
		zap.Float64("threshold", result.Threshold),
		zap.Int("snapshots", result.SnapshotsWritten),
		zap.Int("signals", result.SignalsFired),
		zap.Int("downgraded", result.SignalsDowngraded),
		zap.Int("rejections", result.Rejections),
		zap.Int("positions", result.PositionsOpened),
		zap.Int("errors", len(result.Errors)))

	for _, msg := range result.Errors {
		r.logger.Warn("cycle error", zap.String("detail", msg))
	}
}
