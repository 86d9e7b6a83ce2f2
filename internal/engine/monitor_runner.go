package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"solana-prepump-engine/internal/lifecycle"
)

// DefaultMonitorInterval is the pause between open-position sweeps.
// Exits are time-sensitive, so this is much tighter than the scan
// interval.
const DefaultMonitorInterval = 10 * time.Second

// MonitorRunner drives the position monitor on a fixed interval.
type MonitorRunner struct {
	monitor  *lifecycle.Monitor
	interval time.Duration
	logger   *zap.Logger
}

// NewMonitorRunner creates a MonitorRunner. A zero interval falls back
// to the default; a nil logger disables logging.
func NewMonitorRunner(monitor *lifecycle.Monitor, interval time.Duration, logger *zap.Logger) *MonitorRunner {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitorRunner{
		monitor:  monitor,
		interval: interval,
		logger:   logger.Named("monitor_runner"),
	}
}

// Run sweeps open positions until the context is cancelled. It blocks
// and returns the context's error.
func (r *MonitorRunner) Run(ctx context.Context) error {
	r.logger.Info("position monitor started", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("position monitor stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := r.monitor.RunOnce(ctx); err != nil {
				r.logger.Error("position sweep failed", zap.Error(err))
			}
		}
	}
}
