package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/execution"
	"solana-prepump-engine/internal/storage"
)

// PriceSource reads the live price used for ROI evaluation.
type PriceSource interface {
	GetPrice(ctx context.Context, assetAddress string) (float64, error)
}

// Monitor re-evaluates every OPEN position against its exit
// parameters. A position transitions to a terminal state only after a
// confirmed sell; a failed sell leaves it OPEN for the next pass.
type Monitor struct {
	positions storage.PositionStore
	prices    PriceSource
	gateway   execution.Gateway
	config    Config
	logger    *zap.Logger

	// inFlight holds position IDs with an exit attempt in progress so
	// overlapping runs never race on the same position.
	inFlight sync.Map

	now func() time.Time
}

// NewMonitor creates a Monitor. A nil logger disables logging.
func NewMonitor(positions storage.PositionStore, prices PriceSource, gateway execution.Gateway, config Config, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		positions: positions,
		prices:    prices,
		gateway:   gateway,
		config:    config,
		logger:    logger.Named("monitor"),
		now:       time.Now,
	}
}

// RunOnce evaluates all OPEN positions once. A failure on one position
// skips only that position; the pass continues. The returned error is
// reserved for not being able to list positions at all.
func (m *Monitor) RunOnce(ctx context.Context) error {
	open, err := m.positions.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("list open positions: %w", err)
	}

	for _, pos := range open {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !m.tryAcquire(pos.PositionID) {
			continue
		}
		m.evaluate(ctx, pos)
		m.release(pos.PositionID)
	}
	return nil
}

// tryAcquire claims the exclusion token for a position. It returns
// false when another exit attempt already holds it.
func (m *Monitor) tryAcquire(positionID string) bool {
	_, loaded := m.inFlight.LoadOrStore(positionID, struct{}{})
	return !loaded
}

func (m *Monitor) release(positionID string) {
	m.inFlight.Delete(positionID)
}

func (m *Monitor) evaluate(ctx context.Context, pos *domain.Position) {
	price, err := m.prices.GetPrice(ctx, pos.AssetAddress)
	if err != nil {
		m.logger.Warn("price unavailable, skipping position",
			zap.String("asset", pos.AssetAddress),
			zap.String("position", pos.PositionID),
			zap.Error(err))
		return
	}

	roi := pos.ROIAt(price)
	if err := m.positions.UpdateROI(ctx, pos.PositionID, roi); err != nil {
		m.logger.Warn("persist roi",
			zap.String("position", pos.PositionID),
			zap.Error(err))
	}

	status, exit := exitStatus(pos, roi)
	if !exit {
		return
	}
	m.close(ctx, pos, status, price, roi)
}

// exitStatus decides whether the position leaves OPEN this pass. A
// pending manual close wins over TP and SL.
func exitStatus(pos *domain.Position, roi float64) (domain.PositionStatus, bool) {
	switch {
	case pos.CloseRequested:
		return domain.PositionManualClose, true
	case roi >= pos.TakeProfitPct:
		return domain.PositionTPHit, true
	case roi <= -pos.StopLossPct:
		return domain.PositionSLHit, true
	}
	return "", false
}

// close sells the whole balance and records the terminal transition.
// The store is only touched after the venue confirms the sell, so a
// position can never be marked closed without a recorded exit tx.
func (m *Monitor) close(ctx context.Context, pos *domain.Position, status domain.PositionStatus, observedPrice, roi float64) {
	outcome, err := m.gateway.Submit(ctx, domain.TradeIntent{
		AssetAddress: pos.AssetAddress,
		Side:         domain.SideSell,
		SlippagePct:  m.config.SlippagePct,
	})
	if err != nil {
		m.logger.Warn("exit execution failed, position stays open",
			zap.String("asset", pos.AssetAddress),
			zap.String("position", pos.PositionID),
			zap.String("target_status", status.String()),
			zap.Error(err))
		return
	}

	exitPrice := outcome.ExecutedPrice
	if exitPrice <= 0 {
		exitPrice = observedPrice
	}

	if err := m.positions.Close(ctx, pos.PositionID, status, exitPrice, outcome.TxRef, m.now().UnixMilli()); err != nil {
		m.logger.Error("record exit",
			zap.String("position", pos.PositionID),
			zap.String("tx", outcome.TxRef),
			zap.Error(err))
		return
	}

	m.logger.Info("position closed",
		zap.String("asset", pos.AssetAddress),
		zap.String("position", pos.PositionID),
		zap.String("status", status.String()),
		zap.Float64("roi", roi),
		zap.String("tx", outcome.TxRef))
}
