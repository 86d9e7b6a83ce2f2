// Package lifecycle owns the position state machine: entry on
// actionable signals, recurring TP/SL evaluation, exit execution and
// failure handling. Positions move OPEN to exactly one of TP_HIT,
// SL_HIT, MANUAL_CLOSE or FAILED and never back.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/execution"
	"solana-prepump-engine/internal/idhash"
	"solana-prepump-engine/internal/storage"
)

const (
	// DefaultTakeProfitPct closes a position once ROI reaches +50%.
	DefaultTakeProfitPct = 50.0

	// DefaultStopLossPct closes a position once ROI reaches -30%.
	DefaultStopLossPct = 30.0

	// DefaultSlippagePct is the tolerance attached to every trade.
	DefaultSlippagePct = 2.0
)

// ErrNotActionable means the signal does not clear the entry bar:
// verdict is not EXECUTE or the recommended size is zero.
var ErrNotActionable = errors.New("signal is not actionable")

// ErrAlreadyOpen means the asset already holds an OPEN position. A
// duplicate signal delivery lands here and opens nothing.
var ErrAlreadyOpen = errors.New("asset already has an open position")

// Config carries the exit parameters stamped onto new positions.
// Changing it later never alters an existing position.
type Config struct {
	TakeProfitPct float64
	StopLossPct   float64
	SlippagePct   float64
}

// DefaultConfig returns the standard exit parameters.
func DefaultConfig() Config {
	return Config{
		TakeProfitPct: DefaultTakeProfitPct,
		StopLossPct:   DefaultStopLossPct,
		SlippagePct:   DefaultSlippagePct,
	}
}

// assetLocks hands out one mutex per asset so the check-then-create
// entry sequence is atomic per asset.
type assetLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAssetLocks() *assetLocks {
	return &assetLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *assetLocks) lockFor(assetAddress string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[assetAddress]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[assetAddress] = lock
	}
	return lock
}

// Manager performs position entry. One Manager instance serves the
// whole process; its per-asset locks are what make duplicate signal
// delivery safe.
type Manager struct {
	positions storage.PositionStore
	gateway   execution.Gateway
	config    Config
	logger    *zap.Logger
	locks     *assetLocks

	now func() time.Time
}

// NewManager creates a Manager. A nil logger disables logging.
func NewManager(positions storage.PositionStore, gateway execution.Gateway, config Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		positions: positions,
		gateway:   gateway,
		config:    config,
		logger:    logger.Named("lifecycle"),
		locks:     newAssetLocks(),
		now:       time.Now,
	}
}

// Open enters a position for an actionable signal. The buy is
// submitted only when the asset holds no OPEN position; a failed
// submission is recorded as a terminal FAILED position so the attempt
// is auditable and no exposure exists.
func (m *Manager) Open(ctx context.Context, sig *domain.Signal) (*domain.Position, error) {
	if sig.Verdict != domain.VerdictExecute {
		return nil, fmt.Errorf("%w: verdict %s", ErrNotActionable, sig.Verdict)
	}
	if sig.PositionSize <= 0 {
		return nil, fmt.Errorf("%w: zero position size", ErrNotActionable)
	}

	lock := m.locks.lockFor(sig.AssetAddress)
	lock.Lock()
	defer lock.Unlock()

	_, err := m.positions.GetOpenByAsset(ctx, sig.AssetAddress)
	switch {
	case err == nil:
		return nil, ErrAlreadyOpen
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("check open position: %w", err)
	}

	openedAt := m.now().UnixMilli()
	positionID := idhash.ComputePositionID(sig.AssetAddress, sig.SignalID, openedAt)

	outcome, err := m.gateway.Submit(ctx, domain.TradeIntent{
		AssetAddress: sig.AssetAddress,
		Side:         domain.SideBuy,
		Amount:       sig.PositionSize,
		SlippagePct:  m.config.SlippagePct,
	})
	if err != nil {
		m.recordFailedEntry(ctx, positionID, sig, openedAt, err)
		return nil, fmt.Errorf("entry execution: %w", err)
	}

	position := &domain.Position{
		PositionID:    positionID,
		AssetAddress:  sig.AssetAddress,
		SignalID:      sig.SignalID,
		Status:        domain.PositionOpen,
		EntryPrice:    entryPrice(sig, outcome),
		Size:          sig.PositionSize,
		TakeProfitPct: m.config.TakeProfitPct,
		StopLossPct:   m.config.StopLossPct,
		EntryTxRef:    outcome.TxRef,
		OpenedAt:      openedAt,
	}

	if err := m.positions.Insert(ctx, position); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			m.logger.Warn("open position raced past the asset lock",
				zap.String("asset", sig.AssetAddress),
				zap.String("position", positionID))
			return nil, ErrAlreadyOpen
		}
		return nil, fmt.Errorf("persist position: %w", err)
	}

	m.logger.Info("position opened",
		zap.String("asset", sig.AssetAddress),
		zap.String("position", positionID),
		zap.Float64("entry_price", position.EntryPrice),
		zap.Float64("size", position.Size),
		zap.String("tx", position.EntryTxRef))

	return position, nil
}

// recordFailedEntry persists the failed attempt as a terminal FAILED
// position. FAILED never held exposure, so it closes the moment it is
// created.
func (m *Manager) recordFailedEntry(ctx context.Context, positionID string, sig *domain.Signal, openedAt int64, cause error) {
	closedAt := openedAt
	failed := &domain.Position{
		PositionID:    positionID,
		AssetAddress:  sig.AssetAddress,
		SignalID:      sig.SignalID,
		Status:        domain.PositionFailed,
		Size:          sig.PositionSize,
		TakeProfitPct: m.config.TakeProfitPct,
		StopLossPct:   m.config.StopLossPct,
		FailureReason: cause.Error(),
		OpenedAt:      openedAt,
		ClosedAt:      &closedAt,
	}

	if err := m.positions.Insert(ctx, failed); err != nil {
		m.logger.Error("record failed entry",
			zap.String("asset", sig.AssetAddress),
			zap.String("position", positionID),
			zap.Error(err))
		return
	}

	m.logger.Warn("entry execution failed",
		zap.String("asset", sig.AssetAddress),
		zap.String("position", positionID),
		zap.Error(cause))
}

// entryPrice picks the confirmed fill price, falling back to a price
// derived from the fill amount and finally to the signal's snapshot
// price when the venue reports neither.
func entryPrice(sig *domain.Signal, outcome *domain.TradeOutcome) float64 {
	if outcome.ExecutedPrice > 0 {
		return outcome.ExecutedPrice
	}
	if outcome.AmountOut > 0 {
		return sig.PositionSize / outcome.AmountOut
	}
	return sig.Price
}
