// Package engine runs the periodic scoring cycle: universe selection,
// fan-out observation, cross-sectional scoring, safety filtering,
// capital assessment and entry handoff. The cycle and the TP/SL
// monitor are independent tasks that share state only through the
// stores.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-prepump-engine/internal/alpha"
	"solana-prepump-engine/internal/breaker"
	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/execution"
	"solana-prepump-engine/internal/feed"
	"solana-prepump-engine/internal/idhash"
	"solana-prepump-engine/internal/lifecycle"
	"solana-prepump-engine/internal/safety"
	"solana-prepump-engine/internal/scoring"
	"solana-prepump-engine/internal/solana"
	"solana-prepump-engine/internal/storage"
)

// Collaborator names for the circuit breaker registry.
const (
	CollaboratorMarketData = "market_data"
	CollaboratorChainRPC   = "chain_rpc"
	CollaboratorExecution  = "execution"
)

const (
	// DefaultMaxAssetAge bounds the universe to assets first seen
	// within this window.
	DefaultMaxAssetAge = 24 * time.Hour

	// DefaultFetchWorkers is the fan-out width of the observation phase.
	DefaultFetchWorkers = 8

	// DefaultFetchTimeout bounds every external call made for one asset.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultHistoryWindow is how far back snapshot history is loaded
	// for feature derivation.
	DefaultHistoryWindow = 30 * time.Minute

	// DefaultSignalCooldown suppresses re-firing for an asset that
	// signalled recently.
	DefaultSignalCooldown = time.Hour

	// DefaultCapital is the account capital used for position sizing.
	DefaultCapital = 1_000.0
)

// Config holds cycle parameters.
type Config struct {
	MaxAssetAge    time.Duration
	FetchWorkers   int
	FetchTimeout   time.Duration
	HistoryWindow  time.Duration
	SignalCooldown time.Duration

	// Capital is the account capital handed to the sizing model.
	Capital float64

	// TradingEnabled gates entry execution. When false, EXECUTE
	// signals are recorded but never traded.
	TradingEnabled bool
}

// DefaultConfig returns cycle defaults with trading disabled.
func DefaultConfig() Config {
	return Config{
		MaxAssetAge:    DefaultMaxAssetAge,
		FetchWorkers:   DefaultFetchWorkers,
		FetchTimeout:   DefaultFetchTimeout,
		HistoryWindow:  DefaultHistoryWindow,
		SignalCooldown: DefaultSignalCooldown,
		Capital:        DefaultCapital,
	}
}

// Validate rejects configurations that cannot run.
func (c Config) Validate() error {
	if c.MaxAssetAge <= 0 {
		return errors.New("max asset age must be positive")
	}
	if c.FetchWorkers <= 0 {
		return errors.New("fetch workers must be positive")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}
	if c.HistoryWindow <= 0 {
		return errors.New("history window must be positive")
	}
	if c.SignalCooldown <= 0 {
		return errors.New("signal cooldown must be positive")
	}
	if c.Capital < 0 {
		return errors.New("capital must be non-negative")
	}
	return nil
}

// SnapshotSource provides per-asset market observations.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, assetAddress string) (*domain.MetricSnapshot, error)
}

// CycleResult summarizes one scoring cycle for logging and /status.
type CycleResult struct {
	StartedAtMs int64  `json:"startedAtMs"`
	DurationMs  int64  `json:"durationMs"`
	Regime      string `json:"regime"`

	UniverseSize int `json:"universeSize"`
	BatchSize    int `json:"batchSize"`

	// Threshold is the trigger threshold of this cycle; zero when the
	// batch was below the minimum size and nothing could fire.
	Threshold float64 `json:"threshold"`

	SnapshotsWritten   int `json:"snapshotsWritten"`
	SkippedAssets      int `json:"skippedAssets"`
	SignalsFired       int `json:"signalsFired"`
	SignalsDowngraded  int `json:"signalsDowngraded"`
	Rejections         int `json:"rejections"`
	CooldownSuppressed int `json:"cooldownSuppressed"`
	PositionsOpened    int `json:"positionsOpened"`

	Errors []string `json:"errors,omitempty"`
}

// Options wires the cycle's stores and collaborators.
type Options struct {
	Assets     storage.AssetStore
	Snapshots  storage.SnapshotStore
	Signals    storage.SignalStore
	Rejections storage.RejectionStore
	Positions  storage.PositionStore

	Source    SnapshotSource
	Authority solana.AuthorityClient
	Scorer    *scoring.Scorer
	Filter    *safety.Filter
	Alpha     *alpha.Engine
	Lifecycle *lifecycle.Manager
	Breakers  *breaker.Registry

	// Tracker is pruned once per cycle when set.
	Tracker *feed.ActivityTracker

	Config Config
	Logger *zap.Logger
}

// Cycle executes the scoring pipeline once per invocation.
type Cycle struct {
	assets     storage.AssetStore
	snapshots  storage.SnapshotStore
	signals    storage.SignalStore
	rejections storage.RejectionStore
	positions  storage.PositionStore

	source    SnapshotSource
	authority solana.AuthorityClient
	scorer    *scoring.Scorer
	filter    *safety.Filter
	alpha     *alpha.Engine
	lifecycle *lifecycle.Manager
	breakers  *breaker.Registry
	tracker   *feed.ActivityTracker

	config Config
	logger *zap.Logger

	now func() time.Time
}

// New creates a Cycle. A nil logger disables logging.
func New(opts Options) *Cycle {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cycle{
		assets:     opts.Assets,
		snapshots:  opts.Snapshots,
		signals:    opts.Signals,
		rejections: opts.Rejections,
		positions:  opts.Positions,
		source:     opts.Source,
		authority:  opts.Authority,
		scorer:     opts.Scorer,
		filter:     opts.Filter,
		alpha:      opts.Alpha,
		lifecycle:  opts.Lifecycle,
		breakers:   opts.Breakers,
		tracker:    opts.Tracker,
		config:     opts.Config,
		logger:     logger.Named("cycle"),
		now:        time.Now,
	}
}

// observation is one asset's fetched snapshot plus its derived
// features. Features are nil for assets too young to score.
type observation struct {
	snapshot *domain.MetricSnapshot
	features *domain.FeatureVector
}

// RunOnce executes one full scoring cycle. Per-asset failures are
// contained and counted; the returned error is reserved for failures
// that prevent the cycle from running at all.
func (c *Cycle) RunOnce(ctx context.Context) (*CycleResult, error) {
	started := c.now()
	result := &CycleResult{
		StartedAtMs: started.UnixMilli(),
		Regime:      domain.RegimeStable.String(),
	}
	defer func() {
		result.DurationMs = c.now().Sub(started).Milliseconds()
	}()

	// Phase 1: universe.
	sinceMs := started.Add(-c.config.MaxAssetAge).UnixMilli()
	assets, err := c.assets.ListActive(ctx, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	result.UniverseSize = len(assets)
	if len(assets) == 0 {
		return result, nil
	}

	// Phase 2: fan-out observation.
	observations := c.observeAll(ctx, assets, result)

	// Phase 3: one threshold for the whole batch.
	features := make([]domain.FeatureVector, 0, len(observations))
	for _, obs := range observations {
		if obs.features != nil {
			features = append(features, *obs.features)
		}
	}
	batch := c.scorer.ScoreBatch(features)
	result.BatchSize = batch.BatchSize
	result.Regime = batch.Regime.String()
	if batch.CanTrigger() {
		result.Threshold = batch.Threshold
	}

	// Phase 4: persist observations with their computed index.
	byAddress := c.persistSnapshots(ctx, observations, batch, result)

	// Phases 5-8: trigger evaluation down to entry.
	c.evaluateTriggers(ctx, batch, byAddress, result)

	if c.tracker != nil {
		c.tracker.Prune()
	}

	return result, nil
}

// observeAll fetches a snapshot and derives features for every asset
// with bounded concurrency. A failure skips that asset only.
func (c *Cycle) observeAll(ctx context.Context, assets []*domain.Asset, result *CycleResult) []observation {
	var (
		mu           sync.Mutex
		observations []observation
	)

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < c.config.FetchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for address := range jobs {
				obs, err := c.observe(ctx, address)
				mu.Lock()
				if err != nil {
					result.SkippedAssets++
					result.Errors = append(result.Errors, fmt.Sprintf("observe %s: %v", address, err))
				} else {
					observations = append(observations, obs)
				}
				mu.Unlock()
			}
		}()
	}

feeding:
	for _, asset := range assets {
		select {
		case jobs <- asset.Address:
		case <-ctx.Done():
			break feeding
		}
	}
	close(jobs)
	wg.Wait()

	return observations
}

// observe fetches one asset's snapshot and derives its features. Both
// calls share one bounded timeout.
func (c *Cycle) observe(parent context.Context, address string) (observation, error) {
	market := c.breakers.Get(CollaboratorMarketData)
	if !market.Allow() {
		return observation{}, errors.New("market data circuit open")
	}

	ctx, cancel := context.WithTimeout(parent, c.config.FetchTimeout)
	defer cancel()

	snapshot, err := c.source.GetSnapshot(ctx, address)
	if err != nil {
		market.RecordFailure()
		return observation{}, err
	}
	market.RecordSuccess()

	historySince := snapshot.TimestampMs - c.config.HistoryWindow.Milliseconds()
	history, err := c.snapshots.GetRecent(ctx, address, historySince)
	if err != nil {
		return observation{}, fmt.Errorf("load history: %w", err)
	}
	history = append(history, snapshot)

	features, err := scoring.DeriveFeatures(history)
	if err != nil {
		// Too young to score; the snapshot still becomes history.
		return observation{snapshot: snapshot}, nil
	}
	return observation{snapshot: snapshot, features: &features}, nil
}

// persistSnapshots writes every observation append-only, stamping the
// computed instability index first. Returns the persisted snapshots
// keyed by asset for the trigger phase.
func (c *Cycle) persistSnapshots(ctx context.Context, observations []observation, batch *scoring.BatchScore, result *CycleResult) map[string]*domain.MetricSnapshot {
	byAddress := make(map[string]*domain.MetricSnapshot, len(observations))

	for _, obs := range observations {
		snapshot := obs.snapshot
		if score := batch.Score(snapshot.AssetAddress); score != nil {
			snapshot.InstabilityIndex = score.Instability
		}
		byAddress[snapshot.AssetAddress] = snapshot

		if err := c.snapshots.Insert(ctx, snapshot); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("persist snapshot %s: %v", snapshot.AssetAddress, err))
			continue
		}
		result.SnapshotsWritten++
	}

	return byAddress
}

// evaluateTriggers walks every asset whose index crossed the cycle
// threshold: safety filter first (every drop audited), then the signal
// cooldown, then the capital assessment and, when cleared, entry.
func (c *Cycle) evaluateTriggers(ctx context.Context, batch *scoring.BatchScore, byAddress map[string]*domain.MetricSnapshot, result *CycleResult) {
	if !batch.CanTrigger() {
		return
	}

	var crossed []scoring.AssetScore
	for _, score := range batch.Scores {
		if score.Instability > batch.Threshold {
			crossed = append(crossed, score)
		}
	}
	if len(crossed) == 0 {
		return
	}

	// One history read serves every candidate this cycle.
	history := c.tradeHistory(ctx)

	for _, score := range crossed {
		if ctx.Err() != nil {
			return
		}
		snapshot := byAddress[score.AssetAddress]
		if snapshot == nil {
			continue
		}
		c.evaluateCandidate(ctx, snapshot, score, batch, history, result)
	}
}

func (c *Cycle) evaluateCandidate(ctx context.Context, snapshot *domain.MetricSnapshot, score scoring.AssetScore, batch *scoring.BatchScore, history alpha.TradeHistory, result *CycleResult) {
	address := snapshot.AssetAddress
	nowMs := c.now().UnixMilli()

	authority := c.fetchAuthority(ctx, address)
	report := c.filter.Evaluate(snapshot, authority)
	if !report.Passed() {
		c.recordRejection(ctx, snapshot, score, batch, report.FailedReasons(), nowMs, result)
		return
	}

	cooled, err := c.signals.HasRecent(ctx, address, nowMs-c.config.SignalCooldown.Milliseconds())
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("cooldown check %s: %v", address, err))
		return
	}
	if cooled {
		result.CooldownSuppressed++
		return
	}

	assessment := c.alpha.Assess(history, c.config.Capital)

	signal := &domain.Signal{
		SignalID:         idhash.ComputeSignalID(address, snapshot.TimestampMs),
		AssetAddress:     address,
		SnapshotMs:       snapshot.TimestampMs,
		InstabilityIndex: score.Instability,
		Threshold:        batch.Threshold,
		Regime:           batch.Regime,
		Price:            snapshot.Price,
		Liquidity:        snapshot.Liquidity,
		MarketCap:        snapshot.MarketCap,
		WinProbability:   assessment.WinProbability,
		KellyFraction:    assessment.KellyFraction,
		PositionSize:     assessment.PositionSize,
		ValueAtRisk:      assessment.Risk.ValueAtRisk,
		MaxDrawdown:      assessment.Risk.MaxDrawdown,
		Verdict:          assessment.Verdict,
		VerdictReason:    assessment.Reason,
		CreatedAt:        nowMs,
	}

	if err := c.signals.Insert(ctx, signal); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			result.Errors = append(result.Errors, fmt.Sprintf("persist signal %s: %v", address, err))
		}
		return
	}

	if assessment.Verdict == domain.VerdictExecute {
		result.SignalsFired++
	} else {
		result.SignalsDowngraded++
		c.logger.Info("signal downgraded",
			zap.String("asset", address),
			zap.String("reason", assessment.Reason),
			zap.Float64("win_probability", assessment.WinProbability))
		return
	}

	c.logger.Info("signal fired",
		zap.String("asset", address),
		zap.String("signal", signal.SignalID),
		zap.Float64("instability", score.Instability),
		zap.Float64("threshold", batch.Threshold),
		zap.String("regime", batch.Regime.String()),
		zap.Float64("win_probability", assessment.WinProbability),
		zap.Float64("size", assessment.PositionSize))

	if c.config.TradingEnabled {
		c.openPosition(ctx, signal, result)
	}
}

// fetchAuthority queries the chain for mint and freeze authority
// state. Any failure, including an open breaker, returns nil so the
// safety filter fails closed.
func (c *Cycle) fetchAuthority(parent context.Context, address string) *domain.AuthorityState {
	chain := c.breakers.Get(CollaboratorChainRPC)
	if !chain.Allow() {
		return nil
	}

	ctx, cancel := context.WithTimeout(parent, c.config.FetchTimeout)
	defer cancel()

	state, err := c.authority.GetAuthorityState(ctx, address)
	if err != nil {
		chain.RecordFailure()
		c.logger.Warn("authority query failed",
			zap.String("asset", address),
			zap.Error(err))
		return nil
	}
	chain.RecordSuccess()
	return state
}

func (c *Cycle) recordRejection(ctx context.Context, snapshot *domain.MetricSnapshot, score scoring.AssetScore, batch *scoring.BatchScore, reasons []string, nowMs int64, result *CycleResult) {
	rejection := &domain.Rejection{
		RejectionID:      idhash.ComputeRejectionID(snapshot.AssetAddress, snapshot.TimestampMs),
		AssetAddress:     snapshot.AssetAddress,
		SnapshotMs:       snapshot.TimestampMs,
		InstabilityIndex: score.Instability,
		Threshold:        batch.Threshold,
		Reasons:          reasons,
		CreatedAt:        nowMs,
	}

	if err := c.rejections.Insert(ctx, rejection); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		result.Errors = append(result.Errors, fmt.Sprintf("persist rejection %s: %v", snapshot.AssetAddress, err))
		return
	}
	result.Rejections++

	c.logger.Info("candidate rejected",
		zap.String("asset", snapshot.AssetAddress),
		zap.Float64("instability", score.Instability),
		zap.Strings("reasons", reasons))
}

// openPosition hands an EXECUTE signal to the lifecycle manager behind
// the execution breaker. A held asset or a lost race is a local
// condition, not a failure.
func (c *Cycle) openPosition(ctx context.Context, signal *domain.Signal, result *CycleResult) {
	exec := c.breakers.Get(CollaboratorExecution)
	if !exec.Allow() {
		result.Errors = append(result.Errors, fmt.Sprintf("entry %s: execution circuit open", signal.AssetAddress))
		return
	}

	position, err := c.lifecycle.Open(ctx, signal)
	switch {
	case err == nil:
		exec.RecordSuccess()
		result.PositionsOpened++
		c.logger.Info("position opened",
			zap.String("asset", signal.AssetAddress),
			zap.String("position", position.PositionID))
	case errors.Is(err, lifecycle.ErrAlreadyOpen), errors.Is(err, lifecycle.ErrNotActionable):
		c.logger.Info("entry skipped",
			zap.String("asset", signal.AssetAddress),
			zap.Error(err))
	case errors.Is(err, execution.ErrRateLimited):
		exec.RecordFailure()
		result.Errors = append(result.Errors, fmt.Sprintf("entry %s: %v", signal.AssetAddress, err))
	default:
		exec.RecordFailure()
		result.Errors = append(result.Errors, fmt.Sprintf("entry %s: %v", signal.AssetAddress, err))
	}
}

// tradeHistory aggregates realized outcomes of all closed positions.
// FAILED entries never held exposure and are excluded. An unavailable
// history degrades to the uninformative prior instead of blocking the
// cycle.
func (c *Cycle) tradeHistory(ctx context.Context) alpha.TradeHistory {
	closed, err := c.positions.ListClosedSince(ctx, 0)
	if err != nil {
		c.logger.Warn("trade history unavailable, falling back to prior", zap.Error(err))
		return alpha.TradeHistory{}
	}
	return historyFromPositions(closed)
}

func historyFromPositions(closed []*domain.Position) alpha.TradeHistory {
	var h alpha.TradeHistory
	var winSum, lossSum float64
	for _, p := range closed {
		if p.Status == domain.PositionFailed {
			continue
		}
		roi := p.CurrentROI / 100
		if roi > 0 {
			h.Wins++
			winSum += roi
		} else {
			h.Losses++
			lossSum += math.Abs(roi)
		}
	}
	if h.Wins > 0 {
		h.AvgWin = winSum / float64(h.Wins)
	}
	if h.Losses > 0 {
		h.AvgLoss = lossSum / float64(h.Losses)
	}
	return h
}
