// Package backtest replays stored snapshot history through the scoring
// pipeline offline. Batches are rebuilt cycle by cycle, re-scored with the
// configured weights and thresholds, and crossings are traded on paper
// with the same exit rules the live monitor applies. No network, no
// gateway: the replay answers how a parameter set would have performed.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/lifecycle"
	"solana-prepump-engine/internal/safety"
	"solana-prepump-engine/internal/scoring"
)

// Default replay parameters.
const (
	// DefaultCycleQuantum groups snapshots into replay cycles. The live
	// collector observes each asset once per scan interval, so one
	// quantum holds at most one snapshot per asset.
	DefaultCycleQuantum = 60 * time.Second

	// DefaultHistoryWindow bounds the lookback used for feature
	// derivation, matching the live engine.
	DefaultHistoryWindow = 30 * time.Minute

	// DefaultMaxHold closes any simulated position still open after this
	// long, whatever its ROI.
	DefaultMaxHold = 4 * time.Hour
)

// Config holds the replay parameters.
type Config struct {
	// CycleQuantum is the bucket width for rebuilding per-cycle batches.
	CycleQuantum time.Duration

	// HistoryWindow is the per-asset lookback for feature derivation.
	HistoryWindow time.Duration

	// TakeProfitPct closes a simulated position once ROI reaches it.
	TakeProfitPct float64

	// StopLossPct closes a simulated position once ROI falls to its
	// negative.
	StopLossPct float64

	// MaxHold is the time-limit exit for positions that hit neither side.
	MaxHold time.Duration
}

// DefaultConfig returns replay parameters matching the live trading setup.
func DefaultConfig() Config {
	return Config{
		CycleQuantum:  DefaultCycleQuantum,
		HistoryWindow: DefaultHistoryWindow,
		TakeProfitPct: lifecycle.DefaultTakeProfitPct,
		StopLossPct:   lifecycle.DefaultStopLossPct,
		MaxHold:       DefaultMaxHold,
	}
}

// Validate checks config for invalid values.
func (c Config) Validate() error {
	if c.CycleQuantum <= 0 {
		return errors.New("cycle quantum must be positive")
	}
	if c.HistoryWindow <= 0 {
		return errors.New("history window must be positive")
	}
	if c.TakeProfitPct <= 0 {
		return errors.New("take profit must be positive")
	}
	if c.StopLossPct <= 0 {
		return errors.New("stop loss must be positive")
	}
	if c.MaxHold <= 0 {
		return errors.New("max hold must be positive")
	}
	return nil
}

// ExitReason explains why a simulated trade closed.
type ExitReason string

// Exit reason constants.
const (
	ExitTakeProfit ExitReason = "TP"
	ExitStopLoss   ExitReason = "SL"
	ExitTimeLimit  ExitReason = "TIME"
)

// Trade is one simulated entry/exit pair.
type Trade struct {
	AssetAddress string        `json:"asset_address"`
	Regime       domain.Regime `json:"regime"` // batch regime at trigger time

	TriggeredMs int64 `json:"triggered_ms"` // snapshot that crossed the threshold
	EnteredMs   int64 `json:"entered_ms"`   // fill snapshot, the next one observed
	ExitedMs    int64 `json:"exited_ms"`

	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`

	ROI    float64    `json:"roi"` // percent
	Reason ExitReason `json:"reason"`
}

// RegimeStats aggregates trade outcomes for one regime.
type RegimeStats struct {
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
	AvgROI  float64 `json:"avg_roi"`
}

// Results holds the replay output.
type Results struct {
	FromMs int64 `json:"from_ms"`
	ToMs   int64 `json:"to_ms"`

	Cycles     int `json:"cycles"`     // batches rebuilt and scored
	Candidates int `json:"candidates"` // threshold crossings observed
	Filtered   int `json:"filtered"`   // crossings the safety filter dropped
	Suppressed int `json:"suppressed"` // crossings while the asset already held a position
	Unfilled   int `json:"unfilled"`   // crossings with no later snapshot to fill at
	OpenAtEnd  int `json:"open_at_end"`

	Trades []Trade `json:"trades"`

	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	WinRate  float64 `json:"win_rate"`
	AvgROI   float64 `json:"avg_roi"`   // percent
	TotalROI float64 `json:"total_roi"` // percent
	BestROI  float64 `json:"best_roi"`
	WorstROI float64 `json:"worst_roi"`

	ExitCounts map[ExitReason]int            `json:"exit_counts"`
	ByRegime   map[domain.Regime]RegimeStats `json:"by_regime"`
}

func (r *Results) finalize() {
	n := len(r.Trades)
	if n == 0 {
		return
	}

	regimeROI := make(map[domain.Regime]float64)
	for i, tr := range r.Trades {
		if tr.ROI > 0 {
			r.Wins++
		} else {
			r.Losses++
		}
		r.TotalROI += tr.ROI
		if i == 0 || tr.ROI > r.BestROI {
			r.BestROI = tr.ROI
		}
		if i == 0 || tr.ROI < r.WorstROI {
			r.WorstROI = tr.ROI
		}
		r.ExitCounts[tr.Reason]++

		stats := r.ByRegime[tr.Regime]
		stats.Trades++
		if tr.ROI > 0 {
			stats.Wins++
		}
		regimeROI[tr.Regime] += tr.ROI
		r.ByRegime[tr.Regime] = stats
	}

	r.WinRate = float64(r.Wins) / float64(n)
	r.AvgROI = r.TotalROI / float64(n)
	for regime, stats := range r.ByRegime {
		stats.WinRate = float64(stats.Wins) / float64(stats.Trades)
		stats.AvgROI = regimeROI[regime] / float64(stats.Trades)
		r.ByRegime[regime] = stats
	}
}

// Summary renders the results as a fixed-width text block.
func (r *Results) Summary() string {
	var sb strings.Builder

	rule := strings.Repeat("=", 40)
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, " REPLAY %d .. %d\n", r.FromMs, r.ToMs)
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, " Cycles scored:   %d\n", r.Cycles)
	fmt.Fprintf(&sb, " Crossings:       %d (filtered %d, suppressed %d)\n",
		r.Candidates, r.Filtered, r.Suppressed)
	fmt.Fprintf(&sb, " Trades:          %d (unfilled %d, open at end %d)\n",
		len(r.Trades), r.Unfilled, r.OpenAtEnd)

	if len(r.Trades) > 0 {
		fmt.Fprintf(&sb, " Win rate:        %.2f%%\n", r.WinRate*100)
		fmt.Fprintf(&sb, " Avg ROI:         %.2f%%\n", r.AvgROI)
		fmt.Fprintf(&sb, " Cumulative ROI:  %.2f%%\n", r.TotalROI)
		fmt.Fprintf(&sb, " Best / worst:    %.2f%% / %.2f%%\n", r.BestROI, r.WorstROI)
		fmt.Fprintf(&sb, " TP %d | SL %d | TIME %d\n",
			r.ExitCounts[ExitTakeProfit], r.ExitCounts[ExitStopLoss], r.ExitCounts[ExitTimeLimit])

		regimes := make([]string, 0, len(r.ByRegime))
		for regime := range r.ByRegime {
			regimes = append(regimes, string(regime))
		}
		sort.Strings(regimes)
		for _, regime := range regimes {
			stats := r.ByRegime[domain.Regime(regime)]
			fmt.Fprintf(&sb, " %-8s%d trades, win %.2f%%, avg ROI %.2f%%\n",
				regime+":", stats.Trades, stats.WinRate*100, stats.AvgROI)
		}
	}

	sb.WriteString(rule + "\n")
	return sb.String()
}

// Authority state is not captured in snapshots, so the replay assumes
// authorities were disabled and lets the structural checks decide.
var replayAuthority = &domain.AuthorityState{}

type pendingEntry struct {
	triggeredMs int64
	regime      domain.Regime
}

type openTrade struct {
	triggeredMs int64
	regime      domain.Regime
	enteredMs   int64
	entryPrice  float64
}

// Engine drives the replay simulation over loaded snapshot series.
type Engine struct {
	scorer *scoring.Scorer
	filter *safety.Filter
	config Config
}

// NewEngine creates a replay engine with the given scoring and exit
// parameters.
func NewEngine(scorer *scoring.Scorer, filter *safety.Filter, config Config) *Engine {
	return &Engine{
		scorer: scorer,
		filter: filter,
		config: config,
	}
}

// Config returns the replay parameters.
func (e *Engine) Config() Config {
	return e.config
}

// Replay walks snapshots in [fromMs, toMs] cycle by cycle: re-derives
// features, re-scores each cross-sectional batch, and trades crossings on
// paper. Entries fill at the asset's next observed price after the
// trigger. Snapshots before fromMs serve as feature history only.
func (e *Engine) Replay(ctx context.Context, series map[string][]*domain.MetricSnapshot, fromMs, toMs int64) (*Results, error) {
	if fromMs >= toMs {
		return nil, fmt.Errorf("invalid replay range [%d, %d]", fromMs, toMs)
	}

	ordered := make(map[string][]*domain.MetricSnapshot, len(series))
	for addr, snaps := range series {
		if len(snaps) == 0 {
			continue
		}
		cp := make([]*domain.MetricSnapshot, len(snaps))
		copy(cp, snaps)
		sort.Slice(cp, func(i, j int) bool {
			return cp[i].TimestampMs < cp[j].TimestampMs
		})
		ordered[addr] = cp
	}

	quantumMs := e.config.CycleQuantum.Milliseconds()
	windowMs := e.config.HistoryWindow.Milliseconds()
	maxHoldMs := e.config.MaxHold.Milliseconds()

	// bucket id -> asset -> index of its newest snapshot in that bucket
	buckets := make(map[int64]map[string]int)
	for addr, snaps := range ordered {
		for i, s := range snaps {
			if s.TimestampMs < fromMs || s.TimestampMs > toMs {
				continue
			}
			b := s.TimestampMs / quantumMs
			if buckets[b] == nil {
				buckets[b] = make(map[string]int)
			}
			if prev, ok := buckets[b][addr]; !ok || i > prev {
				buckets[b][addr] = i
			}
		}
	}
	ids := make([]int64, 0, len(buckets))
	for b := range buckets {
		ids = append(ids, b)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := &Results{
		FromMs:     fromMs,
		ToMs:       toMs,
		ExitCounts: make(map[ExitReason]int),
		ByRegime:   make(map[domain.Regime]RegimeStats),
	}
	pending := make(map[string]*pendingEntry)
	open := make(map[string]*openTrade)

	for _, b := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries := buckets[b]
		cycleAddrs := make([]string, 0, len(entries))
		for addr := range entries {
			cycleAddrs = append(cycleAddrs, addr)
		}
		sort.Strings(cycleAddrs)

		// Fill pending entries at the first price observed after the
		// trigger.
		for _, addr := range cycleAddrs {
			p, ok := pending[addr]
			if !ok {
				continue
			}
			s := ordered[addr][entries[addr]]
			if s.TimestampMs <= p.triggeredMs {
				continue
			}
			delete(pending, addr)
			open[addr] = &openTrade{
				triggeredMs: p.triggeredMs,
				regime:      p.regime,
				enteredMs:   s.TimestampMs,
				entryPrice:  s.Price,
			}
		}

		// Check exits on open trades.
		for _, addr := range cycleAddrs {
			tr, ok := open[addr]
			if !ok {
				continue
			}
			s := ordered[addr][entries[addr]]
			if s.TimestampMs <= tr.enteredMs || tr.entryPrice <= 0 {
				continue
			}
			roi := (s.Price - tr.entryPrice) / tr.entryPrice * 100

			var reason ExitReason
			switch {
			case roi >= e.config.TakeProfitPct:
				reason = ExitTakeProfit
			case roi <= -e.config.StopLossPct:
				reason = ExitStopLoss
			case s.TimestampMs-tr.enteredMs > maxHoldMs:
				reason = ExitTimeLimit
			default:
				continue
			}

			delete(open, addr)
			result.Trades = append(result.Trades, Trade{
				AssetAddress: addr,
				Regime:       tr.regime,
				TriggeredMs:  tr.triggeredMs,
				EnteredMs:    tr.enteredMs,
				ExitedMs:     s.TimestampMs,
				EntryPrice:   tr.entryPrice,
				ExitPrice:    s.Price,
				ROI:          roi,
				Reason:       reason,
			})
		}

		// Rebuild and score the cycle's cross-section.
		var features []domain.FeatureVector
		current := make(map[string]int, len(entries))
		for _, addr := range cycleAddrs {
			i := entries[addr]
			snaps := ordered[addr]
			s := snaps[i]
			lo := i
			for lo > 0 && snaps[lo-1].TimestampMs >= s.TimestampMs-windowMs {
				lo--
			}
			fv, err := scoring.DeriveFeatures(snaps[lo : i+1])
			if err != nil {
				// Too young to score this cycle.
				continue
			}
			features = append(features, fv)
			current[addr] = i
		}
		if len(features) == 0 {
			continue
		}
		result.Cycles++

		batch := e.scorer.ScoreBatch(features)
		if !batch.CanTrigger() {
			continue
		}

		for _, addr := range cycleAddrs {
			i, ok := current[addr]
			if !ok {
				continue
			}
			score := batch.Score(addr)
			if score == nil || score.Instability <= batch.Threshold {
				continue
			}
			result.Candidates++

			if _, occupied := open[addr]; occupied {
				result.Suppressed++
				continue
			}
			if _, queued := pending[addr]; queued {
				result.Suppressed++
				continue
			}

			s := ordered[addr][i]
			if report := e.filter.Evaluate(s, replayAuthority); !report.Passed() {
				result.Filtered++
				continue
			}

			pending[addr] = &pendingEntry{
				triggeredMs: s.TimestampMs,
				regime:      batch.Regime,
			}
		}
	}

	result.Unfilled = len(pending)
	result.OpenAtEnd = len(open)
	result.finalize()
	return result, nil
}
