package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	assetStore     storage.AssetStore
	signalStore    storage.SignalStore
	rejectionStore storage.RejectionStore
	positionStore  storage.PositionStore
	now            func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	assetStore storage.AssetStore,
	signalStore storage.SignalStore,
	rejectionStore storage.RejectionStore,
	positionStore storage.PositionStore,
) *Generator {
	return &Generator{
		assetStore:     assetStore,
		signalStore:    signalStore,
		rejectionStore: rejectionStore,
		positionStore:  positionStore,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces the full activity report for signals, rejections
// and positions with snapshot or close timestamps at or after sinceMs.
func (g *Generator) Generate(ctx context.Context, sinceMs int64) (*Report, error) {
	universe, err := g.generateUniverse(ctx)
	if err != nil {
		return nil, fmt.Errorf("universe summary: %w", err)
	}

	signals, err := g.generateSignals(ctx, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("signal summary: %w", err)
	}

	rejections, err := g.generateRejections(ctx, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("rejection summary: %w", err)
	}

	trading, err := g.generateTrading(ctx, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("trading summary: %w", err)
	}

	return &Report{
		GeneratedAt: g.now(),
		SinceMs:     sinceMs,
		Universe:    *universe,
		Signals:     *signals,
		Rejections:  *rejections,
		Trading:     *trading,
	}, nil
}

func (g *Generator) generateUniverse(ctx context.Context) (*UniverseSummary, error) {
	assets, err := g.assetStore.List(ctx)
	if err != nil {
		return nil, err
	}

	summary := &UniverseSummary{TrackedAssets: len(assets)}
	for _, a := range assets {
		if summary.FirstSeenMs == 0 || a.FirstSeenAt < summary.FirstSeenMs {
			summary.FirstSeenMs = a.FirstSeenAt
		}
		if a.FirstSeenAt > summary.LastSeenMs {
			summary.LastSeenMs = a.FirstSeenAt
		}
	}
	return summary, nil
}

func (g *Generator) generateSignals(ctx context.Context, sinceMs int64) (*SignalSummary, error) {
	signals, err := g.signalStore.ListSince(ctx, sinceMs)
	if err != nil {
		return nil, err
	}

	summary := &SignalSummary{Total: len(signals)}
	waitReasons := make(map[string]int)
	regimes := make(map[string]int)

	rows := make([]SignalRow, len(signals))
	for i, sig := range signals {
		if sig.Verdict == domain.VerdictExecute {
			summary.Executed++
		} else {
			summary.Waited++
			waitReasons[sig.VerdictReason]++
		}
		regimes[sig.Regime.String()]++

		rows[i] = SignalRow{
			SignalID:         sig.SignalID,
			AssetAddress:     sig.AssetAddress,
			SnapshotMs:       sig.SnapshotMs,
			InstabilityIndex: sig.InstabilityIndex,
			Threshold:        sig.Threshold,
			Regime:           sig.Regime.String(),
			WinProbability:   sig.WinProbability,
			PositionSize:     sig.PositionSize,
			Verdict:          sig.Verdict.String(),
			VerdictReason:    sig.VerdictReason,
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SnapshotMs != rows[j].SnapshotMs {
			return rows[i].SnapshotMs < rows[j].SnapshotMs
		}
		return rows[i].AssetAddress < rows[j].AssetAddress
	})

	summary.WaitReasons = countRows(waitReasons)
	summary.RegimeCounts = countRows(regimes)
	summary.Rows = rows
	return summary, nil
}

func (g *Generator) generateRejections(ctx context.Context, sinceMs int64) (*RejectionSummary, error) {
	rejections, err := g.rejectionStore.ListSince(ctx, sinceMs)
	if err != nil {
		return nil, err
	}

	summary := &RejectionSummary{Total: len(rejections)}
	reasons := make(map[string]int)
	for _, rej := range rejections {
		for _, reason := range rej.Reasons {
			reasons[reason]++
		}
	}
	summary.Reasons = countRows(reasons)
	return summary, nil
}

func (g *Generator) generateTrading(ctx context.Context, sinceMs int64) (*TradingSummary, error) {
	open, err := g.positionStore.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	closed, err := g.positionStore.ListClosedSince(ctx, sinceMs)
	if err != nil {
		return nil, err
	}

	summary := &TradingSummary{OpenPositions: len(open)}

	byStatus := make(map[string]int)
	roiSum := make(map[string]float64)
	var totalROI float64

	for _, p := range closed {
		status := p.Status.String()
		byStatus[status]++
		if p.Status == domain.PositionFailed {
			continue
		}
		summary.Completed++
		roiSum[status] += p.CurrentROI
		totalROI += p.CurrentROI
		if p.CurrentROI > 0 {
			summary.Wins++
		} else {
			summary.Losses++
		}
	}

	if summary.Completed > 0 {
		summary.WinRate = float64(summary.Wins) / float64(summary.Completed)
		summary.AvgROI = totalROI / float64(summary.Completed)
	}

	summary.ClosedByStatus = countRows(byStatus)

	for _, row := range summary.ClosedByStatus {
		if row.Label == domain.PositionFailed.String() {
			continue
		}
		summary.ROIByStatus = append(summary.ROIByStatus, StatusROIRow{
			Status: row.Label,
			Count:  row.Count,
			AvgROI: roiSum[row.Label] / float64(row.Count),
		})
	}

	return summary, nil
}

// countRows converts a histogram map into rows sorted by label for
// deterministic output.
func countRows(counts map[string]int) []CountRow {
	if len(counts) == 0 {
		return nil
	}
	rows := make([]CountRow, 0, len(counts))
	for label, count := range counts {
		rows = append(rows, CountRow{Label: label, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Label < rows[j].Label })
	return rows
}
