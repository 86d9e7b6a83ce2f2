package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Engine Activity Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Range start (ms): %d\n\n", r.SinceMs))

	// Universe
	sb.WriteString("## Universe\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Tracked Assets | %d |\n", r.Universe.TrackedAssets))
	sb.WriteString(fmt.Sprintf("| First Seen (ms) | %d |\n", r.Universe.FirstSeenMs))
	sb.WriteString(fmt.Sprintf("| Last Seen (ms) | %d |\n", r.Universe.LastSeenMs))
	sb.WriteString("\n")

	// Signals
	sb.WriteString("## Signals\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total | %d |\n", r.Signals.Total))
	sb.WriteString(fmt.Sprintf("| EXECUTE | %d |\n", r.Signals.Executed))
	sb.WriteString(fmt.Sprintf("| WAIT | %d |\n", r.Signals.Waited))
	sb.WriteString("\n")

	if len(r.Signals.WaitReasons) > 0 {
		sb.WriteString("### Downgrade Reasons\n\n")
		writeCountTable(&sb, "Reason", r.Signals.WaitReasons)
	}
	if len(r.Signals.RegimeCounts) > 0 {
		sb.WriteString("### Regime Distribution\n\n")
		writeCountTable(&sb, "Regime", r.Signals.RegimeCounts)
	}

	if len(r.Signals.Rows) > 0 {
		sb.WriteString("### Signal Detail\n\n")
		sb.WriteString("| Signal | Asset | Snapshot (ms) | Index | Threshold | Regime | WinProb | Size | Verdict | Reason |\n")
		sb.WriteString("|--------|-------|---------------|-------|-----------|--------|---------|------|---------|--------|\n")
		for _, row := range r.Signals.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.4f | %.4f | %s | %.4f | %.2f | %s | %s |\n",
				row.SignalID, row.AssetAddress, row.SnapshotMs,
				row.InstabilityIndex, row.Threshold, row.Regime,
				row.WinProbability, row.PositionSize, row.Verdict, row.VerdictReason))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No signals in range.\n\n")
	}

	// Rejections
	sb.WriteString("## Safety Rejections\n\n")
	sb.WriteString(fmt.Sprintf("Total: %d\n\n", r.Rejections.Total))
	if len(r.Rejections.Reasons) > 0 {
		writeCountTable(&sb, "Reason", r.Rejections.Reasons)
	} else {
		sb.WriteString("No rejections in range.\n\n")
	}

	// Trading
	sb.WriteString("## Trading\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Open Positions | %d |\n", r.Trading.OpenPositions))
	sb.WriteString(fmt.Sprintf("| Completed | %d |\n", r.Trading.Completed))
	sb.WriteString(fmt.Sprintf("| Wins | %d |\n", r.Trading.Wins))
	sb.WriteString(fmt.Sprintf("| Losses | %d |\n", r.Trading.Losses))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", r.Trading.WinRate))
	sb.WriteString(fmt.Sprintf("| Avg ROI %% | %.4f |\n", r.Trading.AvgROI))
	sb.WriteString("\n")

	if len(r.Trading.ClosedByStatus) > 0 {
		sb.WriteString("### Exits by Status\n\n")
		writeCountTable(&sb, "Status", r.Trading.ClosedByStatus)
	}
	if len(r.Trading.ROIByStatus) > 0 {
		sb.WriteString("### Realized ROI by Exit Status\n\n")
		sb.WriteString("| Status | Count | Avg ROI % |\n")
		sb.WriteString("|--------|-------|----------|\n")
		for _, row := range r.Trading.ROIByStatus {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f |\n", row.Status, row.Count, row.AvgROI))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeCountTable(sb *strings.Builder, label string, rows []CountRow) {
	sb.WriteString(fmt.Sprintf("| %s | Count |\n", label))
	sb.WriteString("|--------|-------|\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", row.Label, row.Count))
	}
	sb.WriteString("\n")
}
