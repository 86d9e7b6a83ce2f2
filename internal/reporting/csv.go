package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the signal detail rows as CSV string.
func RenderCSV(rows []SignalRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("signal_id,asset_address,snapshot_ms,instability_index,threshold,regime,")
	sb.WriteString("win_probability,position_size,verdict,verdict_reason\n")

	// Rows
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%.6f,%.6f,%s,%.6f,%.6f,%s,%s\n",
			row.SignalID,
			row.AssetAddress,
			row.SnapshotMs,
			row.InstabilityIndex,
			row.Threshold,
			row.Regime,
			row.WinProbability,
			row.PositionSize,
			row.Verdict,
			row.VerdictReason,
		))
	}

	return sb.String()
}
