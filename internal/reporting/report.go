package reporting

import "time"

// Report summarizes engine activity over a time range.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	SinceMs     int64

	Universe   UniverseSummary
	Signals    SignalSummary
	Rejections RejectionSummary
	Trading    TradingSummary
}

// UniverseSummary describes the tracked asset universe.
type UniverseSummary struct {
	TrackedAssets int
	FirstSeenMs   int64 // earliest first_seen_at across assets
	LastSeenMs    int64 // latest first_seen_at across assets
}

// CountRow is one label with its occurrence count.
type CountRow struct {
	Label string
	Count int
}

// SignalSummary covers all signals recorded in the range.
type SignalSummary struct {
	Total    int
	Executed int
	Waited   int

	WaitReasons  []CountRow // why signals downgraded, sorted by label
	RegimeCounts []CountRow // regime at fire time, sorted by label

	Rows []SignalRow // per-signal detail, sorted by snapshot_ms then asset
}

// SignalRow is one signal in the detail table.
type SignalRow struct {
	SignalID         string
	AssetAddress     string
	SnapshotMs       int64
	InstabilityIndex float64
	Threshold        float64
	Regime           string
	WinProbability   float64
	PositionSize     float64
	Verdict          string
	VerdictReason    string
}

// RejectionSummary covers the safety filter audit trail in the range.
type RejectionSummary struct {
	Total   int
	Reasons []CountRow // failed check reason codes, sorted by label
}

// TradingSummary covers positions opened or closed in the range.
type TradingSummary struct {
	OpenPositions int

	ClosedByStatus []CountRow // terminal statuses, sorted by label

	// Completed counts closed positions that actually held exposure;
	// FAILED entries are excluded from the realized statistics below.
	Completed int
	Wins      int
	Losses    int
	WinRate   float64 // wins over completed, 0 when nothing completed
	AvgROI    float64 // mean realized ROI percent over completed

	ROIByStatus []StatusROIRow // realized ROI grouped by exit status
}

// StatusROIRow is the realized outcome of one exit status.
type StatusROIRow struct {
	Status string
	Count  int
	AvgROI float64
}
