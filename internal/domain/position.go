package domain

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	PositionOpen        PositionStatus = "OPEN"
	PositionTPHit       PositionStatus = "TP_HIT"
	PositionSLHit       PositionStatus = "SL_HIT"
	PositionManualClose PositionStatus = "MANUAL_CLOSE"
	PositionFailed      PositionStatus = "FAILED"
)

// String returns the string representation of PositionStatus.
func (s PositionStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s PositionStatus) IsValid() bool {
	switch s {
	case PositionOpen, PositionTPHit, PositionSLHit, PositionManualClose, PositionFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s PositionStatus) IsTerminal() bool {
	return s.IsValid() && s != PositionOpen
}

// Position is one entry/exit pairing for an asset. At most one OPEN
// position may exist per asset; the lifecycle manager enforces this with a
// per-asset exclusion token and the store backs it with a partial unique
// index. Mutated only by the lifecycle manager; never deleted.
// Corresponds to positions table in PostgreSQL.
type Position struct {
	PositionID   string // deterministic hash, PRIMARY KEY
	AssetAddress string // token mint address
	SignalID     string // originating signal

	Status PositionStatus

	EntryPrice float64 // confirmed entry price
	ExitPrice  float64 // confirmed exit price, zero while OPEN
	Size       float64 // position size in quote units
	CurrentROI float64 // last observed ROI percent, updated by the monitor

	// Exit parameters fixed at entry; later configuration changes never
	// alter an existing position.
	TakeProfitPct float64
	StopLossPct   float64

	EntryTxRef string // entry transaction reference
	ExitTxRef  string // exit transaction reference, empty while OPEN

	CloseRequested bool   // manual close asked for; monitor performs the exit
	FailureReason  string // populated for FAILED entries

	OpenedAt int64  // entry timestamp (ms)
	ClosedAt *int64 // set if and only if status is terminal
}

// ROIAt returns the percent return of the position at the given price.
func (p *Position) ROIAt(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100
}
