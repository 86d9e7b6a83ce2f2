package domain

// Verdict is the Alpha Engine's disposition for a fired signal.
type Verdict string

const (
	// VerdictExecute marks a signal cleared for automatic entry.
	VerdictExecute Verdict = "EXECUTE"
	// VerdictWait marks a signal downgraded below the confidence or
	// sizing bar; recorded but never auto-executed.
	VerdictWait Verdict = "WAIT"
)

// String returns the string representation of Verdict.
func (v Verdict) String() string {
	return string(v)
}

// IsValid checks if the verdict is a valid value.
func (v Verdict) IsValid() bool {
	return v == VerdictExecute || v == VerdictWait
}

// Signal is the artifact produced when an asset's snapshot crossed the
// batch trigger threshold and passed the safety filter. Created once per
// qualifying crossing; never mutated.
// Corresponds to signals table in PostgreSQL.
type Signal struct {
	SignalID     string // deterministic hash, PRIMARY KEY
	AssetAddress string // token mint address
	SnapshotMs   int64  // timestamp of the triggering snapshot (ms)

	InstabilityIndex float64 // composite index at fire time
	Threshold        float64 // batch trigger threshold this cycle
	Regime           Regime  // batch regime at fire time

	// Triggering snapshot values, denormalized for audit.
	Price     float64
	Liquidity float64
	MarketCap float64

	// Alpha Engine outputs.
	WinProbability float64
	KellyFraction  float64
	PositionSize   float64 // recommended size in quote units
	ValueAtRisk    float64 // loss fraction at the configured confidence
	MaxDrawdown    float64 // worst simulated drawdown

	Verdict       Verdict
	VerdictReason string // empty for EXECUTE; e.g. "low_confidence"

	CreatedAt int64 // record creation timestamp (ms)
}
