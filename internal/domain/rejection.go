package domain

// Rejection reasons recorded for audit.
const (
	RejectLowLiquidity         = "low_liquidity"
	RejectHighMarketCap        = "high_market_cap"
	RejectHighConcentration    = "high_concentration"
	RejectMintAuthority        = "mint_authority_enabled"
	RejectFreezeAuthority      = "freeze_authority_enabled"
	RejectAuthorityUnavailable = "authority_unavailable"
)

// Rejection records a threshold-crossing candidate that the safety filter
// turned away. Kept separate from signals so every drop is auditable while
// signals only ever reference snapshots that passed the filter.
// Corresponds to rejections table in PostgreSQL.
type Rejection struct {
	RejectionID      string   // deterministic hash, PRIMARY KEY
	AssetAddress     string   // token mint address
	SnapshotMs       int64    // timestamp of the evaluated snapshot (ms)
	InstabilityIndex float64  // composite index at evaluation time
	Threshold        float64  // batch trigger threshold this cycle
	Reasons          []string // failed check reason codes, order preserved
	CreatedAt        int64    // record creation timestamp (ms)
}
