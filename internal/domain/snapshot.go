package domain

// MetricSnapshot is one observation of an asset's market state.
// Append-only: corrections are new snapshots, never updates.
// Corresponds to metric_snapshots table in ClickHouse.
type MetricSnapshot struct {
	AssetAddress string // token mint address
	TimestampMs  int64  // observation timestamp (ms)

	Price     float64 // quote-currency price
	MarketCap float64 // fully diluted market cap
	Liquidity float64 // pool liquidity in quote units

	HolderCount int64 // current holder count

	Volume5m float64 // trade volume, last 5 minutes
	Volume1h float64 // trade volume, last hour

	Buys5m          int64 // buy transactions, last 5 minutes
	Sells5m         int64 // sell transactions, last 5 minutes
	Buys20m         int64 // buy transactions, last 20 minutes
	Sells20m        int64 // sell transactions, last 20 minutes
	UniqueBuyers20m int64 // distinct buyer wallets, last 20 minutes

	Top10Ratio       float64 // supply share held by top 10 holders [0,1]
	SmartWalletCount int64   // qualified smart wallets active recently

	// InstabilityIndex is filled in by the scorer before the snapshot is
	// persisted. Zero for snapshots scored in a batch below minimum size.
	InstabilityIndex float64
}
