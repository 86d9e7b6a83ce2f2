package domain

// WalletScore is per-wallet aggregate performance produced by an external
// profiler and consumed read-only as a scoring input.
// Corresponds to wallet_scores table in PostgreSQL.
type WalletScore struct {
	Wallet       string  // wallet address (base58), PRIMARY KEY
	TotalTrades  int64   // completed round trips observed
	WinRate      float64 // share of profitable round trips [0,1]
	RealizedROI  float64 // cumulative ROI multiplier
	LastActiveMs int64   // last observed activity timestamp (ms)
	UpdatedAt    int64   // record update timestamp (ms)
}

// SmartWalletCriteria qualifies wallets whose activity counts toward the
// smart-wallet rotation feature.
type SmartWalletCriteria struct {
	MinROI     float64 // minimum realized ROI multiplier
	MinTrades  int64   // minimum completed round trips
	MinWinRate float64 // minimum win rate [0,1]
}

// DefaultSmartWalletCriteria returns the default qualification bar.
func DefaultSmartWalletCriteria() SmartWalletCriteria {
	return SmartWalletCriteria{
		MinROI:     2.5,
		MinTrades:  15,
		MinWinRate: 0.4,
	}
}

// Qualifies reports whether a wallet meets the smart-wallet bar.
func (c SmartWalletCriteria) Qualifies(ws *WalletScore) bool {
	if ws == nil {
		return false
	}
	return ws.RealizedROI >= c.MinROI &&
		ws.TotalTrades >= c.MinTrades &&
		ws.WinRate >= c.MinWinRate
}
