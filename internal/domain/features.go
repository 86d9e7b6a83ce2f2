package domain

// FeatureVector holds the behavioral features derived for one asset in one
// evaluation cycle. Derived from snapshot history, consumed by the scorer;
// the resulting composite index is stored on the snapshot.
type FeatureVector struct {
	AssetAddress string

	StealthAccumulation float64 // unique buyers x low sell ratio x price stability
	HolderAcceleration  float64 // second derivative of holder growth, normalized
	VolatilityShift     float64 // short-window vs long-window price volatility
	SmartWalletRotation float64 // active qualified smart wallets
	SellPressure        float64 // sell share of recent transactions [0,1)
}
