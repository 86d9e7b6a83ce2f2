package domain

// TradeSide distinguishes entry buys from exit sells.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// String returns the string representation of TradeSide.
func (s TradeSide) String() string {
	return string(s)
}

// IsValid checks if the side is a valid value.
func (s TradeSide) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// TradeIntent is a request handed to the execution gateway.
type TradeIntent struct {
	AssetAddress string    // token mint address
	Side         TradeSide // BUY or SELL
	// Amount is denominated in quote units for BUY and in token units for
	// SELL. A SELL amount of zero means "entire balance".
	Amount      float64
	SlippagePct float64 // tolerated slippage, percent
}

// TradeOutcome is the confirmed result of a submitted trade.
type TradeOutcome struct {
	TxRef         string  // broadcast transaction reference
	ExecutedPrice float64 // fill price, zero when the venue omits it
	AmountOut     float64 // amount received on the other side
}
