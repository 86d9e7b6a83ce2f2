package domain

// Asset represents a tradable token under observation.
// Corresponds to assets table in PostgreSQL.
type Asset struct {
	Address     string // token mint address (base58), PRIMARY KEY
	Name        string // display name
	Symbol      string // ticker symbol
	FirstSeenAt int64  // first observation timestamp (ms)
	CreatedAt   int64  // record creation timestamp (ms)
}

// IsValid checks the minimal shape of an asset record.
// Base58 well-formedness is checked at the chain boundary, not here.
func (a *Asset) IsValid() bool {
	return a != nil && a.Address != "" && a.FirstSeenAt > 0
}
