package solana

import (
	"context"
	"errors"

	"solana-prepump-engine/internal/domain"
)

// ErrUnavailable is returned when the chain could not answer a query.
// Callers treat it as "state unknown" and fail closed.
var ErrUnavailable = errors.New("chain state unavailable")

// AuthorityClient answers token-authority queries for the safety filter.
type AuthorityClient interface {
	// GetAuthorityState reports whether the mint and freeze authorities of a
	// token are still enabled. Any failure to determine the state returns an
	// error wrapping ErrUnavailable.
	GetAuthorityState(ctx context.Context, mint string) (*domain.AuthorityState, error)
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}
