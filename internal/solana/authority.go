package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"solana-prepump-engine/internal/domain"
)

// Token program owners recognized as mint accounts.
const (
	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

// SPL Token mint account layout. Token-2022 appends extensions after the
// base layout, so parsers check minimum length, never exact length.
const (
	mintAccountSize        = 82
	mintAuthorityTagOffset = 0  // COption<Pubkey>: u32 tag + 32-byte key
	mintSupplyOffset       = 36 // u64
	mintDecimalsOffset     = 44 // u8
	mintInitializedOffset  = 45 // u8
	freezeAuthorityOffset  = 46 // COption<Pubkey>: u32 tag + 32-byte key
)

// MintAccount is the decoded base layout of an SPL token mint.
type MintAccount struct {
	MintAuthorityEnabled   bool
	FreezeAuthorityEnabled bool
	Supply                 uint64
	Decimals               uint8
	Initialized            bool
}

// Compile-time interface check.
var _ AuthorityClient = (*HTTPClient)(nil)

// GetAuthorityState fetches and decodes a token mint account. Every failure
// mode wraps ErrUnavailable: a missing account, a non-mint owner and a
// malformed layout all mean the authority state cannot be established.
func (c *HTTPClient) GetAuthorityState(ctx context.Context, mint string) (*domain.AuthorityState, error) {
	info, err := c.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("%w: get account info: %v", ErrUnavailable, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: mint account %s not found", ErrUnavailable, mint)
	}
	if info.Owner != TokenProgramID && info.Owner != Token2022ProgramID {
		return nil, fmt.Errorf("%w: account %s owned by %s, not a token program", ErrUnavailable, mint, info.Owner)
	}

	data, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode account data: %v", ErrUnavailable, err)
	}

	account, err := parseMintAccount(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &domain.AuthorityState{
		MintEnabled:   account.MintAuthorityEnabled,
		FreezeEnabled: account.FreezeAuthorityEnabled,
	}, nil
}

// parseMintAccount decodes the SPL mint base layout.
func parseMintAccount(data []byte) (*MintAccount, error) {
	if len(data) < mintAccountSize {
		return nil, fmt.Errorf("mint account data too short: %d", len(data))
	}

	account := &MintAccount{
		MintAuthorityEnabled:   binary.LittleEndian.Uint32(data[mintAuthorityTagOffset:]) == 1,
		FreezeAuthorityEnabled: binary.LittleEndian.Uint32(data[freezeAuthorityOffset:]) == 1,
		Supply:                 binary.LittleEndian.Uint64(data[mintSupplyOffset:]),
		Decimals:               data[mintDecimalsOffset],
		Initialized:            data[mintInitializedOffset] == 1,
	}

	if !account.Initialized {
		return nil, fmt.Errorf("mint account not initialized")
	}

	return account, nil
}
