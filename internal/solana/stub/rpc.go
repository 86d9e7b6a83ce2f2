package stub

import (
	"context"
	"fmt"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/solana"
)

// Client implements solana.AuthorityClient for testing.
type Client struct {
	Authorities map[string]*domain.AuthorityState
	Err         error // when set, every call fails with this error
}

// NewClient creates a new stub authority client.
func NewClient() *Client {
	return &Client{
		Authorities: make(map[string]*domain.AuthorityState),
	}
}

// Compile-time interface check.
var _ solana.AuthorityClient = (*Client)(nil)

// GetAuthorityState returns the canned state for a mint. Unknown mints fail
// with ErrUnavailable, matching the live client.
func (c *Client) GetAuthorityState(_ context.Context, mint string) (*domain.AuthorityState, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	state, ok := c.Authorities[mint]
	if !ok {
		return nil, fmt.Errorf("%w: mint account %s not found", solana.ErrUnavailable, mint)
	}
	out := *state
	return &out, nil
}

// SetAuthority adds a canned authority state for a mint.
func (c *Client) SetAuthority(mint string, mintEnabled, freezeEnabled bool) {
	c.Authorities[mint] = &domain.AuthorityState{
		MintEnabled:   mintEnabled,
		FreezeEnabled: freezeEnabled,
	}
}
