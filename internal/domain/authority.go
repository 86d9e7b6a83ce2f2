package domain

// AuthorityState is the on-chain authority configuration of a token mint,
// supplied by the chain-query collaborator. A mint or freeze authority
// still enabled means the issuer can dilute or halt the token.
type AuthorityState struct {
	MintEnabled   bool
	FreezeEnabled bool
}
