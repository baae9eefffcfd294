package domain

import "solana-token-transfer/internal/solana"

// TokenInfo is the descriptive record written once by initialize_token.
type TokenInfo struct {
	Name      string
	Symbol    string
	Decimals  uint8
	Mint      solana.PublicKey
	Authority solana.PublicKey
}

// Mint is the token program's mint state.
type Mint struct {
	MintAuthority   *solana.PublicKey // nil when minting is disabled
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *solana.PublicKey
}

// AccountState is the token account lifecycle state.
type AccountState uint8

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// TokenAccount is the token program's per-holder balance state.
type TokenAccount struct {
	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        *solana.PublicKey
	State           AccountState
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *solana.PublicKey
}

// IsFrozen reports whether transfers out of the account are blocked.
func (a *TokenAccount) IsFrozen() bool {
	return a.State == AccountStateFrozen
}
