package ledger

import "errors"

var (
	// ErrInvalidAirdrop is returned for a zero-lamport airdrop request.
	ErrInvalidAirdrop = errors.New("airdrop amount must be positive")

	// ErrAirdropLimit is returned when a request exceeds the per-request faucet limit.
	ErrAirdropLimit = errors.New("airdrop request exceeds faucet limit")
)
