package domain

import "solana-token-transfer/internal/solana"

// Account is the host chain's account record.
// Corresponds to the accounts table in PostgreSQL.
type Account struct {
	Lamports   uint64           // balance in lamports
	Owner      solana.PublicKey // program allowed to modify data and debit lamports
	Data       []byte           // program-defined state
	Executable bool             // true for program accounts
	RentEpoch  uint64
}

// NewAccount returns an account with a zeroed data buffer of the given size.
func NewAccount(lamports uint64, space int, owner solana.PublicKey) *Account {
	return &Account{
		Lamports: lamports,
		Owner:    owner,
		Data:     make([]byte, space),
	}
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

// IsEmpty reports whether the account holds nothing (the state of a never-created address).
func (a *Account) IsEmpty() bool {
	return a == nil || (a.Lamports == 0 && len(a.Data) == 0 && a.Owner.IsZero() && !a.Executable)
}

// KeyedAccount pairs an account with its address.
type KeyedAccount struct {
	Key     solana.PublicKey
	Account *Account
	Slot    uint64 // slot of the last write
}
