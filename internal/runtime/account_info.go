package runtime

import (
	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/solana"
)

// AccountInfo is a program's view of one instruction account.
// Duplicate keys in an instruction share the same underlying *domain.Account.
type AccountInfo struct {
	Key        solana.PublicKey
	IsSigner   bool
	IsWritable bool

	account *domain.Account
}

// Lamports returns the current balance.
func (a *AccountInfo) Lamports() uint64 { return a.account.Lamports }

// SetLamports overwrites the balance. Conservation is checked when the instruction returns.
func (a *AccountInfo) SetLamports(v uint64) { a.account.Lamports = v }

// Owner returns the owning program.
func (a *AccountInfo) Owner() solana.PublicKey { return a.account.Owner }

// Assign changes the owning program.
func (a *AccountInfo) Assign(owner solana.PublicKey) { a.account.Owner = owner }

// Data returns the mutable data buffer.
func (a *AccountInfo) Data() []byte { return a.account.Data }

// SetData replaces the data buffer.
func (a *AccountInfo) SetData(data []byte) { a.account.Data = data }

// Executable reports whether the account holds a program.
func (a *AccountInfo) Executable() bool { return a.account.Executable }

// DataIsEmpty reports whether the data buffer is empty.
func (a *AccountInfo) DataIsEmpty() bool { return len(a.account.Data) == 0 }

// Snapshot returns a deep copy of the current state.
func (a *AccountInfo) Snapshot() *domain.Account { return a.account.Clone() }

// CheckedAddLamports credits v lamports.
func (a *AccountInfo) CheckedAddLamports(v uint64) error {
	sum := a.account.Lamports + v
	if sum < a.account.Lamports {
		return ErrArithmeticOverflow
	}
	a.account.Lamports = sum
	return nil
}

// CheckedSubLamports debits v lamports.
func (a *AccountInfo) CheckedSubLamports(v uint64) error {
	if a.account.Lamports < v {
		return ErrInsufficientFunds
	}
	a.account.Lamports -= v
	return nil
}

// NewAccountInfo wraps an account for direct program tests.
func NewAccountInfo(key solana.PublicKey, signer, writable bool, account *domain.Account) *AccountInfo {
	return &AccountInfo{Key: key, IsSigner: signer, IsWritable: writable, account: account}
}
