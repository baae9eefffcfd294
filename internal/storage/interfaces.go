package storage

import (
	"context"
	"errors"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/solana"
)

var (
	// ErrNotFound: no account, transaction or progress row under that key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey: a signature or event key was inserted twice. Transaction
	// and event records are never rewritten.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput: nil records, empty signatures or non-positive limits.
	ErrInvalidInput = errors.New("invalid input")
)

// AccountStore provides access to committed account state.
type AccountStore interface {
	// Get retrieves an account by address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key solana.PublicKey) (*domain.Account, error)

	// Commit applies a set of account writes atomically at the given slot.
	// Accounts with zero lamports are deleted.
	Commit(ctx context.Context, slot uint64, accounts []*domain.KeyedAccount) error

	// GetByOwner retrieves all accounts owned by a program, ordered by base58 address.
	GetByOwner(ctx context.Context, owner solana.PublicKey) ([]*domain.KeyedAccount, error)
}

// TransactionStore provides access to processed transactions.
type TransactionStore interface {
	// Insert adds a processed transaction. Returns ErrDuplicateKey if the signature exists.
	Insert(ctx context.Context, r *domain.TransactionRecord) error

	// GetBySignature retrieves a transaction. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.TransactionRecord, error)

	// GetByAddress retrieves up to limit transactions referencing address, newest first.
	GetByAddress(ctx context.Context, address string, limit int) ([]*domain.TransactionRecord, error)
}

// InstructionEventStore provides access to instruction_events storage.
type InstructionEventStore interface {
	// InsertBulk adds multiple events. Fails entire batch on duplicate (signature, index).
	InsertBulk(ctx context.Context, events []*domain.InstructionEvent) error

	// GetBySignature retrieves the events of one transaction, ordered by index ASC.
	GetBySignature(ctx context.Context, signature string) ([]*domain.InstructionEvent, error)

	// GetByMint retrieves events for a mint within [start, end] ms (inclusive), ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string, start, end int64) ([]*domain.InstructionEvent, error)
}

// Stores groups the stores the ledger writes to.
type Stores struct {
	Accounts     AccountStore
	Transactions TransactionStore
	Events       InstructionEventStore
	Progress     ProgressStore
}
