package memory

import "solana-token-transfer/internal/storage"

// NewStores returns a fresh in-memory implementation of every ledger store.
func NewStores() storage.Stores {
	return storage.Stores{
		Accounts:     NewAccountStore(),
		Transactions: NewTransactionStore(),
		Events:       NewInstructionEventStore(),
		Progress:     NewProgressStore(),
	}
}
