package storage

import "context"

// LedgerProgress is the last committed position of the ledger.
type LedgerProgress struct {
	Slot      uint64 // last committed slot
	Blockhash string // blockhash issued for Slot
}

// ProgressStore persists ledger progress so a restarted validator resumes
// from its last slot instead of genesis.
type ProgressStore interface {
	// GetLastProcessed returns the last committed slot and blockhash.
	// Returns ErrNotFound if no progress has been saved yet.
	GetLastProcessed(ctx context.Context) (*LedgerProgress, error)

	// SetLastProcessed saves the last committed slot and blockhash.
	SetLastProcessed(ctx context.Context, progress *LedgerProgress) error
}
