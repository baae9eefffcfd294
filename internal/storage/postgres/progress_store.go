package postgres

import (
	"context"
	"fmt"

	"solana-token-transfer/internal/storage"
)

// ProgressStore is a PostgreSQL implementation of storage.ProgressStore.
// Uses the single-row ledger_progress table.
type ProgressStore struct {
	pool *Pool
}

// NewProgressStore creates a new PostgreSQL progress store.
func NewProgressStore(pool *Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

var _ storage.ProgressStore = (*ProgressStore)(nil)

// GetLastProcessed returns the last committed slot and blockhash.
func (s *ProgressStore) GetLastProcessed(ctx context.Context) (*storage.LedgerProgress, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT slot, blockhash
		FROM ledger_progress
		WHERE id = 1
	`)

	var progress storage.LedgerProgress
	if err := row.Scan(&progress.Slot, &progress.Blockhash); err != nil {
		return nil, translate("get ledger progress", err)
	}

	return &progress, nil
}

// SetLastProcessed saves the last committed slot and blockhash.
func (s *ProgressStore) SetLastProcessed(ctx context.Context, progress *storage.LedgerProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ledger_progress (id, slot, blockhash, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET slot = EXCLUDED.slot,
		    blockhash = EXCLUDED.blockhash,
		    updated_at = NOW()
	`, progress.Slot, progress.Blockhash)
	if err != nil {
		return fmt.Errorf("set ledger progress: %w", err)
	}
	return nil
}
