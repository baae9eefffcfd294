package memory

import (
	"context"
	"sync"

	"solana-token-transfer/internal/storage"
)

// ProgressStore is an in-memory implementation of storage.ProgressStore.
type ProgressStore struct {
	mu       sync.RWMutex
	progress *storage.LedgerProgress
}

// NewProgressStore creates a new in-memory progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{}
}

var _ storage.ProgressStore = (*ProgressStore)(nil)

// GetLastProcessed returns the last committed slot and blockhash.
func (s *ProgressStore) GetLastProcessed(_ context.Context) (*storage.LedgerProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.progress == nil {
		return nil, storage.ErrNotFound
	}
	p := *s.progress
	return &p, nil
}

// SetLastProcessed saves the last committed slot and blockhash.
func (s *ProgressStore) SetLastProcessed(_ context.Context, progress *storage.LedgerProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := *progress
	s.progress = &p
	return nil
}
