package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	bin "github.com/gagliardetto/binary"

	"solana-token-transfer/internal/storage"
)

// ProgressStore implements storage.ProgressStore on Badger.
type ProgressStore struct {
	db *DB
}

// NewProgressStore creates a new ProgressStore.
func NewProgressStore(db *DB) *ProgressStore {
	return &ProgressStore{db: db}
}

var _ storage.ProgressStore = (*ProgressStore)(nil)

type progressRecord struct {
	Slot      uint64
	Blockhash string
}

// GetLastProcessed returns the last committed slot and blockhash.
func (s *ProgressStore) GetLastProcessed(_ context.Context) (*storage.LedgerProgress, error) {
	var rec progressRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyProgress)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return bin.UnmarshalBorsh(&rec, val)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ledger progress: %w", err)
	}
	return &storage.LedgerProgress{Slot: rec.Slot, Blockhash: rec.Blockhash}, nil
}

// SetLastProcessed saves the last committed slot and blockhash.
func (s *ProgressStore) SetLastProcessed(_ context.Context, progress *storage.LedgerProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}
	val, err := bin.MarshalBorsh(&progressRecord{Slot: progress.Slot, Blockhash: progress.Blockhash})
	if err != nil {
		return fmt.Errorf("encode ledger progress: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyProgress, val)
	})
	if err != nil {
		return fmt.Errorf("set ledger progress: %w", err)
	}
	return nil
}
