package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/storage"
)

// TransactionStore implements storage.TransactionStore on Badger. Records are
// stored as JSON under their signature, plus one index key per referenced address.
type TransactionStore struct {
	db *DB
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(db *DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a processed transaction. Returns ErrDuplicateKey if the signature exists.
func (s *TransactionStore) Insert(_ context.Context, r *domain.TransactionRecord) (err error) {
	defer observe("insert_transaction", time.Now(), &err)

	if r == nil || r.Signature == "" {
		return storage.ErrInvalidInput
	}

	val, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	seq, err := s.db.seq.Next()
	if err != nil {
		return fmt.Errorf("next tx sequence: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := prefixed(prefixTx, []byte(r.Signature))
		if _, err := txn.Get(key); err == nil {
			return storage.ErrDuplicateKey
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, val); err != nil {
			return err
		}

		seen := make(map[string]struct{}, len(r.AccountKeys))
		for _, addr := range r.AccountKeys {
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			if err := txn.Set(addressKey(addr, seq), []byte(r.Signature)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return err
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetBySignature retrieves a transaction. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(_ context.Context, signature string) (*domain.TransactionRecord, error) {
	var r *domain.TransactionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		r, err = getTransaction(txn, signature)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return r, nil
}

// GetByAddress retrieves up to limit transactions referencing address, newest first.
func (s *TransactionStore) GetByAddress(_ context.Context, address string, limit int) (_ []*domain.TransactionRecord, err error) {
	defer observe("transactions_by_address", time.Now(), &err)

	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	var result []*domain.TransactionRecord
	err = s.db.View(func(txn *badger.Txn) error {
		prefix := addressPrefix(address)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: limit})
		defer it.Close()

		for it.Rewind(); it.Valid() && len(result) < limit; it.Next() {
			sig, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			r, err := getTransaction(txn, string(sig))
			if err != nil {
				return fmt.Errorf("load %s: %w", sig, err)
			}
			result = append(result, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get transactions by address: %w", err)
	}
	return result, nil
}

func getTransaction(txn *badger.Txn, signature string) (*domain.TransactionRecord, error) {
	item, err := txn.Get(prefixed(prefixTx, []byte(signature)))
	if err != nil {
		return nil, err
	}
	var r domain.TransactionRecord
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func addressPrefix(address string) []byte {
	return prefixed(prefixAddrTx, []byte(address+"/"))
}

// addressKey orders entries newest first by storing the inverted sequence big-endian.
func addressKey(address string, seq uint64) []byte {
	var suffix [8]byte
	binary.BigEndian.PutUint64(suffix[:], math.MaxUint64-seq)
	return append(addressPrefix(address), suffix[:]...)
}
