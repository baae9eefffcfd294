package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.TransactionRecord
	order []string // signatures in insertion order
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data: make(map[string]*domain.TransactionRecord),
	}
}

var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a processed transaction. Returns ErrDuplicateKey if the signature exists.
func (s *TransactionStore) Insert(_ context.Context, r *domain.TransactionRecord) error {
	if r == nil || r.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Signature]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[r.Signature] = copyRecord(r)
	s.order = append(s.order, r.Signature)
	return nil
}

// GetBySignature retrieves a transaction. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(_ context.Context, signature string) (*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyRecord(r), nil
}

// GetByAddress retrieves up to limit transactions referencing address, newest first.
func (s *TransactionStore) GetByAddress(_ context.Context, address string, limit int) ([]*domain.TransactionRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransactionRecord
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.data[s.order[i]]
		for _, k := range r.AccountKeys {
			if k == address {
				result = append(result, copyRecord(r))
				break
			}
		}
	}

	// Insertion order already tracks slots; the stable sort only guards out-of-order inserts.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Slot > result[j].Slot
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyRecord(r *domain.TransactionRecord) *domain.TransactionRecord {
	c := *r
	c.AccountKeys = append([]string(nil), r.AccountKeys...)
	c.Logs = append([]string(nil), r.Logs...)
	c.Raw = append([]byte(nil), r.Raw...)
	if r.Err != nil {
		e := *r.Err
		c.Err = &e
	}
	if r.ReturnData != nil {
		c.ReturnData = &domain.ReturnData{
			ProgramID: r.ReturnData.ProgramID,
			Data:      append([]byte(nil), r.ReturnData.Data...),
		}
	}
	return &c
}
