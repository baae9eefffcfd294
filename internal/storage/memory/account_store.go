package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/solana"
	"solana-token-transfer/internal/storage"
)

type accountEntry struct {
	account *domain.Account
	slot    uint64
}

// AccountStore is an in-memory implementation of storage.AccountStore.
type AccountStore struct {
	mu   sync.RWMutex
	data map[solana.PublicKey]accountEntry
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		data: make(map[solana.PublicKey]accountEntry),
	}
}

var _ storage.AccountStore = (*AccountStore)(nil)

// Get retrieves a copy of an account. Returns ErrNotFound if not exists.
func (s *AccountStore) Get(_ context.Context, key solana.PublicKey) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return e.account.Clone(), nil
}

// Commit applies account writes atomically. Zero-lamport accounts are deleted.
func (s *AccountStore) Commit(_ context.Context, slot uint64, accounts []*domain.KeyedAccount) error {
	for _, ka := range accounts {
		if ka == nil || ka.Account == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ka := range accounts {
		if ka.Account.Lamports == 0 {
			delete(s.data, ka.Key)
			continue
		}
		s.data[ka.Key] = accountEntry{account: ka.Account.Clone(), slot: slot}
	}
	return nil
}

// GetByOwner retrieves all accounts owned by a program, ordered by base58 address.
func (s *AccountStore) GetByOwner(_ context.Context, owner solana.PublicKey) ([]*domain.KeyedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.KeyedAccount
	for key, e := range s.data {
		if e.account.Owner == owner {
			result = append(result, &domain.KeyedAccount{Key: key, Account: e.account.Clone(), Slot: e.slot})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key.String() < result[j].Key.String()
	})
	return result, nil
}
