package memory

import (
	"context"
	"errors"
	"testing"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/solana"
	"solana-token-transfer/internal/storage"
)

func TestAccountStore_CommitAndGet(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()
	key := solana.PublicKey{1}

	acc := &domain.Account{Lamports: 1000, Owner: solana.TokenProgramID, Data: []byte{1, 2, 3}}
	if err := store.Commit(ctx, 5, []*domain.KeyedAccount{{Key: key, Account: acc}}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	acc.Data[0] = 9

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Lamports != 1000 || got.Owner != solana.TokenProgramID {
		t.Errorf("account mismatch: %+v", got)
	}
	if got.Data[0] != 1 {
		t.Errorf("stored data was aliased: %v", got.Data)
	}
}

func TestAccountStore_GetNotFound(t *testing.T) {
	store := NewAccountStore()

	_, err := store.Get(context.Background(), solana.PublicKey{1})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAccountStore_ZeroLamportsDeletes(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()
	key := solana.PublicKey{1}

	if err := store.Commit(ctx, 1, []*domain.KeyedAccount{{Key: key, Account: &domain.Account{Lamports: 10}}}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := store.Commit(ctx, 2, []*domain.KeyedAccount{{Key: key, Account: &domain.Account{}}}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if _, err := store.Get(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after drain, got %v", err)
	}
}

func TestAccountStore_CommitInvalid(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	err := store.Commit(ctx, 1, []*domain.KeyedAccount{
		{Key: solana.PublicKey{1}, Account: &domain.Account{Lamports: 1}},
		{Key: solana.PublicKey{2}},
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.Get(ctx, solana.PublicKey{1}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("partial commit applied: %v", err)
	}
}

func TestAccountStore_GetByOwner(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	err := store.Commit(ctx, 3, []*domain.KeyedAccount{
		{Key: solana.PublicKey{3}, Account: &domain.Account{Lamports: 1, Owner: solana.TokenProgramID}},
		{Key: solana.PublicKey{1}, Account: &domain.Account{Lamports: 1, Owner: solana.TokenProgramID}},
		{Key: solana.PublicKey{2}, Account: &domain.Account{Lamports: 1, Owner: solana.SystemProgramID}},
	})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	result, err := store.GetByOwner(ctx, solana.TokenProgramID)
	if err != nil {
		t.Fatalf("GetByOwner failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(result))
	}
	if result[0].Key.String() >= result[1].Key.String() {
		t.Errorf("accounts not ordered by address: %s, %s", result[0].Key, result[1].Key)
	}
	for _, ka := range result {
		if ka.Key == (solana.PublicKey{2}) {
			t.Errorf("system-owned account returned")
		}
	}
	if result[0].Slot != 3 {
		t.Errorf("Slot mismatch: got %d, want 3", result[0].Slot)
	}
}
