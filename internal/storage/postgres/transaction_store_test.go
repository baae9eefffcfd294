package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/storage"
)

func TestTransactionStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)

	rec := &domain.TransactionRecord{
		Signature:   "sig1",
		Slot:        12,
		BlockTime:   1704067200,
		FeePayer:    "payer",
		AccountKeys: []string{"payer", "account"},
		Err:         ptr(`{"InstructionError":[0,{"Custom":1}]}`),
		Logs:        []string{"Program log: Instruction: TransferToken", "Program log: Error: insufficient funds"},
		ReturnData:  &domain.ReturnData{ProgramID: "prog", Data: []byte{0xe8, 0x03, 0, 0, 0, 0, 0, 0}},
		Raw:         []byte{1, 2, 3},
	}
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetBySignature(ctx, "sig1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	ok := &domain.TransactionRecord{Signature: "sig2", Slot: 13, FeePayer: "payer", AccountKeys: []string{"payer"}}
	require.NoError(t, store.Insert(ctx, ok))
	got, err = store.GetBySignature(ctx, "sig2")
	require.NoError(t, err)
	assert.True(t, got.Succeeded())
	assert.Nil(t, got.ReturnData)
}

func TestTransactionStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)

	rec := &domain.TransactionRecord{Signature: "sig1", FeePayer: "p", AccountKeys: []string{"p"}}
	require.NoError(t, store.Insert(ctx, rec))
	assert.ErrorIs(t, store.Insert(ctx, rec), storage.ErrDuplicateKey)
}

func TestTransactionStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewTransactionStore(pool).GetBySignature(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTransactionStore_GetByAddress(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)

	for _, r := range []*domain.TransactionRecord{
		{Signature: "s1", Slot: 1, FeePayer: "a", AccountKeys: []string{"a", "b"}},
		{Signature: "s2", Slot: 2, FeePayer: "b", AccountKeys: []string{"b"}},
		{Signature: "s3", Slot: 3, FeePayer: "a", AccountKeys: []string{"a"}},
	} {
		require.NoError(t, store.Insert(ctx, r))
	}

	result, err := store.GetByAddress(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "s3", result[0].Signature)
	assert.Equal(t, "s1", result[1].Signature)

	result, err = store.GetByAddress(ctx, "b", 1)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "s2", result[0].Signature)
}
