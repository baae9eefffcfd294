package ledger

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/programs/system"
	"solana-token-transfer/internal/programs/token"
	"solana-token-transfer/internal/programs/tokentransfer"
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
	"solana-token-transfer/internal/storage/memory"
)

func TestProcessTransaction_TokenLifecycle(t *testing.T) {
	stores := memory.NewStores()
	e := setupToken(t, BankOptions{Stores: stores})
	ctx := context.Background()

	infoAcc, err := e.bank.Account(ctx, e.tokenInfo)
	require.NoError(t, err)
	info, err := layout.DecodeTokenInfo(infoAcc.Data)
	require.NoError(t, err)
	assert.Equal(t, "Test Token", info.Name)
	assert.Equal(t, e.mint, info.Mint)

	alice := e.createATA(t, e.authority.PublicKey())
	bob := e.createATA(t, newKey(t).PublicKey())

	r := send(t, e.bank, []solana.Instruction{
		tokentransfer.NewMintTokenInstruction(e.mint, alice, e.authority.PublicKey(), 1000),
	}, e.authority)
	require.NoError(t, r.Err)
	assert.Contains(t, r.Logs, "Program log: Minting 1000 tokens")

	r = send(t, e.bank, []solana.Instruction{
		tokentransfer.NewTransferTokenInstruction(alice, bob, e.authority.PublicKey(), 300),
	}, e.authority)
	require.NoError(t, r.Err)

	r = send(t, e.bank, []solana.Instruction{
		tokentransfer.NewBurnTokenInstruction(e.mint, alice, e.authority.PublicKey(), 200),
	}, e.authority)
	require.NoError(t, r.Err)

	r = send(t, e.bank, []solana.Instruction{tokentransfer.NewGetBalanceInstruction(alice)}, e.authority)
	require.NoError(t, r.Err)
	require.NotNil(t, r.ReturnData)
	assert.Equal(t, tokentransfer.ProgramID.String(), r.ReturnData.ProgramID)
	balance, err := tokentransfer.DecodeBalance(r.ReturnData.Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), balance)

	assert.Equal(t, uint64(500), tokenBalance(t, e.bank, alice))
	assert.Equal(t, uint64(300), tokenBalance(t, e.bank, bob))

	mintAcc, err := e.bank.Account(ctx, e.mint)
	require.NoError(t, err)
	m, err := layout.DecodeMint(mintAcc.Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(800), m.Supply)

	events, err := e.bank.InstructionEvents(ctx, e.mint.String(), 0, math.MaxInt64)
	require.NoError(t, err)
	var names []string
	for _, ev := range events {
		names = append(names, ev.Instruction)
		assert.True(t, ev.Success)
	}
	assert.Equal(t, []string{
		tokentransfer.InstructionInitializeToken,
		tokentransfer.InstructionMintToken,
		tokentransfer.InstructionTransferToken,
		tokentransfer.InstructionBurnToken,
		tokentransfer.InstructionGetBalance,
	}, names)

	transfer := events[2]
	assert.Equal(t, uint64(300), transfer.Amount)
	assert.Equal(t, alice.String(), transfer.Source)
	assert.Equal(t, bob.String(), transfer.Destination)
	assert.Equal(t, e.authority.PublicKey().String(), transfer.Authority)

	rec, err := e.bank.Transaction(ctx, r.Signature.String())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Greater(t, rec.BlockTime, genesisTime.Unix())
	require.NotNil(t, rec.ReturnData)
	assert.Equal(t, []byte{0xf4, 0x01, 0, 0, 0, 0, 0, 0}, rec.ReturnData.Data)
	assert.NotEmpty(t, rec.Raw)
}

func TestProcessTransaction_FailureIsRecorded(t *testing.T) {
	e := setupToken(t, BankOptions{})
	ctx := context.Background()
	alice := e.createATA(t, e.authority.PublicKey())

	intruder := newKey(t)
	_, err := e.bank.Airdrop(ctx, intruder.PublicKey(), sol)
	require.NoError(t, err)

	r := send(t, e.bank, []solana.Instruction{
		tokentransfer.NewMintTokenInstruction(e.mint, alice, intruder.PublicKey(), 1000),
	}, intruder)
	require.Error(t, r.Err)
	assert.ErrorIs(t, r.Err, token.ErrOwnerMismatch)
	assert.Equal(t, uint64(0), tokenBalance(t, e.bank, alice))

	rec, err := e.bank.Transaction(ctx, r.Signature.String())
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotNil(t, rec.Err)
	assert.JSONEq(t, `{"InstructionError":[0,{"Custom":4}]}`, *rec.Err)

	events, err := e.bank.InstructionEvents(ctx, e.mint.String(), 0, math.MaxInt64)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, tokentransfer.InstructionMintToken, last.Instruction)
	assert.False(t, last.Success)
	assert.Contains(t, last.Error, "custom program error: 0x4")
}

func TestProcessTransaction_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("signature failure", func(t *testing.T) {
		b := newTestBank(t, BankOptions{})
		payer := newKey(t)
		_, err := b.Airdrop(ctx, payer.PublicKey(), sol)
		require.NoError(t, err)

		tx := buildTx(t, b, []solana.Instruction{system.NewTransferInstruction(payer.PublicKey(), newKey(t).PublicKey(), sol/2)}, payer)
		tx.Signatures[0][0] ^= 0xff
		_, err = b.ProcessTransaction(ctx, tx)
		assert.ErrorIs(t, err, runtime.ErrSignatureFailure)
	})

	t.Run("unknown blockhash", func(t *testing.T) {
		b := newTestBank(t, BankOptions{})
		payer := newKey(t)
		tx, err := solana.NewTransaction([]solana.Instruction{
			system.NewTransferInstruction(payer.PublicKey(), newKey(t).PublicKey(), 1),
		}, solana.Hash{1, 2, 3}, payer.PublicKey())
		require.NoError(t, err)
		require.NoError(t, tx.Sign(payer))

		_, err = b.ProcessTransaction(ctx, tx)
		assert.ErrorIs(t, err, runtime.ErrBlockhashNotFound)
	})

	t.Run("expired blockhash", func(t *testing.T) {
		b := newTestBank(t, BankOptions{BlockhashQueueSize: 2})
		payer := newKey(t)
		_, err := b.Airdrop(ctx, payer.PublicKey(), sol)
		require.NoError(t, err)

		tx := buildTx(t, b, []solana.Instruction{system.NewTransferInstruction(payer.PublicKey(), newKey(t).PublicKey(), sol/2)}, payer)
		for i := 0; i < 2; i++ {
			_, err := b.AdvanceSlot(ctx)
			require.NoError(t, err)
		}
		_, err = b.ProcessTransaction(ctx, tx)
		assert.ErrorIs(t, err, runtime.ErrBlockhashNotFound)
	})

	t.Run("already processed", func(t *testing.T) {
		b := newTestBank(t, BankOptions{})
		payer := newKey(t)
		_, err := b.Airdrop(ctx, payer.PublicKey(), sol)
		require.NoError(t, err)

		tx := buildTx(t, b, []solana.Instruction{system.NewTransferInstruction(payer.PublicKey(), newKey(t).PublicKey(), sol/2)}, payer)
		r, err := b.ProcessTransaction(ctx, tx)
		require.NoError(t, err)
		require.NoError(t, r.Err)

		_, err = b.ProcessTransaction(ctx, tx)
		assert.ErrorIs(t, err, runtime.ErrAlreadyProcessed)

		acc, err := b.Account(ctx, payer.PublicKey())
		require.NoError(t, err)
		assert.Equal(t, uint64(sol/2), acc.Lamports)
	})

	t.Run("already processed after restart", func(t *testing.T) {
		stores := memory.NewStores()
		faucet := newKey(t)
		b := newTestBank(t, BankOptions{Stores: stores, FaucetKey: faucet})
		payer := newKey(t)
		_, err := b.Airdrop(ctx, payer.PublicKey(), sol)
		require.NoError(t, err)

		tx := buildTx(t, b, []solana.Instruction{system.NewTransferInstruction(payer.PublicKey(), newKey(t).PublicKey(), sol/2)}, payer)
		_, err = b.ProcessTransaction(ctx, tx)
		require.NoError(t, err)

		resumed := newTestBank(t, BankOptions{Stores: stores, FaucetKey: faucet})
		_, err = resumed.ProcessTransaction(ctx, tx)
		assert.ErrorIs(t, err, runtime.ErrAlreadyProcessed)
	})

	t.Run("unfunded payer", func(t *testing.T) {
		b := newTestBank(t, BankOptions{})
		payer := newKey(t)
		r := send(t, b, []solana.Instruction{system.NewTransferInstruction(payer.PublicKey(), newKey(t).PublicKey(), 1)}, payer)
		assert.ErrorIs(t, r.Err, runtime.ErrAccountNotFound)
	})
}

func TestProcessTransaction_ConcurrentTransfers(t *testing.T) {
	e := setupToken(t, BankOptions{})
	alice := e.createATA(t, e.authority.PublicKey())
	bob := e.createATA(t, newKey(t).PublicKey())

	r := send(t, e.bank, []solana.Instruction{
		tokentransfer.NewMintTokenInstruction(e.mint, alice, e.authority.PublicKey(), 1000),
	}, e.authority)
	require.NoError(t, r.Err)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 1; i <= workers; i++ {
		// Distinct amounts keep the transactions (and their signatures) distinct.
		tx := buildTx(t, e.bank, []solana.Instruction{
			tokentransfer.NewTransferTokenInstruction(alice, bob, e.authority.PublicKey(), uint64(i)),
		}, e.authority)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := e.bank.ProcessTransaction(context.Background(), tx)
			if err == nil {
				err = r.Err
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	moved := uint64(workers * (workers + 1) / 2)
	assert.Equal(t, moved, tokenBalance(t, e.bank, bob))
	assert.Equal(t, 1000-moved, tokenBalance(t, e.bank, alice))
}

func TestProcessTransaction_LockWaitHonoursContext(t *testing.T) {
	b := newTestBank(t, BankOptions{})
	payer := newKey(t)
	_, err := b.Airdrop(context.Background(), payer.PublicKey(), sol)
	require.NoError(t, err)

	unlock, err := b.locks.TryLock([]solana.PublicKey{payer.PublicKey()}, nil)
	require.NoError(t, err)
	defer unlock()

	tx := buildTx(t, b, []solana.Instruction{system.NewTransferInstruction(payer.PublicKey(), newKey(t).PublicKey(), 1)}, payer)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = b.ProcessTransaction(ctx, tx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSimulate(t *testing.T) {
	e := setupToken(t, BankOptions{})
	ctx := context.Background()
	alice := e.createATA(t, e.authority.PublicKey())

	tx := buildTx(t, e.bank, []solana.Instruction{
		tokentransfer.NewMintTokenInstruction(e.mint, alice, e.authority.PublicKey(), 77),
		tokentransfer.NewGetBalanceInstruction(alice),
	}, e.authority)

	res, err := e.bank.Simulate(ctx, tx, true)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	require.NotNil(t, res.ReturnData)
	balance, err := tokentransfer.DecodeBalance(res.ReturnData.Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), balance)

	assert.Equal(t, uint64(0), tokenBalance(t, e.bank, alice), "simulation must not commit")
	rec, err := e.bank.Transaction(ctx, tx.Signature().String())
	require.NoError(t, err)
	assert.Nil(t, rec)

	// Unsigned transactions simulate when verification is off.
	tx.Signatures[0] = solana.Signature{}
	_, err = e.bank.Simulate(ctx, tx, true)
	assert.ErrorIs(t, err, runtime.ErrSignatureFailure)
	res, err = e.bank.Simulate(ctx, tx, false)
	require.NoError(t, err)
	assert.NoError(t, res.Err)
}

func TestNotifier_ReceivesCommittedChanges(t *testing.T) {
	e := setupToken(t, BankOptions{})
	alice := e.createATA(t, e.authority.PublicKey())

	id, updates := e.bank.Notifier().Subscribe(alice)
	r := send(t, e.bank, []solana.Instruction{
		tokentransfer.NewMintTokenInstruction(e.mint, alice, e.authority.PublicKey(), 5),
	}, e.authority)
	require.NoError(t, r.Err)

	select {
	case u := <-updates:
		assert.Equal(t, alice, u.Key)
		assert.Equal(t, r.Slot, u.Slot)
		require.NotNil(t, u.Account)
		ta, err := layout.DecodeTokenAccount(u.Account.Data)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), ta.Amount)
	case <-time.After(time.Second):
		t.Fatal("no account notification")
	}

	assert.True(t, e.bank.Notifier().Unsubscribe(id))
	assert.False(t, e.bank.Notifier().Unsubscribe(id))
	_, open := <-updates
	assert.False(t, open)
}
