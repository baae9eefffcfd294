package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/observability"
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
	"solana-token-transfer/internal/storage"
)

// Receipt is the outcome of a transaction that reached execution.
type Receipt struct {
	Signature  solana.Signature
	Slot       uint64
	Err        error // nil when the transaction committed
	Logs       []string
	ReturnData *domain.ReturnData
}

// ProcessTransaction verifies, executes and commits tx.
//
// A returned error means the transaction was rejected before execution
// (a *runtime.TransactionError such as ErrSignatureFailure or ErrBlockhashNotFound)
// or that the stores failed. Execution failures are reported in Receipt.Err;
// their state changes are discarded but the transaction is still recorded.
func (b *Bank) ProcessTransaction(ctx context.Context, tx *solana.Transaction) (*Receipt, error) {
	start := time.Now()
	receipt, err := b.processTransaction(ctx, tx)
	switch {
	case err != nil:
		observability.RecordTransaction(err, time.Since(start).Seconds())
	case receipt != nil:
		observability.RecordTransaction(receipt.Err, time.Since(start).Seconds())
	}
	return receipt, err
}

func (b *Bank) processTransaction(ctx context.Context, tx *solana.Transaction) (*Receipt, error) {
	if err := b.verify(tx, true); err != nil {
		return nil, err
	}

	writable, readonly := runtime.LockKeys(&tx.Message)
	unlock, err := b.locks.Lock(ctx, writable, readonly)
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	defer unlock()

	sig := tx.Signature()
	b.mu.RLock()
	_, seen := b.processed[sig]
	slot := b.slot
	b.mu.RUnlock()
	if seen {
		return nil, runtime.ErrAlreadyProcessed
	}
	// The status cache starts empty after a restart.
	if _, err := b.stores.Transactions.GetBySignature(ctx, sig.String()); err == nil {
		return nil, runtime.ErrAlreadyProcessed
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check signature: %w", err)
	}

	blockTime := b.now().Unix()
	res, err := b.rt.Execute(ctx, &tx.Message, b.load, runtime.Environment{Slot: slot, UnixTimestamp: blockTime})
	if err != nil {
		return nil, err
	}

	if res.Err == nil {
		if err := b.stores.Accounts.Commit(ctx, slot, res.Accounts); err != nil {
			return nil, fmt.Errorf("commit accounts: %w", err)
		}
		observability.RecordCommit(blockTime)
	}

	b.mu.Lock()
	b.processed[sig] = slot
	b.mu.Unlock()

	b.record(ctx, tx, slot, blockTime, res)
	if res.Err == nil {
		b.notifier.Publish(slot, res.Accounts)
	}

	b.logger.WithFields(logrus.Fields{
		"signature": sig.String(),
		"slot":      slot,
		"ok":        res.Err == nil,
	}).Debug("processed transaction")

	return &Receipt{
		Signature:  sig,
		Slot:       slot,
		Err:        res.Err,
		Logs:       res.Logs,
		ReturnData: res.ReturnData,
	}, nil
}

// Simulate executes tx against committed state without committing anything.
// Signature verification is skipped unless sigVerify is set.
func (b *Bank) Simulate(ctx context.Context, tx *solana.Transaction, sigVerify bool) (*runtime.Result, error) {
	if err := b.verify(tx, sigVerify); err != nil {
		return nil, err
	}
	env := runtime.Environment{Slot: b.Slot(), UnixTimestamp: b.now().Unix()}
	return b.rt.Execute(ctx, &tx.Message, b.load, env)
}

// verify runs the checks that reject a transaction before it is locked or executed.
func (b *Bank) verify(tx *solana.Transaction, sigVerify bool) error {
	if err := tx.Message.Sanitize(); err != nil {
		return runtime.ErrSanitizeFailure
	}
	if sigVerify {
		if err := tx.VerifySignatures(); err != nil {
			b.logger.WithError(err).Debug("rejecting transaction")
			return runtime.ErrSignatureFailure
		}
	}
	if !b.IsBlockhashValid(tx.Message.RecentBlockhash) {
		return runtime.ErrBlockhashNotFound
	}
	return nil
}

// record persists the transaction and its token-transfer instruction events.
// Failures are logged: the account state is already committed.
func (b *Bank) record(ctx context.Context, tx *solana.Transaction, slot uint64, blockTime int64, res *runtime.Result) {
	sig := tx.Signature().String()
	rec := &domain.TransactionRecord{
		Signature:  sig,
		Slot:       slot,
		BlockTime:  blockTime,
		FeePayer:   tx.Message.FeePayer().String(),
		Logs:       res.Logs,
		ReturnData: res.ReturnData,
	}
	for _, k := range tx.Message.AccountKeys {
		rec.AccountKeys = append(rec.AccountKeys, k.String())
	}
	if res.Err != nil {
		encoded, err := json.Marshal(runtime.ErrorValue(res.Err))
		if err != nil {
			encoded = []byte(fmt.Sprintf("%q", res.Err.Error()))
		}
		s := string(encoded)
		rec.Err = &s
	}
	if raw, err := tx.MarshalBinary(); err == nil {
		rec.Raw = raw
	}

	log := b.logger.WithField("signature", sig)
	if err := b.stores.Transactions.Insert(ctx, rec); err != nil {
		log.WithError(err).Error("store transaction")
	}

	events := b.instructionEvents(ctx, tx, slot, blockTime*1000, res.Err)
	for _, ev := range events {
		observability.RecordInstruction(ev.Instruction, ev.Success)
	}
	if b.stores.Events == nil || len(events) == 0 {
		return
	}
	if err := b.stores.Events.InsertBulk(ctx, events); err != nil {
		log.WithError(err).Error("store instruction events")
	}
}

// failedIndex returns the index of the failing instruction, or -1.
func failedIndex(err error) int {
	var ie *runtime.InstructionError
	if errors.As(err, &ie) {
		return ie.Index
	}
	return -1
}
