package ledger

import (
	"context"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/programs/tokentransfer"
	"solana-token-transfer/internal/solana"
)

// instructionEvents describes every top-level token-transfer instruction of tx.
// A failed transaction rolls back as a whole, so all of its events are unsuccessful
// and only the failing instruction carries the error.
func (b *Bank) instructionEvents(ctx context.Context, tx *solana.Transaction, slot uint64, timestampMs int64, txErr error) []*domain.InstructionEvent {
	failed := failedIndex(txErr)
	var events []*domain.InstructionEvent

	for i := range tx.Message.Instructions {
		ix := tx.Message.Instruction(i)
		if ix.ProgramID != tokentransfer.ProgramID {
			continue
		}
		ev := &domain.InstructionEvent{
			Signature:   tx.Signature().String(),
			Slot:        slot,
			Index:       i,
			Success:     txErr == nil,
			TimestampMs: timestampMs,
		}
		if i == failed {
			ev.Error = txErr.Error()
		} else if txErr != nil && failed < 0 {
			ev.Error = txErr.Error()
		}

		decoded, err := tokentransfer.DecodeInstruction(ix.Data)
		if err != nil {
			ev.Instruction = "unknown"
			events = append(events, ev)
			continue
		}
		ev.Instruction = decoded.Name
		ev.Amount = decoded.Amount

		key := func(n int) string {
			if m := ix.Accounts.Get(n); m != nil {
				return m.PublicKey.String()
			}
			return ""
		}
		switch decoded.Name {
		case tokentransfer.InstructionInitializeToken:
			ev.Destination = key(0)
			ev.Mint = key(1)
			ev.Authority = key(2)
		case tokentransfer.InstructionMintToken:
			ev.Mint = key(0)
			ev.Destination = key(1)
			ev.Authority = key(2)
		case tokentransfer.InstructionGetBalance:
			ev.Source = key(0)
			ev.Mint = b.tokenAccountMint(ctx, ix.Accounts.Get(0))
		case tokentransfer.InstructionTransferToken:
			ev.Source = key(0)
			ev.Destination = key(1)
			ev.Authority = key(2)
			ev.Mint = b.tokenAccountMint(ctx, ix.Accounts.Get(0))
		case tokentransfer.InstructionBurnToken:
			ev.Mint = key(0)
			ev.Source = key(1)
			ev.Authority = key(2)
		}
		events = append(events, ev)
	}
	return events
}

// tokenAccountMint looks up the mint of a committed token account.
func (b *Bank) tokenAccountMint(ctx context.Context, meta *solana.AccountMeta) string {
	if meta == nil {
		return ""
	}
	acc, err := b.load(ctx, meta.PublicKey)
	if err != nil || acc == nil {
		return ""
	}
	ta, err := layout.DecodeTokenAccount(acc.Data)
	if err != nil {
		return ""
	}
	return ta.Mint.String()
}
