package ledger

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-token-transfer/internal/idhash"
	"solana-token-transfer/internal/observability"
	"solana-token-transfer/internal/programs/system"
	"solana-token-transfer/internal/solana"
)

// Airdrop transfers lamports from the faucet to recipient and returns the signature.
func (b *Bank) Airdrop(ctx context.Context, recipient solana.PublicKey, lamports uint64) (solana.Signature, error) {
	if lamports == 0 {
		return solana.Signature{}, ErrInvalidAirdrop
	}
	if lamports > b.airdropLimit {
		return solana.Signature{}, fmt.Errorf("%w: requested %d, limit %d", ErrAirdropLimit, lamports, b.airdropLimit)
	}

	faucet := b.faucet.PublicKey()
	nonce := idhash.ComputeAirdropNonce(recipient, lamports, b.airdropNonce.Add(1))
	blockhash, _ := b.LatestBlockhash()

	tx, err := solana.NewTransaction([]solana.Instruction{
		system.NewTransferInstruction(faucet, recipient, lamports),
		system.NewTransferInstruction(faucet, nonce, 0),
	}, blockhash, faucet)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build airdrop: %w", err)
	}
	if err := tx.Sign(b.faucet); err != nil {
		return solana.Signature{}, fmt.Errorf("sign airdrop: %w", err)
	}

	receipt, err := b.ProcessTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("airdrop: %w", err)
	}
	if receipt.Err != nil {
		return receipt.Signature, fmt.Errorf("airdrop: %w", receipt.Err)
	}

	observability.RecordAirdrop(lamports)
	b.logger.WithFields(logrus.Fields{
		"recipient": recipient.String(),
		"lamports":  lamports,
	}).Info("airdrop")
	return receipt.Signature, nil
}
