package main

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/solana"
	"solana-token-transfer/internal/verification"
)

// rpcAccounts lists program accounts over getProgramAccounts.
type rpcAccounts struct {
	client solana.RPCClient
}

func (r rpcAccounts) AccountsByOwner(ctx context.Context, program solana.PublicKey) ([]*domain.KeyedAccount, error) {
	keyed, err := r.client.GetProgramAccounts(ctx, program.String())
	if err != nil {
		return nil, err
	}
	out := make([]*domain.KeyedAccount, 0, len(keyed))
	for _, k := range keyed {
		key, err := solana.PublicKeyFromBase58(k.Pubkey)
		if err != nil {
			return nil, err
		}
		data, err := base64.StdEncoding.DecodeString(k.Account.Data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", k.Pubkey, err)
		}
		out = append(out, &domain.KeyedAccount{
			Key: key,
			Account: &domain.Account{
				Lamports:   k.Account.Lamports,
				Owner:      program,
				Data:       data,
				Executable: k.Account.Executable,
				RentEpoch:  k.Account.RentEpoch,
			},
		})
	}
	return out, nil
}

func cmdAudit() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check that every mint's supply equals the sum of its token accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := unwrapSession(cmd.Context())
			report, err := verification.NewSupplyVerifier(rpcAccounts{client: s.client}).VerifyAll(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.print(report); err != nil {
				return err
			}
			if !report.OK() {
				return fmt.Errorf("%d divergent mints, %d orphaned accounts", report.DivergentMints, len(report.Orphans))
			}
			return nil
		},
	}
}
