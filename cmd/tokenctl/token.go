package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/programs/ata"
	"solana-token-transfer/internal/programs/tokentransfer"
	"solana-token-transfer/internal/solana"
)

// mintDecimals fetches and decodes the mint account.
func (s *session) mintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	acc, err := s.client.GetAccountInfo(ctx, mint.String())
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, fmt.Errorf("mint %s does not exist", mint)
	}
	raw, err := base64.StdEncoding.DecodeString(acc.Data)
	if err != nil {
		return 0, fmt.Errorf("decode mint data: %w", err)
	}
	m, err := layout.DecodeMint(raw)
	if err != nil {
		return 0, fmt.Errorf("%s is not a mint: %w", mint, err)
	}
	return m.Decimals, nil
}

// parseAmount converts a decimal amount into base units of mint.
func (s *session) parseAmount(ctx context.Context, mint solana.PublicKey, amount string, raw bool) (uint64, error) {
	if raw {
		return strconv.ParseUint(amount, 10, 64)
	}
	decimals, err := s.mintDecimals(ctx, mint)
	if err != nil {
		return 0, err
	}
	return layout.ParseUIAmount(amount, decimals)
}

func cmdInit() *cobra.Command {
	var decimals uint8
	cmd := &cobra.Command{
		Use:   "init <name> <symbol>",
		Short: "Create a token: a TokenInfo record and its mint, with the signer as authority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := unwrapSession(cmd.Context())
			authority, err := s.signer()
			if err != nil {
				return err
			}
			info, err := solana.NewRandomPrivateKey()
			if err != nil {
				return err
			}
			mint, err := solana.NewRandomPrivateKey()
			if err != nil {
				return err
			}

			sig, err := s.send(cmd.Context(), []solana.Instruction{
				tokentransfer.NewInitializeTokenInstruction(info.PublicKey(), mint.PublicKey(), authority.PublicKey(), args[0], args[1], decimals),
			}, info, mint)
			if err != nil {
				return err
			}
			return s.print(map[string]string{
				"signature": sig,
				"tokenInfo": info.PublicKey().String(),
				"mint":      mint.PublicKey().String(),
			})
		},
	}
	cmd.Flags().Uint8Var(&decimals, "decimals", 9, "decimal places of the token")
	return cmd
}

func cmdInfo() *cobra.Command {
	return &cobra.Command{
		Use:   "info <token-info>",
		Short: "Print a TokenInfo record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := unwrapSession(cmd.Context())
			info, err := s.client.GetTokenInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if info == nil {
				return fmt.Errorf("token info %s does not exist", args[0])
			}
			return s.print(info)
		},
	}
}

func cmdCreateAccount() *cobra.Command {
	return &cobra.Command{
		Use:   "create-account <mint> [owner]",
		Short: "Create the associated token account of owner (default: signer)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := unwrapSession(cmd.Context())
			payer, err := s.signer()
			if err != nil {
				return err
			}
			mint, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return err
			}
			owner, err := s.addressOrSelf(args, 1)
			if err != nil {
				return err
			}
			ix, addr, err := ata.NewCreateInstruction(payer.PublicKey(), owner, mint)
			if err != nil {
				return err
			}
			sig, err := s.send(cmd.Context(), []solana.Instruction{ix})
			if err != nil {
				return err
			}
			return s.print(map[string]string{"signature": sig, "account": addr.String()})
		},
	}
}

func cmdMint() *cobra.Command {
	var (
		to  string
		raw bool
	)
	cmd := &cobra.Command{
		Use:   "mint <mint> <amount>",
		Short: "Mint tokens to a wallet's associated token account (default: signer)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := unwrapSession(ctx)
			authority, err := s.signer()
			if err != nil {
				return err
			}
			mint, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return err
			}
			amount, err := s.parseAmount(ctx, mint, args[1], raw)
			if err != nil {
				return err
			}
			wallet := authority.PublicKey()
			if to != "" {
				if wallet, err = solana.PublicKeyFromBase58(to); err != nil {
					return err
				}
			}
			create, dest, err := ata.NewCreateIdempotentInstruction(authority.PublicKey(), wallet, mint)
			if err != nil {
				return err
			}

			sig, err := s.send(ctx, []solana.Instruction{
				create,
				tokentransfer.NewMintTokenInstruction(mint, dest, authority.PublicKey(), amount),
			})
			if err != nil {
				return err
			}
			return s.print(map[string]string{
				"signature": sig,
				"account":   dest.String(),
				"amount":    strconv.FormatUint(amount, 10),
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient wallet")
	cmd.Flags().BoolVar(&raw, "raw", false, "amount is in base units")
	return cmd
}

func cmdBalance() *cobra.Command {
	var onchain bool
	cmd := &cobra.Command{
		Use:   "balance <mint> [wallet]",
		Short: "Print the token balance of a wallet's associated token account",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := unwrapSession(ctx)
			mint, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return err
			}
			wallet, err := s.addressOrSelf(args, 1)
			if err != nil {
				return err
			}
			account, _, err := ata.FindAddress(wallet, mint)
			if err != nil {
				return err
			}

			if onchain {
				return s.onchainBalance(ctx, account)
			}
			amount, err := s.client.GetTokenAccountBalance(ctx, account.String())
			if err != nil {
				return err
			}
			return s.print(map[string]interface{}{
				"account":        account.String(),
				"amount":         amount.Amount,
				"decimals":       amount.Decimals,
				"uiAmountString": amount.UIAmountString,
			})
		},
	}
	cmd.Flags().BoolVar(&onchain, "onchain", false, "read the balance by simulating get_balance")
	return cmd
}

// onchainBalance simulates get_balance and decodes its return data.
func (s *session) onchainBalance(ctx context.Context, account solana.PublicKey) error {
	payer, err := s.signer()
	if err != nil {
		return err
	}
	latest, err := s.client.GetLatestBlockhash(ctx)
	if err != nil {
		return err
	}
	hash, err := solana.HashFromBase58(latest.Blockhash)
	if err != nil {
		return err
	}
	tx, err := solana.NewTransaction([]solana.Instruction{tokentransfer.NewGetBalanceInstruction(account)}, hash, payer.PublicKey())
	if err != nil {
		return err
	}
	sim, err := s.client.SimulateTransaction(ctx, tx)
	if err != nil {
		return err
	}
	if sim.Err != nil {
		return fmt.Errorf("get_balance failed: %v", sim.Err)
	}
	if sim.ReturnData == nil {
		return fmt.Errorf("get_balance returned no data")
	}
	balance, err := tokentransfer.DecodeBalance(sim.ReturnData.Data)
	if err != nil {
		return err
	}
	return s.print(map[string]interface{}{
		"account": account.String(),
		"amount":  strconv.FormatUint(balance, 10),
		"logs":    sim.Logs,
	})
}

func cmdTransfer() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:     "transfer <mint> <recipient> <amount>",
		Aliases: []string{"tf"},
		Short:   "Transfer tokens from the signer to a recipient wallet",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := unwrapSession(ctx)
			owner, err := s.signer()
			if err != nil {
				return err
			}
			mint, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return err
			}
			recipient, err := solana.PublicKeyFromBase58(args[1])
			if err != nil {
				return err
			}
			amount, err := s.parseAmount(ctx, mint, args[2], raw)
			if err != nil {
				return err
			}
			from, _, err := ata.FindAddress(owner.PublicKey(), mint)
			if err != nil {
				return err
			}
			create, to, err := ata.NewCreateIdempotentInstruction(owner.PublicKey(), recipient, mint)
			if err != nil {
				return err
			}

			sig, err := s.send(ctx, []solana.Instruction{
				create,
				tokentransfer.NewTransferTokenInstruction(from, to, owner.PublicKey(), amount),
			})
			if err != nil {
				return err
			}
			return s.print(map[string]string{
				"signature": sig,
				"from":      from.String(),
				"to":        to.String(),
				"amount":    strconv.FormatUint(amount, 10),
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "amount is in base units")
	return cmd
}

func cmdBurn() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "burn <mint> <amount>",
		Short: "Burn tokens from the signer's associated token account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := unwrapSession(ctx)
			owner, err := s.signer()
			if err != nil {
				return err
			}
			mint, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return err
			}
			amount, err := s.parseAmount(ctx, mint, args[1], raw)
			if err != nil {
				return err
			}
			account, _, err := ata.FindAddress(owner.PublicKey(), mint)
			if err != nil {
				return err
			}
			sig, err := s.send(ctx, []solana.Instruction{
				tokentransfer.NewBurnTokenInstruction(mint, account, owner.PublicKey(), amount),
			})
			if err != nil {
				return err
			}
			return s.print(map[string]string{
				"signature": sig,
				"account":   account.String(),
				"amount":    strconv.FormatUint(amount, 10),
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "amount is in base units")
	return cmd
}
