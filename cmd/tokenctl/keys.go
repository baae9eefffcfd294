package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/solana"
)

func cmdKeygen() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new keypair at --keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := unwrapSession(cmd.Context())
			if _, err := os.Stat(s.keypairPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", s.keypairPath)
			}
			key, err := solana.NewRandomPrivateKey()
			if err != nil {
				return err
			}
			if err := solana.SavePrivateKeyToFile(key, s.keypairPath); err != nil {
				return err
			}
			return s.print(map[string]string{
				"pubkey":  key.PublicKey().String(),
				"keypair": s.keypairPath,
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing keypair")
	return cmd
}

func cmdAddress() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the public key of the signer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := unwrapSession(cmd.Context())
			key, err := s.signer()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(s.out, key.PublicKey().String())
			return err
		},
	}
}

// addressOrSelf returns args[i] as a key, or the signer's key when absent.
func (s *session) addressOrSelf(args []string, i int) (solana.PublicKey, error) {
	if len(args) > i {
		return solana.PublicKeyFromBase58(args[i])
	}
	key, err := s.signer()
	if err != nil {
		return solana.PublicKey{}, err
	}
	return key.PublicKey(), nil
}

func cmdAirdrop() *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop <sol> [address]",
		Short: "Request SOL from the validator faucet",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := unwrapSession(cmd.Context())
			lamports, err := layout.ParseUIAmount(args[0], 9)
			if err != nil {
				return err
			}
			to, err := s.addressOrSelf(args, 1)
			if err != nil {
				return err
			}
			sig, err := s.client.RequestAirdrop(cmd.Context(), to.String(), lamports)
			if err != nil {
				return err
			}
			return s.print(map[string]string{"signature": sig, "recipient": to.String()})
		},
	}
}

func cmdSolBalance() *cobra.Command {
	return &cobra.Command{
		Use:   "sol-balance [address]",
		Short: "Print the SOL balance of an account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := unwrapSession(cmd.Context())
			addr, err := s.addressOrSelf(args, 0)
			if err != nil {
				return err
			}
			lamports, err := s.client.GetBalance(cmd.Context(), addr.String())
			if err != nil {
				return err
			}
			return s.print(map[string]string{
				"address":  addr.String(),
				"lamports": strconv.FormatUint(lamports, 10),
				"sol":      layout.UIAmountString(lamports, 9),
			})
		},
	}
}
