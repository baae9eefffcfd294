// Command tokenctl creates and moves token-transfer tokens on a validator over JSON-RPC.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"solana-token-transfer/internal/config"
	"solana-token-transfer/internal/solana"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type sessionKey struct{}

// session carries the RPC client and signer shared by every subcommand.
type session struct {
	client      solana.RPCClient
	keypairPath string
	key         solana.PrivateKey
	out         io.Writer
}

func withSession(ctx context.Context, s *session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func unwrapSession(ctx context.Context) *session {
	return ctx.Value(sessionKey{}).(*session)
}

// signer loads the keypair on first use.
func (s *session) signer() (solana.PrivateKey, error) {
	if s.key != nil {
		return s.key, nil
	}
	key, err := solana.LoadPrivateKeyFromFile(s.keypairPath)
	if err != nil {
		return nil, fmt.Errorf("%w (create one with `tokenctl keygen`)", err)
	}
	s.key = key
	return key, nil
}

// print writes v as indented JSON.
func (s *session) print(v interface{}) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// send signs ixs with the session key plus extra signers and submits them.
func (s *session) send(ctx context.Context, ixs []solana.Instruction, extra ...solana.PrivateKey) (string, error) {
	payer, err := s.signer()
	if err != nil {
		return "", err
	}
	latest, err := s.client.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("get blockhash: %w", err)
	}
	hash, err := solana.HashFromBase58(latest.Blockhash)
	if err != nil {
		return "", err
	}
	tx, err := solana.NewTransaction(ixs, hash, payer.PublicKey())
	if err != nil {
		return "", err
	}
	if err := tx.Sign(append([]solana.PrivateKey{payer}, extra...)...); err != nil {
		return "", err
	}

	sig, err := s.client.SendTransaction(ctx, tx)
	if err != nil {
		return "", withLogs(err)
	}
	logrus.WithField("signature", sig).Debug("transaction confirmed")
	return sig, nil
}

// withLogs appends program logs carried by a failed send to err.
func withLogs(err error) error {
	var rpcErr *solana.RPCError
	if !errors.As(err, &rpcErr) || len(rpcErr.Data) == 0 {
		return err
	}
	var data struct {
		Logs []string `json:"logs"`
	}
	if json.Unmarshal(rpcErr.Data, &data) != nil || len(data.Logs) == 0 {
		return err
	}
	return fmt.Errorf("%w\n  %s", err, strings.Join(data.Logs, "\n  "))
}

func defaultKeypairPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "id.json"
	}
	return filepath.Join(home, ".config", "token-ledger", "id.json")
}

func newRootCmd() *cobra.Command {
	var (
		url         string
		keypairPath string
		logLevel    string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:          "tokenctl",
		Short:        "Create, mint, transfer and burn token-transfer tokens",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config.ConfigureLogger(config.LogConfig{Level: logLevel, Format: "text"})
			s := &session{
				client:      solana.NewHTTPClient(url, solana.WithTimeout(timeout), solana.WithMaxRetries(1)),
				keypairPath: keypairPath,
				out:         cmd.OutOrStdout(),
			}
			logrus.WithFields(logrus.Fields{"rpc": url, "keypair": keypairPath}).Debug("session")
			cmd.SetContext(withSession(cmd.Context(), s))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&url, "url", "u", "http://127.0.0.1:8899", "validator JSON-RPC endpoint")
	flags.StringVarP(&keypairPath, "keypair", "k", defaultKeypairPath(), "signer keypair file")
	flags.StringVar(&logLevel, "log-level", "warn", "log level")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "RPC request timeout")

	cmd.AddCommand(
		cmdKeygen(),
		cmdAddress(),
		cmdAirdrop(),
		cmdSolBalance(),
		cmdInit(),
		cmdInfo(),
		cmdCreateAccount(),
		cmdMint(),
		cmdBalance(),
		cmdTransfer(),
		cmdBurn(),
		cmdHistory(),
		cmdEvents(),
		cmdReport(),
		cmdAudit(),
	)
	return cmd
}
