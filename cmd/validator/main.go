// Command validator runs a single-node ledger with the token-transfer program
// loaded and serves it over JSON-RPC and WebSocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"solana-token-transfer/internal/config"
	"solana-token-transfer/internal/ledger"
	"solana-token-transfer/internal/rpc"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var configPath string

	cmd := &cobra.Command{
		Use:          "validator",
		Short:        "Run a local ledger serving the token-transfer program",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}
			config.ConfigureLogger(cfg.Log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default ./config.yaml if present)")
	flags.String("listen", "", "JSON-RPC and WebSocket listen address")
	flags.String("storage", "", "storage backend: memory, badger or postgres")
	flags.String("badger-path", "", "badger data directory")
	flags.String("postgres-dsn", "", "PostgreSQL connection string")
	flags.String("clickhouse-dsn", "", "ClickHouse connection string for instruction events")
	flags.String("faucet-keypair", "", "faucet keypair file, created when missing")
	flags.Duration("slot-interval", 0, "time between slots")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	flags.String("log-format", "", "log format: text, color-text or json")

	bind(v, cmd, map[string]string{
		"rpc.listen":             "listen",
		"storage.backend":        "storage",
		"storage.badger_path":    "badger-path",
		"storage.postgres_dsn":   "postgres-dsn",
		"storage.clickhouse_dsn": "clickhouse-dsn",
		"ledger.faucet_keypair":  "faucet-keypair",
		"ledger.slot_interval":   "slot-interval",
		"log.level":              "log-level",
		"log.format":             "log-format",
	})
	return cmd
}

// bind makes explicitly set flags override file and env values.
func bind(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logrus.WithField("component", "validator")

	stores, cleanup, err := openStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	faucet, err := loadFaucet(cfg.Ledger.FaucetKeypair, logger)
	if err != nil {
		return err
	}

	bank, err := ledger.NewBank(ctx, ledger.BankOptions{
		Stores:             stores,
		FaucetKey:          faucet,
		FaucetLamports:     cfg.Ledger.FaucetLamports,
		AirdropLimit:       cfg.Ledger.AirdropLimit,
		ClusterSeed:        cfg.Ledger.ClusterSeed,
		BlockhashQueueSize: cfg.Ledger.BlockhashQueueSize,
	})
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	if cfg.Ledger.VerifyOnStart {
		if err := audit(ctx, bank, logger); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              cfg.RPC.Listen,
		Handler:           rpc.NewServer(bank, nil).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.WithFields(logrus.Fields{
		"listen":  cfg.RPC.Listen,
		"storage": cfg.Storage.Backend,
		"faucet":  faucet.PublicKey().String(),
	}).Info("rpc server listening")
	return serve(ctx, bank, srv, cfg.Ledger.SlotInterval, cfg.RPC.ShutdownTimeout, logger)
}

// serve runs the slot clock and the RPC server until ctx is cancelled or the
// server fails. It returns only after the slot clock has stopped, so the
// caller may close the stores.
func serve(ctx context.Context, bank *ledger.Bank, srv *http.Server, interval, shutdownTimeout time.Duration, logger *logrus.Entry) error {
	clockCtx, stopClock := context.WithCancel(ctx)
	defer stopClock()

	clockDone := make(chan error, 1)
	go func() {
		clockDone <- bank.Run(clockCtx, interval)
	}()
	serveDone := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- fmt.Errorf("rpc server: %w", err)
			return
		}
		serveDone <- nil
	}()

	var firstErr error
	clockStopped := false
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case firstErr = <-serveDone:
	case firstErr = <-clockDone:
		clockStopped = true
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("rpc server shutdown")
	}

	stopClock()
	if !clockStopped {
		if err := <-clockDone; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return firstErr
	}
	logger.WithField("slot", bank.Slot()).Info("shutdown complete")
	return nil
}
