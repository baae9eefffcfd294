package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-token-transfer/internal/config"
	"solana-token-transfer/internal/storage"
	badgerstore "solana-token-transfer/internal/storage/badger"
	chstore "solana-token-transfer/internal/storage/clickhouse"
	"solana-token-transfer/internal/storage/memory"
	"solana-token-transfer/internal/storage/migrations"
	pgstore "solana-token-transfer/internal/storage/postgres"
)

// openStores builds the configured backend. The returned cleanup closes every connection.
func openStores(ctx context.Context, cfg config.StorageConfig, logger *logrus.Entry) (storage.Stores, func(), error) {
	var (
		stores  storage.Stores
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Backend {
	case config.BackendMemory:
		stores = memory.NewStores()

	case config.BackendBadger:
		db, err := badgerstore.Open(cfg.BadgerPath)
		if err != nil {
			return storage.Stores{}, nil, err
		}
		closers = append(closers, func() {
			if err := db.Close(); err != nil {
				logger.WithError(err).Warn("close badger")
			}
		})
		stores = storage.Stores{
			Accounts:     badgerstore.NewAccountStore(db),
			Transactions: badgerstore.NewTransactionStore(db),
			Progress:     badgerstore.NewProgressStore(db),
		}

	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return storage.Stores{}, nil, err
		}
		closers = append(closers, pool.Close)
		if err := migrations.ApplyPostgres(ctx, pool, logger); err != nil {
			cleanup()
			return storage.Stores{}, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		stores = storage.Stores{
			Accounts:     pgstore.NewAccountStore(pool),
			Transactions: pgstore.NewTransactionStore(pool),
			Progress:     pgstore.NewProgressStore(pool),
		}

	default:
		return storage.Stores{}, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.OpenClickhouse(ctx, cfg.ClickHouseDSN, logger)
		if err != nil {
			cleanup()
			return storage.Stores{}, nil, fmt.Errorf("clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		stores.Events = chstore.NewInstructionEventStore(conn)
	} else if stores.Events == nil {
		logger.Warn("no clickhouse dsn: instruction events are not recorded")
	}

	logger.WithField("backend", cfg.Backend).Info("storage opened")
	return stores, cleanup, nil
}
