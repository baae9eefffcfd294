package migrations

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-token-transfer/internal/storage/postgres"
)

// ApplyPostgres runs every postgres migration against pool, one file per round trip.
func ApplyPostgres(ctx context.Context, pool *postgres.Pool, logger *logrus.Entry) error {
	files, err := Postgres()
	if err != nil {
		return err
	}
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		logger.WithField("migration", m.Name).Debug("postgres migration applied")
	}
	logger.WithField("count", len(files)).Info("postgres schema ready")
	return nil
}
