package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-token-transfer/internal/verification"
)

// audit checks persisted token state before the ledger starts serving.
func audit(ctx context.Context, source verification.AccountSource, logger *logrus.Entry) error {
	report, err := verification.NewSupplyVerifier(source).VerifyAll(ctx)
	if err != nil {
		return fmt.Errorf("verify ledger: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"mints":       report.TotalMints,
		"token_infos": report.TokenInfos,
	}).Info("ledger verified")
	if report.OK() {
		return nil
	}

	for _, r := range report.Results {
		for _, d := range r.Divergences {
			logger.WithField("mint", r.Mint).Error(d.String())
		}
	}
	for _, d := range report.Orphans {
		logger.Error(d.String())
	}
	return fmt.Errorf("verify ledger: %d divergent mints, %d orphaned accounts", report.DivergentMints, len(report.Orphans))
}
