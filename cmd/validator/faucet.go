package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"solana-token-transfer/internal/solana"
)

// loadFaucet reads the faucet keypair, writing a fresh one on first start.
// An empty path yields an ephemeral key.
func loadFaucet(path string, logger *logrus.Entry) (solana.PrivateKey, error) {
	if path == "" {
		logger.Warn("no faucet keypair configured, using an ephemeral key")
		return solana.NewRandomPrivateKey()
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		return solana.LoadPrivateKeyFromFile(path)
	case errors.Is(err, fs.ErrNotExist):
		key, err := solana.NewRandomPrivateKey()
		if err != nil {
			return nil, err
		}
		if err := solana.SavePrivateKeyToFile(key, path); err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"path":   path,
			"pubkey": key.PublicKey().String(),
		}).Info("created faucet keypair")
		return key, nil
	default:
		return nil, fmt.Errorf("stat faucet keypair: %w", err)
	}
}
