// Package badger stores ledger state in an embedded Badger database, for
// validators that run without an external PostgreSQL server.
package badger

import (
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"solana-token-transfer/internal/observability"
)

// Key prefixes. Account and transaction keys are followed by the raw
// address or signature bytes.
var (
	prefixAccount = []byte("a/")
	prefixTx      = []byte("t/")
	prefixAddrTx  = []byte("x/")
	keyProgress   = []byte("m/progress")
	keyTxSequence = []byte("m/txseq")
)

// DB wraps badger.DB for dependency injection.
type DB struct {
	*badger.DB
	seq *badger.Sequence
}

// Open opens (or creates) a database in dir. An empty dir opens an in-memory database.
func Open(dir string) (*DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create badger dir: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence(keyTxSequence, 100)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open tx sequence: %w", err)
	}
	return &DB{DB: db, seq: seq}, nil
}

// Close releases the sequence lease and closes the database.
func (d *DB) Close() error {
	if err := d.seq.Release(); err != nil {
		d.DB.Close()
		return fmt.Errorf("release tx sequence: %w", err)
	}
	return d.DB.Close()
}

func prefixed(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}

func observe(op string, start time.Time, err *error) {
	observability.RecordDBQuery("badger", op, time.Since(start).Seconds(), *err)
}
