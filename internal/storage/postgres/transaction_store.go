package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a processed transaction. Returns ErrDuplicateKey if the signature exists.
func (s *TransactionStore) Insert(ctx context.Context, r *domain.TransactionRecord) (err error) {
	defer observe("insert_transaction", time.Now(), &err)

	if r == nil || r.Signature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transactions (
			signature, slot, block_time, fee_payer, account_keys, err, logs, return_program, return_data, raw
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var returnProgram *string
	var returnData []byte
	if r.ReturnData != nil {
		returnProgram = &r.ReturnData.ProgramID
		returnData = r.ReturnData.Data
	}
	keys := r.AccountKeys
	if keys == nil {
		keys = []string{}
	}

	_, err = s.pool.Exec(ctx, query,
		r.Signature,
		r.Slot,
		r.BlockTime,
		r.FeePayer,
		keys,
		r.Err,
		r.Logs,
		returnProgram,
		returnData,
		r.Raw,
	)
	if err != nil {
		return translate("insert transaction", err)
	}
	return nil
}

// GetBySignature retrieves a transaction. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(ctx context.Context, signature string) (*domain.TransactionRecord, error) {
	query := `
		SELECT signature, slot, block_time, fee_payer, account_keys, err, logs, return_program, return_data, raw
		FROM transactions
		WHERE signature = $1
	`

	r, err := scanTransaction(s.pool.QueryRow(ctx, query, signature))
	if err != nil {
		return nil, translate("get transaction", err)
	}
	return r, nil
}

// GetByAddress retrieves up to limit transactions referencing address, newest first.
func (s *TransactionStore) GetByAddress(ctx context.Context, address string, limit int) (_ []*domain.TransactionRecord, err error) {
	defer observe("transactions_by_address", time.Now(), &err)

	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT signature, slot, block_time, fee_payer, account_keys, err, logs, return_program, return_data, raw
		FROM transactions
		WHERE account_keys @> ARRAY[$1]::TEXT[]
		ORDER BY slot DESC, id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, address, limit)
	if err != nil {
		return nil, fmt.Errorf("get transactions by address: %w", err)
	}
	defer rows.Close()

	var result []*domain.TransactionRecord
	for rows.Next() {
		r, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return result, nil
}

func scanTransaction(row pgx.Row) (*domain.TransactionRecord, error) {
	var (
		r             domain.TransactionRecord
		returnProgram *string
		returnData    []byte
	)
	err := row.Scan(
		&r.Signature,
		&r.Slot,
		&r.BlockTime,
		&r.FeePayer,
		&r.AccountKeys,
		&r.Err,
		&r.Logs,
		&returnProgram,
		&returnData,
		&r.Raw,
	)
	if err != nil {
		return nil, err
	}
	if returnProgram != nil {
		r.ReturnData = &domain.ReturnData{ProgramID: *returnProgram, Data: returnData}
	}
	return &r, nil
}
