package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/solana"
	"solana-token-transfer/internal/storage"
)

// AccountStore implements storage.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *Pool
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(pool *Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

// Get retrieves an account by address. Returns ErrNotFound if not exists.
func (s *AccountStore) Get(ctx context.Context, key solana.PublicKey) (_ *domain.Account, err error) {
	defer observe("get_account", time.Now(), &err)

	query := `
		SELECT pubkey, lamports, owner, data, executable, rent_epoch, slot
		FROM accounts
		WHERE pubkey = $1
	`

	ka, err := scanAccount(s.pool.QueryRow(ctx, query, key.String()))
	if err != nil {
		return nil, translate("get account", err)
	}
	return ka.Account, nil
}

// Commit applies account writes in one database transaction. Zero-lamport accounts are deleted.
func (s *AccountStore) Commit(ctx context.Context, slot uint64, accounts []*domain.KeyedAccount) (err error) {
	defer observe("commit_accounts", time.Now(), &err)

	for _, ka := range accounts {
		if ka == nil || ka.Account == nil {
			return storage.ErrInvalidInput
		}
	}
	if len(accounts) == 0 {
		return nil
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		for _, ka := range accounts {
			if err := commitAccount(ctx, tx, slot, ka); err != nil {
				return err
			}
		}
		return nil
	})
}

const upsertAccount = `
	INSERT INTO accounts (pubkey, lamports, owner, data, executable, rent_epoch, slot, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	ON CONFLICT (pubkey) DO UPDATE
	SET lamports = EXCLUDED.lamports,
	    owner = EXCLUDED.owner,
	    data = EXCLUDED.data,
	    executable = EXCLUDED.executable,
	    rent_epoch = EXCLUDED.rent_epoch,
	    slot = EXCLUDED.slot,
	    updated_at = NOW()
`

func commitAccount(ctx context.Context, tx pgx.Tx, slot uint64, ka *domain.KeyedAccount) error {
	acc := ka.Account
	if acc.Lamports == 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE pubkey = $1`, ka.Key.String()); err != nil {
			return fmt.Errorf("delete account %s: %w", ka.Key, err)
		}
		return nil
	}

	data := acc.Data
	if data == nil {
		data = []byte{}
	}
	_, err := tx.Exec(ctx, upsertAccount,
		ka.Key.String(),
		acc.Lamports,
		acc.Owner.String(),
		data,
		acc.Executable,
		acc.RentEpoch,
		slot,
	)
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", ka.Key, err)
	}
	return nil
}

// GetByOwner retrieves all accounts owned by a program, ordered by base58 address.
func (s *AccountStore) GetByOwner(ctx context.Context, owner solana.PublicKey) ([]*domain.KeyedAccount, error) {
	query := `
		SELECT pubkey, lamports, owner, data, executable, rent_epoch, slot
		FROM accounts
		WHERE owner = $1
		ORDER BY pubkey COLLATE "C" ASC
	`

	rows, err := s.pool.Query(ctx, query, owner.String())
	if err != nil {
		return nil, fmt.Errorf("get accounts by owner: %w", err)
	}
	defer rows.Close()

	var result []*domain.KeyedAccount
	for rows.Next() {
		ka, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		result = append(result, ka)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}
	return result, nil
}

func scanAccount(row pgx.Row) (*domain.KeyedAccount, error) {
	var (
		key, owner string
		acc        domain.Account
		slot       uint64
	)
	if err := row.Scan(&key, &acc.Lamports, &owner, &acc.Data, &acc.Executable, &acc.RentEpoch, &slot); err != nil {
		return nil, err
	}

	pk, err := solana.PublicKeyFromBase58(key)
	if err != nil {
		return nil, fmt.Errorf("decode pubkey: %w", err)
	}
	if acc.Owner, err = solana.PublicKeyFromBase58(owner); err != nil {
		return nil, fmt.Errorf("decode owner: %w", err)
	}
	return &domain.KeyedAccount{Key: pk, Account: &acc, Slot: slot}, nil
}
