package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	bin "github.com/gagliardetto/binary"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/solana"
	"solana-token-transfer/internal/storage"
)

// AccountStore implements storage.AccountStore on Badger.
type AccountStore struct {
	db *DB
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(db *DB) *AccountStore {
	return &AccountStore{db: db}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

// Get retrieves an account by address. Returns ErrNotFound if not exists.
func (s *AccountStore) Get(_ context.Context, key solana.PublicKey) (*domain.Account, error) {
	var ka *domain.KeyedAccount
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(prefixed(prefixAccount, key[:]))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			ka, err = decodeAccount(key, val)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return ka.Account, nil
}

// Commit applies account writes in one Badger transaction. Zero-lamport accounts are deleted.
func (s *AccountStore) Commit(_ context.Context, slot uint64, accounts []*domain.KeyedAccount) (err error) {
	defer observe("commit_accounts", time.Now(), &err)

	for _, ka := range accounts {
		if ka == nil || ka.Account == nil {
			return storage.ErrInvalidInput
		}
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, ka := range accounts {
			key := prefixed(prefixAccount, ka.Key[:])
			if ka.Account.Lamports == 0 {
				if err := txn.Delete(key); err != nil {
					return err
				}
				continue
			}
			val, err := encodeAccount(ka.Account, slot)
			if err != nil {
				return err
			}
			if err := txn.Set(key, val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit accounts: %w", err)
	}
	return nil
}

// GetByOwner retrieves all accounts owned by a program, ordered by base58 address.
func (s *AccountStore) GetByOwner(_ context.Context, owner solana.PublicKey) ([]*domain.KeyedAccount, error) {
	var result []*domain.KeyedAccount
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefixAccount, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key, err := solana.PublicKeyFromBytes(bytes.TrimPrefix(item.Key(), prefixAccount))
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				if len(val) < accountHeaderSize {
					return fmt.Errorf("account %s: record is %d bytes", key, len(val))
				}
				if !bytes.Equal(val[8:8+solana.PublicKeyLength], owner[:]) {
					return nil
				}
				ka, err := decodeAccount(key, val)
				if err != nil {
					return err
				}
				result = append(result, ka)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get accounts by owner: %w", err)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key.String() < result[j].Key.String()
	})
	return result, nil
}

// accountHeaderSize is lamports, owner, executable, rent epoch, slot and data length.
const accountHeaderSize = 8 + solana.PublicKeyLength + 1 + 8 + 8 + 4

// encodeAccount writes the Borsh form: lamports u64 | owner [32] | executable bool |
// rent_epoch u64 | slot u64 | data (u32 length + bytes).
func encodeAccount(acc *domain.Account, slot uint64) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(accountHeaderSize + len(acc.Data))
	enc := bin.NewBorshEncoder(&buf)

	if err := enc.WriteUint64(acc.Lamports, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(acc.Owner[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(acc.Executable); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(acc.RentEpoch, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(slot, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(uint32(len(acc.Data)), bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(acc.Data, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeAccount(key solana.PublicKey, val []byte) (*domain.KeyedAccount, error) {
	if len(val) < accountHeaderSize {
		return nil, fmt.Errorf("account %s: record is %d bytes", key, len(val))
	}
	dec := bin.NewBorshDecoder(val)
	acc := &domain.Account{}

	var err error
	if acc.Lamports, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	owner, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, err
	}
	copy(acc.Owner[:], owner)
	if acc.Executable, err = dec.ReadBool(); err != nil {
		return nil, err
	}
	if acc.RentEpoch, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	slot, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return nil, err
	}
	n, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, err
	}
	data, err := dec.ReadNBytes(int(n))
	if err != nil {
		return nil, err
	}
	acc.Data = append([]byte(nil), data...)

	return &domain.KeyedAccount{Key: key, Account: acc, Slot: slot}, nil
}
