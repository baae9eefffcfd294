// Package ledger runs the single-node bank: slot clock, recent blockhashes,
// transaction processing and persistence of committed state.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/idhash"
	"solana-token-transfer/internal/observability"
	"solana-token-transfer/internal/programs"
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
	"solana-token-transfer/internal/storage"
)

// Defaults for BankOptions.
const (
	DefaultFaucetLamports = 500_000_000 * 1_000_000_000 // 500M SOL
	DefaultAirdropLimit   = 1_000 * 1_000_000_000       // 1000 SOL
	DefaultSlotInterval   = 400 * time.Millisecond
	DefaultClusterSeed    = "local"
)

// BankOptions contains configuration for creating a Bank.
type BankOptions struct {
	Stores             storage.Stores
	FaucetKey          solana.PrivateKey // generated when nil
	FaucetLamports     uint64            // genesis faucet balance
	AirdropLimit       uint64            // max lamports per airdrop request
	ClusterSeed        string            // seeds the genesis blockhash
	BlockhashQueueSize int
	Rent               *runtime.Rent
	Now                func() time.Time
	Logger             *logrus.Entry
}

// Bank owns the ledger state machine.
type Bank struct {
	rt           *runtime.Runtime
	stores       storage.Stores
	locks        *runtime.AccountLocks
	notifier     *Notifier
	faucet       solana.PrivateKey
	airdropLimit uint64
	airdropNonce atomic.Uint64
	now          func() time.Time
	logger       *logrus.Entry

	mu          sync.RWMutex
	slot        uint64
	blockhashes *blockhashQueue
	processed   map[solana.Signature]uint64 // status cache: signature -> slot
}

// NewBank opens the ledger on opts.Stores, writing genesis on first start and
// resuming from the last committed slot afterwards.
func NewBank(ctx context.Context, opts BankOptions) (*Bank, error) {
	if opts.Stores.Accounts == nil || opts.Stores.Transactions == nil || opts.Stores.Progress == nil {
		return nil, fmt.Errorf("bank requires account, transaction and progress stores")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.WithField("component", "ledger")
	}
	faucetLamports := opts.FaucetLamports
	if faucetLamports == 0 {
		faucetLamports = DefaultFaucetLamports
	}
	airdropLimit := opts.AirdropLimit
	if airdropLimit == 0 {
		airdropLimit = DefaultAirdropLimit
	}
	seed := opts.ClusterSeed
	if seed == "" {
		seed = DefaultClusterSeed
	}
	queueSize := opts.BlockhashQueueSize
	if queueSize <= 0 {
		queueSize = DefaultBlockhashQueueSize
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	faucet := opts.FaucetKey
	if faucet == nil {
		var err error
		faucet, err = solana.NewRandomPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("generate faucet key: %w", err)
		}
	}

	rtOpts := []runtime.Option{runtime.WithLogger(logger.WithField("component", "runtime"))}
	if opts.Rent != nil {
		rtOpts = append(rtOpts, runtime.WithRent(*opts.Rent))
	}

	b := &Bank{
		rt:           runtime.New(programs.NewRegistry(), rtOpts...),
		stores:       opts.Stores,
		locks:        runtime.NewAccountLocks(),
		notifier:     NewNotifier(logger.WithField("component", "notifier")),
		faucet:       faucet,
		airdropLimit: airdropLimit,
		now:          now,
		logger:       logger,
		blockhashes:  newBlockhashQueue(queueSize),
		processed:    make(map[solana.Signature]uint64),
	}

	progress, err := opts.Stores.Progress.GetLastProcessed(ctx)
	switch {
	case err == nil:
		hash, err := solana.HashFromBase58(progress.Blockhash)
		if err != nil {
			return nil, fmt.Errorf("stored blockhash: %w", err)
		}
		b.slot = progress.Slot
		b.blockhashes.push(hash, progress.Slot)
		logger.WithField("slot", progress.Slot).Info("resuming ledger")
	case errors.Is(err, storage.ErrNotFound):
		if err := b.genesis(ctx, seed, faucetLamports); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("load ledger progress: %w", err)
	}

	observability.UpdateSlot(b.slot)
	return b, nil
}

// genesis installs the builtin programs, the rent sysvar and the funded faucet at slot 0.
func (b *Bank) genesis(ctx context.Context, seed string, faucetLamports uint64) error {
	rent := b.rt.Rent()
	rentData, err := rent.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode rent sysvar: %w", err)
	}

	var accounts []*domain.KeyedAccount
	for _, p := range programs.Builtins() {
		accounts = append(accounts, &domain.KeyedAccount{
			Key:     p.ID,
			Account: &domain.Account{Lamports: 1, Owner: p.Loader, Executable: true, Data: []byte(p.Name)},
		})
	}
	accounts = append(accounts,
		&domain.KeyedAccount{
			Key: solana.SysVarRentPubkey,
			Account: &domain.Account{
				Lamports: rent.MinimumBalance(len(rentData)),
				Owner:    solana.SysvarOwnerID,
				Data:     rentData,
			},
		},
		&domain.KeyedAccount{
			Key:     b.faucet.PublicKey(),
			Account: &domain.Account{Lamports: faucetLamports, Owner: solana.SystemProgramID},
		},
	)
	if err := b.stores.Accounts.Commit(ctx, 0, accounts); err != nil {
		return fmt.Errorf("commit genesis accounts: %w", err)
	}

	hash := idhash.ComputeGenesisHash(seed)
	b.blockhashes.push(hash, 0)
	if err := b.stores.Progress.SetLastProcessed(ctx, &storage.LedgerProgress{Slot: 0, Blockhash: hash.String()}); err != nil {
		return fmt.Errorf("save genesis progress: %w", err)
	}

	b.logger.WithFields(logrus.Fields{
		"blockhash": hash.String(),
		"faucet":    b.faucet.PublicKey().String(),
	}).Info("created genesis")
	return nil
}

// Slot returns the current slot.
func (b *Bank) Slot() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.slot
}

// LatestBlockhash returns the newest blockhash and the last slot at which it is accepted.
func (b *Bank) LatestBlockhash() (solana.Hash, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	last := b.blockhashes.last()
	return last.hash, last.slot + uint64(b.blockhashes.max)
}

// IsBlockhashValid reports whether transactions may still reference hash.
func (b *Bank) IsBlockhashValid(hash solana.Hash) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.blockhashes.contains(hash)
}

// Rent returns the rent parameters in effect.
func (b *Bank) Rent() runtime.Rent {
	return b.rt.Rent()
}

// Faucet returns the faucet address.
func (b *Bank) Faucet() solana.PublicKey {
	return b.faucet.PublicKey()
}

// Notifier returns the account-change notifier.
func (b *Bank) Notifier() *Notifier {
	return b.notifier
}

// AdvanceSlot closes the current slot, issues the next blockhash and persists progress.
func (b *Bank) AdvanceSlot(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	prev := b.blockhashes.last().hash
	b.slot++
	slot := b.slot
	hash := idhash.ComputeBlockhash(prev, slot)
	b.blockhashes.push(hash, slot)
	oldest := b.blockhashes.oldestSlot()
	for sig, s := range b.processed {
		if s < oldest {
			delete(b.processed, sig)
		}
	}
	b.mu.Unlock()

	observability.UpdateSlot(slot)
	if err := b.stores.Progress.SetLastProcessed(ctx, &storage.LedgerProgress{Slot: slot, Blockhash: hash.String()}); err != nil {
		return slot, fmt.Errorf("save ledger progress: %w", err)
	}
	return slot, nil
}

// Run advances the slot every interval until ctx is cancelled.
func (b *Bank) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSlotInterval
	}
	b.logger.WithField("interval", interval).Info("starting slot clock")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.WithField("slot", b.Slot()).Info("slot clock stopped")
			return nil
		case <-ticker.C:
			if _, err := b.AdvanceSlot(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				b.logger.WithError(err).Error("advance slot")
			}
		}
	}
}

// Account returns the committed state of key, or nil if it does not exist.
func (b *Bank) Account(ctx context.Context, key solana.PublicKey) (*domain.Account, error) {
	acc, err := b.stores.Accounts.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", key, err)
	}
	return acc, nil
}

// AccountsByOwner returns every account owned by program.
func (b *Bank) AccountsByOwner(ctx context.Context, program solana.PublicKey) ([]*domain.KeyedAccount, error) {
	return b.stores.Accounts.GetByOwner(ctx, program)
}

// Transaction returns a processed transaction, or nil if unknown.
func (b *Bank) Transaction(ctx context.Context, signature string) (*domain.TransactionRecord, error) {
	rec, err := b.stores.Transactions.GetBySignature(ctx, signature)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// SignaturesForAddress returns up to limit transactions referencing address,
// newest first, starting after the before signature when set.
func (b *Bank) SignaturesForAddress(ctx context.Context, address, before string, limit int) ([]*domain.TransactionRecord, error) {
	if before == "" || limit <= 0 {
		return b.stores.Transactions.GetByAddress(ctx, address, limit)
	}
	// The stores have no cursor, so fetch a growing window until before is located.
	fetch := limit + 1
	for {
		recs, err := b.stores.Transactions.GetByAddress(ctx, address, fetch)
		if err != nil {
			return nil, err
		}
		idx := -1
		for i, r := range recs {
			if r.Signature == before {
				idx = i
				break
			}
		}
		exhausted := len(recs) < fetch
		if idx < 0 && exhausted {
			return nil, nil
		}
		if idx >= 0 {
			rest := recs[idx+1:]
			if len(rest) >= limit {
				return rest[:limit], nil
			}
			if exhausted {
				return rest, nil
			}
		}
		fetch *= 2
	}
}

// InstructionEvents returns the token-transfer events of a mint within [start, end] ms.
func (b *Bank) InstructionEvents(ctx context.Context, mint string, start, end int64) ([]*domain.InstructionEvent, error) {
	if b.stores.Events == nil {
		return nil, nil
	}
	return b.stores.Events.GetByMint(ctx, mint, start, end)
}

func (b *Bank) load(ctx context.Context, key solana.PublicKey) (*domain.Account, error) {
	acc, err := b.stores.Accounts.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return acc, err
}
