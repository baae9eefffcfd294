package runtime

import (
	"context"
	"sync"

	"solana-token-transfer/internal/solana"
)

// AccountLocks serializes transactions that touch the same accounts.
// Write locks are exclusive, read locks are shared.
type AccountLocks struct {
	mu       sync.Mutex
	writers  map[solana.PublicKey]struct{}
	readers  map[solana.PublicKey]int
	released chan struct{}
}

// NewAccountLocks creates an empty lock table.
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{
		writers:  make(map[solana.PublicKey]struct{}),
		readers:  make(map[solana.PublicKey]int),
		released: make(chan struct{}),
	}
}

// Lock blocks until every key can be locked at once, or ctx is done.
// The returned function releases the locks and is safe to call more than once.
func (l *AccountLocks) Lock(ctx context.Context, writable, readonly []solana.PublicKey) (func(), error) {
	readonly = withoutKeys(readonly, writable)
	for {
		l.mu.Lock()
		if l.availableLocked(writable, readonly) {
			l.acquireLocked(writable, readonly)
			l.mu.Unlock()
			return l.releaser(writable, readonly), nil
		}
		wait := l.released
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

// TryLock locks without waiting, returning ErrAccountInUse on conflict.
func (l *AccountLocks) TryLock(writable, readonly []solana.PublicKey) (func(), error) {
	readonly = withoutKeys(readonly, writable)
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.availableLocked(writable, readonly) {
		return nil, ErrAccountInUse
	}
	l.acquireLocked(writable, readonly)
	return l.releaser(writable, readonly), nil
}

func (l *AccountLocks) availableLocked(writable, readonly []solana.PublicKey) bool {
	for _, k := range writable {
		if _, ok := l.writers[k]; ok {
			return false
		}
		if l.readers[k] > 0 {
			return false
		}
	}
	for _, k := range readonly {
		if _, ok := l.writers[k]; ok {
			return false
		}
	}
	return true
}

func (l *AccountLocks) acquireLocked(writable, readonly []solana.PublicKey) {
	for _, k := range writable {
		l.writers[k] = struct{}{}
	}
	for _, k := range readonly {
		l.readers[k]++
	}
}

func (l *AccountLocks) releaser(writable, readonly []solana.PublicKey) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for _, k := range writable {
				delete(l.writers, k)
			}
			for _, k := range readonly {
				if l.readers[k] <= 1 {
					delete(l.readers, k)
				} else {
					l.readers[k]--
				}
			}
			close(l.released)
			l.released = make(chan struct{})
		})
	}
}

func withoutKeys(keys, exclude []solana.PublicKey) []solana.PublicKey {
	if len(exclude) == 0 {
		return keys
	}
	skip := make(map[solana.PublicKey]struct{}, len(exclude))
	for _, k := range exclude {
		skip[k] = struct{}{}
	}
	out := make([]solana.PublicKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := skip[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
