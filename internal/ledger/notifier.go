package ledger

import (
	"sync"

	"github.com/sirupsen/logrus"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/observability"
	"solana-token-transfer/internal/solana"
)

// notificationBuffer is the per-subscriber channel capacity.
const notificationBuffer = 256

// AccountUpdate is a committed change to one account.
type AccountUpdate struct {
	Key     solana.PublicKey
	Slot    uint64
	Account *domain.Account // nil when the account was closed
}

type subscription struct {
	key solana.PublicKey
	ch  chan AccountUpdate
}

// Notifier fans committed account changes out to subscribers.
// Slow subscribers lose updates rather than block commits.
type Notifier struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscription
	byKey  map[solana.PublicKey]map[uint64]*subscription
	logger *logrus.Entry
}

// NewNotifier creates an empty notifier.
func NewNotifier(logger *logrus.Entry) *Notifier {
	if logger == nil {
		logger = logrus.WithField("component", "notifier")
	}
	return &Notifier{
		subs:   make(map[uint64]*subscription),
		byKey:  make(map[solana.PublicKey]map[uint64]*subscription),
		logger: logger,
	}
}

// Subscribe registers interest in key and returns the subscription ID and its channel.
func (n *Notifier) Subscribe(key solana.PublicKey) (uint64, <-chan AccountUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	sub := &subscription{key: key, ch: make(chan AccountUpdate, notificationBuffer)}
	n.subs[id] = sub
	if n.byKey[key] == nil {
		n.byKey[key] = make(map[uint64]*subscription)
	}
	n.byKey[key][id] = sub
	return id, sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
// Reports whether the ID was active.
func (n *Notifier) Unsubscribe(id uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub, ok := n.subs[id]
	if !ok {
		return false
	}
	delete(n.subs, id)
	delete(n.byKey[sub.key], id)
	if len(n.byKey[sub.key]) == 0 {
		delete(n.byKey, sub.key)
	}
	close(sub.ch)
	return true
}

// Publish delivers committed accounts to their subscribers.
func (n *Notifier) Publish(slot uint64, accounts []*domain.KeyedAccount) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ka := range accounts {
		subs := n.byKey[ka.Key]
		if len(subs) == 0 {
			continue
		}
		update := AccountUpdate{Key: ka.Key, Slot: slot}
		if ka.Account != nil && ka.Account.Lamports > 0 {
			update.Account = ka.Account.Clone()
		}
		for id, sub := range subs {
			select {
			case sub.ch <- update:
			default:
				observability.RecordNotificationDropped()
				n.logger.WithFields(logrus.Fields{
					"subscription": id,
					"account":      ka.Key.String(),
				}).Warn("subscriber is full, dropping update")
			}
		}
	}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
