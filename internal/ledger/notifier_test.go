package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/solana"
)

func TestNotifier_PublishRoutesByKey(t *testing.T) {
	n := NewNotifier(nil)
	a, b := solana.PublicKey{1}, solana.PublicKey{2}

	idA, chA := n.Subscribe(a)
	_, chB := n.Subscribe(b)
	require.Equal(t, 2, n.Len())

	n.Publish(9, []*domain.KeyedAccount{
		{Key: a, Account: &domain.Account{Lamports: 10, Owner: solana.SystemProgramID}},
	})

	got := <-chA
	assert.Equal(t, uint64(9), got.Slot)
	require.NotNil(t, got.Account)
	assert.Equal(t, uint64(10), got.Account.Lamports)
	assert.Empty(t, chB)

	// Zero lamports means the account was closed.
	n.Publish(10, []*domain.KeyedAccount{{Key: a, Account: &domain.Account{}}})
	got = <-chA
	assert.Nil(t, got.Account)

	assert.True(t, n.Unsubscribe(idA))
	assert.Equal(t, 1, n.Len())
	n.Publish(11, []*domain.KeyedAccount{{Key: a, Account: &domain.Account{Lamports: 1}}})
}

func TestNotifier_SlowSubscriberDropsUpdates(t *testing.T) {
	n := NewNotifier(nil)
	key := solana.PublicKey{3}
	_, ch := n.Subscribe(key)

	for i := 0; i < notificationBuffer+10; i++ {
		n.Publish(uint64(i), []*domain.KeyedAccount{{Key: key, Account: &domain.Account{Lamports: 1}}})
	}
	assert.Len(t, ch, notificationBuffer)
	first := <-ch
	assert.Equal(t, uint64(0), first.Slot)
}
