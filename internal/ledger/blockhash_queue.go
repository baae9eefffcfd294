package ledger

import "solana-token-transfer/internal/solana"

// DefaultBlockhashQueueSize is how many recent blockhashes a transaction may reference.
const DefaultBlockhashQueueSize = 150

type blockhashEntry struct {
	hash solana.Hash
	slot uint64
}

// blockhashQueue is a fixed-size ring of the most recent blockhashes.
type blockhashQueue struct {
	entries []blockhashEntry
	max     int
}

func newBlockhashQueue(max int) *blockhashQueue {
	return &blockhashQueue{max: max}
}

func (q *blockhashQueue) push(hash solana.Hash, slot uint64) {
	q.entries = append(q.entries, blockhashEntry{hash: hash, slot: slot})
	if len(q.entries) > q.max {
		q.entries = q.entries[len(q.entries)-q.max:]
	}
}

func (q *blockhashQueue) contains(hash solana.Hash) bool {
	for i := len(q.entries) - 1; i >= 0; i-- {
		if q.entries[i].hash == hash {
			return true
		}
	}
	return false
}

func (q *blockhashQueue) last() blockhashEntry {
	return q.entries[len(q.entries)-1]
}

// oldestSlot returns the slot of the oldest hash still accepted.
func (q *blockhashQueue) oldestSlot() uint64 {
	return q.entries[0].slot
}
