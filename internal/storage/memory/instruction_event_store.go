package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/storage"
)

// InstructionEventStore is an in-memory implementation of storage.InstructionEventStore.
type InstructionEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.InstructionEvent // keyed by signature|index
}

// NewInstructionEventStore creates a new in-memory instruction event store.
func NewInstructionEventStore() *InstructionEventStore {
	return &InstructionEventStore{
		data: make(map[string]*domain.InstructionEvent),
	}
}

var _ storage.InstructionEventStore = (*InstructionEventStore)(nil)

func eventKey(signature string, index int) string {
	return fmt.Sprintf("%s|%d", signature, index)
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *InstructionEventStore) InsertBulk(_ context.Context, events []*domain.InstructionEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Signature == "" {
			return storage.ErrInvalidInput
		}
		key := eventKey(e.Signature, e.Index)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, e := range events {
		c := *e
		s.data[eventKey(e.Signature, e.Index)] = &c
	}
	return nil
}

// GetBySignature retrieves the events of one transaction, ordered by index ASC.
func (s *InstructionEventStore) GetBySignature(_ context.Context, signature string) ([]*domain.InstructionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.InstructionEvent
	for _, e := range s.data {
		if e.Signature == signature {
			c := *e
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})
	return result, nil
}

// GetByMint retrieves events for a mint within [start, end] (inclusive), ordered by timestamp ASC.
func (s *InstructionEventStore) GetByMint(_ context.Context, mint string, start, end int64) ([]*domain.InstructionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.InstructionEvent
	for _, e := range s.data {
		if e.Mint == mint && e.TimestampMs >= start && e.TimestampMs <= end {
			c := *e
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TimestampMs != result[j].TimestampMs {
			return result[i].TimestampMs < result[j].TimestampMs
		}
		if result[i].Signature != result[j].Signature {
			return result[i].Signature < result[j].Signature
		}
		return result[i].Index < result[j].Index
	})
	return result, nil
}
