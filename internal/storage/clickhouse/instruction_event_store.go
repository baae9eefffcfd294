package clickhouse

import (
	"context"
	"fmt"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/storage"
)

// InstructionEventStore implements storage.InstructionEventStore using ClickHouse.
type InstructionEventStore struct {
	conn *Conn
}

// NewInstructionEventStore creates a new InstructionEventStore.
func NewInstructionEventStore(conn *Conn) *InstructionEventStore {
	return &InstructionEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.InstructionEventStore = (*InstructionEventStore)(nil)

const instructionEventColumns = `
	signature, slot, instruction_index, instruction, amount, mint,
	source, destination, authority, success, error, timestamp_ms
`

// InsertBulk adds multiple events. Fails entire batch on duplicate (signature, index).
// MergeTree does not enforce keys, so duplicates are checked before the insert.
func (s *InstructionEventStore) InsertBulk(ctx context.Context, events []*domain.InstructionEvent) error {
	if len(events) == 0 {
		return nil
	}

	type key struct {
		signature string
		index     int
	}
	seen := make(map[key]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Signature == "" || e.Index < 0 {
			return storage.ErrInvalidInput
		}
		k := key{e.Signature, e.Index}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for k := range seen {
		exists, err := s.exists(ctx, k.signature, k.index)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO instruction_events (`+instructionEventColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		var success uint8
		if e.Success {
			success = 1
		}
		err = batch.Append(
			e.Signature, e.Slot, uint16(e.Index), e.Instruction, e.Amount, e.Mint,
			e.Source, e.Destination, e.Authority, success, e.Error, e.TimestampMs,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetBySignature retrieves the events of one transaction, ordered by index ASC.
func (s *InstructionEventStore) GetBySignature(ctx context.Context, signature string) ([]*domain.InstructionEvent, error) {
	query := `
		SELECT ` + instructionEventColumns + `
		FROM instruction_events
		WHERE signature = ?
		ORDER BY instruction_index ASC
	`

	rows, err := s.conn.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("query by signature: %w", err)
	}
	defer rows.Close()

	return scanInstructionEvents(rows)
}

// GetByMint retrieves events for a mint within [start, end] (inclusive), ordered by timestamp ASC.
func (s *InstructionEventStore) GetByMint(ctx context.Context, mint string, start, end int64) ([]*domain.InstructionEvent, error) {
	query := `
		SELECT ` + instructionEventColumns + `
		FROM instruction_events
		WHERE mint = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, signature ASC, instruction_index ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanInstructionEvents(rows)
}

// exists checks if an event with the given key exists.
func (s *InstructionEventStore) exists(ctx context.Context, signature string, index int) (bool, error) {
	query := `
		SELECT count(*) FROM instruction_events
		WHERE signature = ? AND instruction_index = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, signature, uint16(index)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanInstructionEvents scans multiple rows.
func scanInstructionEvents(rows chRows) ([]*domain.InstructionEvent, error) {
	var events []*domain.InstructionEvent

	for rows.Next() {
		var e domain.InstructionEvent
		var index uint16
		var success uint8

		err := rows.Scan(
			&e.Signature, &e.Slot, &index, &e.Instruction, &e.Amount, &e.Mint,
			&e.Source, &e.Destination, &e.Authority, &success, &e.Error, &e.TimestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan instruction event row: %w", err)
		}

		e.Index = int(index)
		e.Success = success == 1
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instruction event rows: %w", err)
	}

	return events, nil
}
