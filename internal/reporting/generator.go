// Package reporting builds activity reports from recorded instruction events.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/programs/tokentransfer"
)

// EventSource lists the instruction events of a mint within [start, end] ms.
type EventSource interface {
	InstructionEvents(ctx context.Context, mint string, start, end int64) ([]*domain.InstructionEvent, error)
}

// Generator produces reports from recorded events.
type Generator struct {
	events EventSource
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(events EventSource) *Generator {
	return &Generator{
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report of mint for events within [start, end] ms.
// Amounts are scaled by decimals.
func (g *Generator) Generate(ctx context.Context, mint string, decimals uint8, start, end int64) (*Report, error) {
	if start > end {
		return nil, fmt.Errorf("invalid window: start %d after end %d", start, end)
	}
	events, err := g.events.InstructionEvents(ctx, mint, start, end)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	sorted := make([]*domain.InstructionEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		if a.TimestampMs != b.TimestampMs {
			return a.TimestampMs < b.TimestampMs
		}
		if a.Signature != b.Signature {
			return a.Signature < b.Signature
		}
		return a.Index < b.Index
	})

	return &Report{
		GeneratedAt:  g.now(),
		Mint:         mint,
		Decimals:     decimals,
		WindowStart:  start,
		WindowEnd:    end,
		Summary:      summarize(sorted, decimals),
		Instructions: instructionRows(sorted, decimals),
		Accounts:     accountRows(sorted, decimals),
		Failures:     failureRows(sorted),
	}, nil
}

func amount(e *domain.InstructionEvent, decimals uint8) decimal.Decimal {
	return layout.UIAmount(e.Amount, decimals)
}

func summarize(events []*domain.InstructionEvent, decimals uint8) Summary {
	s := Summary{
		Minted:      decimal.Zero,
		Burned:      decimal.Zero,
		Transferred: decimal.Zero,
	}
	txs := make(map[string]struct{})
	for _, e := range events {
		s.TotalEvents++
		txs[e.Signature] = struct{}{}
		if s.FirstEventMs == 0 || e.TimestampMs < s.FirstEventMs {
			s.FirstEventMs = e.TimestampMs
		}
		if e.TimestampMs > s.LastEventMs {
			s.LastEventMs = e.TimestampMs
		}
		if !e.Success {
			s.Failed++
			continue
		}
		s.Succeeded++
		switch e.Instruction {
		case tokentransfer.InstructionMintToken:
			s.Minted = s.Minted.Add(amount(e, decimals))
		case tokentransfer.InstructionBurnToken:
			s.Burned = s.Burned.Add(amount(e, decimals))
		case tokentransfer.InstructionTransferToken:
			s.Transferred = s.Transferred.Add(amount(e, decimals))
		}
	}
	s.Transactions = len(txs)
	s.NetSupplyChange = s.Minted.Sub(s.Burned)
	return s
}

// carriesAmount reports whether an instruction moves tokens.
func carriesAmount(name string) bool {
	switch name {
	case tokentransfer.InstructionMintToken, tokentransfer.InstructionTransferToken, tokentransfer.InstructionBurnToken:
		return true
	}
	return false
}

func instructionRows(events []*domain.InstructionEvent, decimals uint8) []InstructionRow {
	byName := make(map[string]*InstructionRow)
	amounts := make(map[string][]decimal.Decimal)
	for _, e := range events {
		row, ok := byName[e.Instruction]
		if !ok {
			row = &InstructionRow{Instruction: e.Instruction, Volume: decimal.Zero}
			byName[e.Instruction] = row
		}
		row.Count++
		if !e.Success {
			row.Failed++
			continue
		}
		if carriesAmount(e.Instruction) {
			a := amount(e, decimals)
			row.Volume = row.Volume.Add(a)
			amounts[e.Instruction] = append(amounts[e.Instruction], a)
		}
	}

	rows := make([]InstructionRow, 0, len(byName))
	for name, row := range byName {
		sortedAmounts := amounts[name]
		sort.Slice(sortedAmounts, func(i, j int) bool {
			return sortedAmounts[i].LessThan(sortedAmounts[j])
		})
		row.MeanAmount = computeMean(sortedAmounts, decimals)
		row.MedianAmount = computePercentile(sortedAmounts, 0.50, decimals)
		row.P90Amount = computePercentile(sortedAmounts, 0.90, decimals)
		row.MaxAmount = decimal.Zero
		if n := len(sortedAmounts); n > 0 {
			row.MaxAmount = sortedAmounts[n-1]
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Instruction < rows[j].Instruction
	})
	return rows
}

func accountRows(events []*domain.InstructionEvent, decimals uint8) []AccountRow {
	flows := make(map[string]*AccountRow)
	flow := func(account string) *AccountRow {
		row, ok := flows[account]
		if !ok {
			row = &AccountRow{Account: account, Inflow: decimal.Zero, Outflow: decimal.Zero}
			flows[account] = row
		}
		return row
	}

	for _, e := range events {
		if !e.Success || !carriesAmount(e.Instruction) {
			continue
		}
		a := amount(e, decimals)
		if e.Source != "" {
			src := flow(e.Source)
			src.Outflow = src.Outflow.Add(a)
		}
		if e.Destination != "" {
			dst := flow(e.Destination)
			dst.Inflow = dst.Inflow.Add(a)
		}
	}

	rows := make([]AccountRow, 0, len(flows))
	for _, row := range flows {
		row.Net = row.Inflow.Sub(row.Outflow)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].Net.Cmp(rows[j].Net); c != 0 {
			return c > 0
		}
		return rows[i].Account < rows[j].Account
	})
	return rows
}

func failureRows(events []*domain.InstructionEvent) []FailureRow {
	var rows []FailureRow
	for _, e := range events {
		if e.Success {
			continue
		}
		rows = append(rows, FailureRow{
			Signature:   e.Signature,
			Slot:        e.Slot,
			Instruction: e.Instruction,
			Error:       e.Error,
		})
	}
	return rows
}
