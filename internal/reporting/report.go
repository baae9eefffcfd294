package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report is the activity report of one mint over a time window.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Mint        string
	Decimals    uint8
	WindowStart int64 // ms, inclusive
	WindowEnd   int64 // ms, inclusive

	Summary Summary

	// Per-instruction statistics, sorted by instruction name
	Instructions []InstructionRow

	// Token account flows from successful instructions, sorted by net DESC then account
	Accounts []AccountRow

	// Failed instructions in execution order
	Failures []FailureRow
}

// Summary totals the window. Amounts count successful instructions only,
// in the mint's decimal units.
type Summary struct {
	TotalEvents     int
	Succeeded       int
	Failed          int
	Transactions    int
	FirstEventMs    int64
	LastEventMs     int64
	Minted          decimal.Decimal
	Burned          decimal.Decimal
	Transferred     decimal.Decimal
	NetSupplyChange decimal.Decimal // minted - burned
}

// InstructionRow is the statistics of one instruction kind.
type InstructionRow struct {
	Instruction  string
	Count        int
	Failed       int
	Volume       decimal.Decimal
	MeanAmount   decimal.Decimal
	MedianAmount decimal.Decimal
	P90Amount    decimal.Decimal
	MaxAmount    decimal.Decimal
}

// AccountRow is the net token flow of one token account.
type AccountRow struct {
	Account string
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
	Net     decimal.Decimal
}

// FailureRow is one failed instruction.
type FailureRow struct {
	Signature   string
	Slot        uint64
	Instruction string
	Error       string
}
