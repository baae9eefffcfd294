package domain

// InstructionEvent is one executed token-transfer instruction.
// Corresponds to instruction_events table in ClickHouse.
type InstructionEvent struct {
	Signature   string
	Slot        uint64
	Index       int    // position of the instruction in the transaction
	Instruction string // initialize_token, mint_token, ...
	Amount      uint64
	Mint        string
	Source      string
	Destination string
	Authority   string
	Success     bool
	Error       string
	TimestampMs int64
}
