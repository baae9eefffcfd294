package domain

// TransactionRecord is a processed transaction.
// Corresponds to transactions table in PostgreSQL.
type TransactionRecord struct {
	Signature   string   // PK, base58 of the first signature
	Slot        uint64   // slot the transaction was processed in
	BlockTime   int64    // unix seconds
	FeePayer    string   // first account key
	AccountKeys []string // all message keys, used for address lookups
	Err         *string  // nil on success
	Logs        []string // program log lines
	ReturnData  *ReturnData
	Raw         []byte // wire-format transaction
}

// Succeeded reports whether the transaction committed.
func (r *TransactionRecord) Succeeded() bool {
	return r.Err == nil
}

// ReturnData is the last value a program set with set_return_data.
type ReturnData struct {
	ProgramID string
	Data      []byte
}
