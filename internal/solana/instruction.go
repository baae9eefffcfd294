package solana

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Meta starts a read-only, non-signer AccountMeta for a key.
func Meta(pk PublicKey) *AccountMeta {
	return &AccountMeta{PublicKey: pk}
}

// WRITE marks the account writable.
func (m *AccountMeta) WRITE() *AccountMeta {
	m.IsWritable = true
	return m
}

// SIGNER marks the account as a required signer.
func (m *AccountMeta) SIGNER() *AccountMeta {
	m.IsSigner = true
	return m
}

// AccountMetaSlice is an ordered account list.
type AccountMetaSlice []*AccountMeta

// Get returns the meta at index i, or nil when out of range.
func (s AccountMetaSlice) Get(i int) *AccountMeta {
	if i < 0 || i >= len(s) {
		return nil
	}
	return s[i]
}

// Instruction is a single program call: program, ordered accounts, opaque data.
type Instruction struct {
	ProgramID PublicKey
	Accounts  AccountMetaSlice
	Data      []byte
}

// NewInstruction builds an instruction.
func NewInstruction(programID PublicKey, accounts AccountMetaSlice, data []byte) Instruction {
	return Instruction{ProgramID: programID, Accounts: accounts, Data: data}
}
