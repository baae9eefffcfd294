// Package programs installs the native programs the ledger runs.
package programs

import (
	"solana-token-transfer/internal/programs/ata"
	"solana-token-transfer/internal/programs/system"
	"solana-token-transfer/internal/programs/token"
	"solana-token-transfer/internal/programs/tokentransfer"
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
)

// Builtin is a program installed at genesis.
type Builtin struct {
	Name    string
	ID      solana.PublicKey
	Loader  solana.PublicKey
	Program runtime.Program
}

// Builtins returns every program the ledger ships with.
func Builtins() []Builtin {
	return []Builtin{
		{Name: "system_program", ID: solana.SystemProgramID, Loader: solana.NativeLoaderID, Program: system.New()},
		{Name: "spl_token", ID: solana.TokenProgramID, Loader: solana.BPFLoaderUpgradeableProgramID, Program: token.New()},
		{Name: "spl_associated_token_account", ID: solana.AssociatedTokenProgramID, Loader: solana.BPFLoaderUpgradeableProgramID, Program: ata.New()},
		{Name: "solana_token_transfer", ID: tokentransfer.ProgramID, Loader: solana.BPFLoaderUpgradeableProgramID, Program: tokentransfer.New()},
	}
}

// NewRegistry registers every builtin.
func NewRegistry() *runtime.Registry {
	reg := runtime.NewRegistry()
	for _, b := range Builtins() {
		reg.Register(b.ID, b.Program)
	}
	return reg
}
