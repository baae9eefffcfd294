package ata

import (
	"errors"

	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/programs/system"
	"solana-token-transfer/internal/programs/token"
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
)

// Instruction tags. Empty instruction data is treated as Create.
const (
	InstructionCreate           uint8 = 0
	InstructionCreateIdempotent uint8 = 1
)

// ErrInvalidOwner is returned when an existing associated account belongs to another wallet.
var ErrInvalidOwner = errInvalidOwner{}

type errInvalidOwner struct{}

func (errInvalidOwner) Error() string {
	return "Associated token account owner does not match address derivation"
}

func (errInvalidOwner) CustomCode() uint32 { return 0 }

// FindAddress derives the associated token account of wallet for mint.
func FindAddress(wallet, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(seeds(wallet, mint), solana.AssociatedTokenProgramID)
}

func seeds(wallet, mint solana.PublicKey) [][]byte {
	return [][]byte{wallet[:], solana.TokenProgramID[:], mint[:]}
}

// NewCreateInstruction builds Create and returns the derived account address.
func NewCreateInstruction(payer, wallet, mint solana.PublicKey) (solana.Instruction, solana.PublicKey, error) {
	return newCreate(InstructionCreate, payer, wallet, mint)
}

// NewCreateIdempotentInstruction builds CreateIdempotent, which succeeds when the
// account already exists for the same wallet and mint.
func NewCreateIdempotentInstruction(payer, wallet, mint solana.PublicKey) (solana.Instruction, solana.PublicKey, error) {
	return newCreate(InstructionCreateIdempotent, payer, wallet, mint)
}

func newCreate(tag uint8, payer, wallet, mint solana.PublicKey) (solana.Instruction, solana.PublicKey, error) {
	addr, _, err := FindAddress(wallet, mint)
	if err != nil {
		return solana.Instruction{}, solana.PublicKey{}, err
	}
	ix := solana.NewInstruction(solana.AssociatedTokenProgramID, solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(addr).WRITE(),
		solana.Meta(wallet),
		solana.Meta(mint),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
	}, []byte{tag})
	return ix, addr, nil
}

// Program is the native associated token account program.
type Program struct{}

var _ runtime.Program = (*Program)(nil)

// New creates the associated token account program.
func New() *Program {
	return &Program{}
}

// Process creates the associated token account for a wallet and mint.
// Accounts: [payer (w,s), associated account (w), wallet, mint, system program, token program].
func (p *Program) Process(ic *runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
	idempotent := false
	switch {
	case len(data) == 0 || data[0] == InstructionCreate:
		ic.Log("Create")
	case data[0] == InstructionCreateIdempotent:
		ic.Log("CreateIdempotent")
		idempotent = true
	default:
		return runtime.ErrInvalidInstructionData
	}
	if len(accounts) < 6 {
		return runtime.ErrNotEnoughAccountKeys
	}
	payer, associated, wallet, mint, tokenProgram := accounts[0], accounts[1], accounts[2], accounts[3], accounts[5]

	if tokenProgram.Key != solana.TokenProgramID {
		return runtime.ErrIncorrectProgramID
	}
	addr, bump, err := FindAddress(wallet.Key, mint.Key)
	if err != nil || addr != associated.Key {
		ic.Log("Error: Associated address does not match seed derivation")
		return runtime.ErrInvalidSeeds
	}

	if idempotent && associated.Owner() == solana.TokenProgramID {
		existing, err := layout.DecodeTokenAccount(associated.Data())
		if err == nil {
			if existing.Owner != wallet.Key {
				ic.Log("Error: Owner mismatch")
				return ErrInvalidOwner
			}
			if existing.Mint != mint.Key {
				return runtime.ErrInvalidAccountData
			}
			return nil
		}
		if !errors.Is(err, layout.ErrUninitialized) {
			return runtime.ErrInvalidAccountData
		}
	}
	if associated.Owner() != solana.SystemProgramID {
		return runtime.ErrIllegalOwner
	}
	if mint.Owner() != solana.TokenProgramID {
		return runtime.ErrIncorrectProgramID
	}

	signer := append(seeds(wallet.Key, mint.Key), []byte{bump})
	if err := system.InvokeCreateAccount(ic, payer, associated, layout.TokenAccountSize, solana.TokenProgramID, [][][]byte{signer}); err != nil {
		return err
	}

	ic.Log("Initialize the associated token account")
	return ic.Invoke(token.NewInitializeAccount3Instruction(associated.Key, mint.Key, wallet.Key))
}
