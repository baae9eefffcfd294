package system

import (
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
)

// MaxPermittedDataLength is the largest account the system program will allocate.
const MaxPermittedDataLength = 10 * 1024 * 1024

// Program is the native system program.
type Program struct{}

var _ runtime.Program = (*Program)(nil)

// New creates the system program.
func New() *Program {
	return &Program{}
}

// Process dispatches a system instruction.
func (p *Program) Process(ic *runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
	ix, err := DecodeInstruction(data)
	if err != nil {
		return runtime.ErrInvalidInstructionData
	}

	switch ix := ix.(type) {
	case *CreateAccount:
		if len(accounts) < 2 {
			return runtime.ErrNotEnoughAccountKeys
		}
		return createAccount(ic, accounts[0], accounts[1], ix)
	case *Transfer:
		if len(accounts) < 2 {
			return runtime.ErrNotEnoughAccountKeys
		}
		return transfer(ic, accounts[0], accounts[1], ix.Lamports)
	case *Assign:
		if len(accounts) < 1 {
			return runtime.ErrNotEnoughAccountKeys
		}
		return assign(ic, accounts[0], ix.Owner)
	case *Allocate:
		if len(accounts) < 1 {
			return runtime.ErrNotEnoughAccountKeys
		}
		return allocate(ic, accounts[0], ix.Space)
	}
	return runtime.ErrInvalidInstructionData
}

func createAccount(ic *runtime.InvokeContext, from, to *runtime.AccountInfo, ix *CreateAccount) error {
	if to.Lamports() > 0 {
		ic.Log("Create Account: account %s already in use", to.Key)
		return ErrAccountAlreadyInUse
	}
	if err := allocate(ic, to, ix.Space); err != nil {
		return err
	}
	if err := assign(ic, to, ix.Owner); err != nil {
		return err
	}
	return transfer(ic, from, to, ix.Lamports)
}

func allocate(ic *runtime.InvokeContext, account *runtime.AccountInfo, space uint64) error {
	if !account.IsSigner {
		ic.Log("Allocate: 'to' account %s must sign", account.Key)
		return runtime.ErrMissingRequiredSignature
	}
	if !account.DataIsEmpty() || account.Owner() != solana.SystemProgramID {
		ic.Log("Allocate: account %s already in use", account.Key)
		return ErrAccountAlreadyInUse
	}
	if space > MaxPermittedDataLength {
		ic.Log("Allocate: requested %d, max allowed %d", space, MaxPermittedDataLength)
		return ErrInvalidAccountDataLength
	}
	account.SetData(make([]byte, space))
	return nil
}

func assign(ic *runtime.InvokeContext, account *runtime.AccountInfo, owner solana.PublicKey) error {
	if account.Owner() == owner {
		return nil
	}
	if !account.IsSigner {
		ic.Log("Assign: account %s must sign", account.Key)
		return runtime.ErrMissingRequiredSignature
	}
	account.Assign(owner)
	return nil
}

func transfer(ic *runtime.InvokeContext, from, to *runtime.AccountInfo, lamports uint64) error {
	if !from.IsSigner {
		ic.Log("Transfer: `from` account %s must sign", from.Key)
		return runtime.ErrMissingRequiredSignature
	}
	if !from.DataIsEmpty() {
		ic.Log("Transfer: `from` must not carry data")
		return runtime.ErrInvalidArgument
	}
	if lamports > from.Lamports() {
		ic.Log("Transfer: insufficient lamports %d, need %d", from.Lamports(), lamports)
		return ErrResultWithNegativeLamports
	}
	if err := from.CheckedSubLamports(lamports); err != nil {
		return err
	}
	return to.CheckedAddLamports(lamports)
}
