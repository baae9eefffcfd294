package system

import (
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
)

// InvokeCreateAccount creates target through the system program with a
// rent-exempt balance for space bytes. An address that already holds
// lamports is topped up, allocated and assigned instead, which fails if it
// is already in use. signerSeeds signs for program-derived targets.
func InvokeCreateAccount(ic *runtime.InvokeContext, payer, target *runtime.AccountInfo, space int, owner solana.PublicKey, signerSeeds [][][]byte) error {
	required := ic.Rent().MinimumBalance(space)

	if target.Lamports() == 0 {
		return ic.InvokeSigned(NewCreateAccountInstruction(payer.Key, target.Key, required, uint64(space), owner), signerSeeds)
	}

	if required > target.Lamports() {
		if err := ic.Invoke(NewTransferInstruction(payer.Key, target.Key, required-target.Lamports())); err != nil {
			return err
		}
	}
	if err := ic.InvokeSigned(NewAllocateInstruction(target.Key, uint64(space)), signerSeeds); err != nil {
		return err
	}
	return ic.InvokeSigned(NewAssignInstruction(target.Key, owner), signerSeeds)
}
