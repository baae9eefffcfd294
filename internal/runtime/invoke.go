package runtime

import (
	"bytes"
	"errors"
	"fmt"
	"math/bits"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/solana"
)

// MaxInstructionStackDepth bounds the instruction stack: the top-level
// instruction plus four nested invocations.
const MaxInstructionStackDepth = 5

// frame tracks one program invocation and the account state it started from.
type frame struct {
	programID solana.PublicKey
	keys      []solana.PublicKey
	accounts  map[solana.PublicKey]*domain.Account
	writable  map[solana.PublicKey]bool
	signer    map[solana.PublicKey]bool
	pre       map[solana.PublicKey]*domain.Account
}

func newFrame(programID solana.PublicKey, infos []*AccountInfo) *frame {
	f := &frame{
		programID: programID,
		accounts:  make(map[solana.PublicKey]*domain.Account, len(infos)),
		writable:  make(map[solana.PublicKey]bool, len(infos)),
		signer:    make(map[solana.PublicKey]bool, len(infos)),
		pre:       make(map[solana.PublicKey]*domain.Account, len(infos)),
	}
	for _, info := range infos {
		if _, seen := f.accounts[info.Key]; !seen {
			f.keys = append(f.keys, info.Key)
			f.accounts[info.Key] = info.account
		}
		f.writable[info.Key] = f.writable[info.Key] || info.IsWritable
		f.signer[info.Key] = f.signer[info.Key] || info.IsSigner
	}
	f.rebase()
	return f
}

// rebase snapshots the current state as the new baseline.
func (f *frame) rebase() {
	for _, key := range f.keys {
		f.pre[key] = f.accounts[key].Clone()
	}
}

// verify checks the changes made since the last baseline against account ownership
// and privileges, and that lamports were neither created nor destroyed.
func (f *frame) verify() error {
	var preHi, preLo, postHi, postLo uint64
	for _, key := range f.keys {
		pre, post := f.pre[key], f.accounts[key]
		writable := f.writable[key]
		owned := pre.Owner == f.programID

		if pre.Owner != post.Owner {
			if !writable || !owned || pre.Executable || !isZeroed(post.Data) {
				return ErrModifiedProgramID
			}
		}
		if post.Lamports < pre.Lamports && !owned {
			return ErrExternalAccountLamportSpend
		}
		if pre.Lamports != post.Lamports {
			if !writable {
				return ErrReadonlyLamportChange
			}
			if pre.Executable {
				return ErrExecutableLamportChange
			}
		}
		if len(pre.Data) != len(post.Data) && !owned {
			return ErrAccountDataSizeChanged
		}
		if !bytes.Equal(pre.Data, post.Data) {
			switch {
			case pre.Executable:
				return ErrExecutableDataModified
			case !writable:
				return ErrReadonlyDataModified
			case !owned:
				return ErrExternalAccountDataModified
			}
		}
		if pre.Executable != post.Executable {
			return ErrExecutableModified
		}

		var carry uint64
		preLo, carry = bits.Add64(preLo, pre.Lamports, 0)
		preHi += carry
		postLo, carry = bits.Add64(postLo, post.Lamports, 0)
		postHi += carry
	}
	if preHi != postHi || preLo != postLo {
		return ErrUnbalancedInstruction
	}
	return nil
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// InvokeContext is handed to a program for the duration of one instruction.
type InvokeContext struct {
	rt    *Runtime
	txc   *txContext
	stack []*frame
}

// txContext is the state shared by every instruction of one transaction.
type txContext struct {
	accounts      map[solana.PublicKey]*domain.Account
	logs          *logCollector
	returnProgram solana.PublicKey
	returnData    []byte
	env           Environment
}

// ProgramID returns the currently executing program.
func (ic *InvokeContext) ProgramID() solana.PublicKey {
	return ic.stack[len(ic.stack)-1].programID
}

// StackHeight returns 1 for a top-level instruction and grows with each invocation.
func (ic *InvokeContext) StackHeight() int {
	return len(ic.stack)
}

// Log appends a "Program log:" line.
func (ic *InvokeContext) Log(format string, args ...interface{}) {
	ic.txc.logs.add("Program log: " + fmt.Sprintf(format, args...))
}

// Rent returns the rent parameters in effect.
func (ic *InvokeContext) Rent() Rent {
	return ic.rt.rent
}

// Slot returns the slot the transaction executes in.
func (ic *InvokeContext) Slot() uint64 {
	return ic.txc.env.Slot
}

// UnixTimestamp returns the block time of the executing slot.
func (ic *InvokeContext) UnixTimestamp() int64 {
	return ic.txc.env.UnixTimestamp
}

// SetReturnData records data as the transaction's return value.
func (ic *InvokeContext) SetReturnData(data []byte) error {
	if len(data) > MaxReturnDataLength {
		return ErrReturnDataTooLarge
	}
	ic.txc.returnProgram = ic.ProgramID()
	ic.txc.returnData = append([]byte(nil), data...)
	return nil
}

// ReturnData returns the last value set by any program.
func (ic *InvokeContext) ReturnData() (solana.PublicKey, []byte) {
	return ic.txc.returnProgram, ic.txc.returnData
}

// Invoke calls another program with the caller's privileges.
func (ic *InvokeContext) Invoke(ix solana.Instruction) error {
	return ic.InvokeSigned(ix, nil)
}

// InvokeSigned calls another program. Each seed set in signerSeeds derives a program
// address of the caller that is treated as a signer of ix.
func (ic *InvokeContext) InvokeSigned(ix solana.Instruction, signerSeeds [][][]byte) error {
	caller := ic.stack[len(ic.stack)-1]

	if err := caller.verify(); err != nil {
		return err
	}

	pdaSigners := make(map[solana.PublicKey]bool, len(signerSeeds))
	for _, seeds := range signerSeeds {
		addr, err := solana.CreateProgramAddress(seeds, caller.programID)
		if err != nil {
			if errors.Is(err, solana.ErrMaxSeedLengthExceeded) {
				return ErrMaxSeedLengthExceeded
			}
			return ErrInvalidSeeds
		}
		pdaSigners[addr] = true
	}

	if _, ok := caller.accounts[ix.ProgramID]; !ok {
		ic.Log("Unknown program %s", ix.ProgramID)
		return ErrMissingAccount
	}

	// Duplicate metas share the union of their privileges.
	signer := make(map[solana.PublicKey]bool, len(ix.Accounts))
	writable := make(map[solana.PublicKey]bool, len(ix.Accounts))
	for _, meta := range ix.Accounts {
		signer[meta.PublicKey] = signer[meta.PublicKey] || meta.IsSigner
		writable[meta.PublicKey] = writable[meta.PublicKey] || meta.IsWritable
	}

	callee := make([]*AccountInfo, 0, len(ix.Accounts))
	for _, meta := range ix.Accounts {
		key := meta.PublicKey
		acc, ok := caller.accounts[key]
		if !ok {
			ic.txc.logs.add(fmt.Sprintf("Instruction references an unknown account %s", key))
			return ErrMissingAccount
		}
		if writable[key] && !caller.writable[key] {
			ic.txc.logs.add(fmt.Sprintf("%s's writable privilege escalated", key))
			return ErrPrivilegeEscalation
		}
		if signer[key] && !caller.signer[key] && !pdaSigners[key] {
			ic.txc.logs.add(fmt.Sprintf("%s's signer privilege escalated", key))
			return ErrPrivilegeEscalation
		}
		callee = append(callee, &AccountInfo{
			Key:        key,
			IsSigner:   signer[key],
			IsWritable: writable[key],
			account:    acc,
		})
	}

	caller.rebase()
	if err := ic.process(ix.ProgramID, callee, ix.Data); err != nil {
		return err
	}
	caller.rebase()
	return nil
}

// process runs one program invocation and verifies its account changes.
func (ic *InvokeContext) process(programID solana.PublicKey, accounts []*AccountInfo, data []byte) error {
	if len(ic.stack) >= MaxInstructionStackDepth {
		return ErrCallDepth
	}
	// Direct self-recursion is the only permitted reentrancy.
	if n := len(ic.stack); n > 0 && ic.stack[n-1].programID != programID {
		for _, f := range ic.stack {
			if f.programID == programID {
				return ErrReentrancyNotAllowed
			}
		}
	}

	if acc, ok := ic.txc.accounts[programID]; ok && !acc.Executable {
		return ErrAccountNotExecutable
	}
	program, ok := ic.rt.registry.Get(programID)
	if !ok {
		return ErrUnsupportedProgramID
	}

	f := newFrame(programID, accounts)
	ic.stack = append(ic.stack, f)
	ic.txc.logs.invoke(programID, len(ic.stack))

	err := normalizeError(program.Process(ic, accounts, data))
	if err == nil {
		err = f.verify()
	}
	ic.stack = ic.stack[:len(ic.stack)-1]

	if err != nil {
		ic.txc.logs.failed(programID, err)
		return err
	}
	if len(ic.txc.returnData) > 0 && ic.txc.returnProgram == programID {
		ic.txc.logs.returnData(programID, ic.txc.returnData)
	}
	ic.txc.logs.success(programID)
	return nil
}
