package runtime

import (
	"errors"
	"fmt"
)

// ProgramError is a builtin failure shared by every program.
type ProgramError struct {
	name string
	msg  string
}

func (e *ProgramError) Error() string { return e.msg }

// Name returns the identifier used in structured transaction errors.
func (e *ProgramError) Name() string { return e.name }

func newProgramError(name, msg string) *ProgramError {
	return &ProgramError{name: name, msg: msg}
}

// Builtin program errors.
var (
	ErrGenericError                 = newProgramError("GenericError", "generic instruction error")
	ErrInvalidArgument              = newProgramError("InvalidArgument", "invalid program argument")
	ErrInvalidInstructionData       = newProgramError("InvalidInstructionData", "invalid instruction data")
	ErrInvalidAccountData           = newProgramError("InvalidAccountData", "invalid account data for instruction")
	ErrAccountDataTooSmall          = newProgramError("AccountDataTooSmall", "account data too small for instruction")
	ErrInsufficientFunds            = newProgramError("InsufficientFunds", "insufficient funds for instruction")
	ErrIncorrectProgramID           = newProgramError("IncorrectProgramId", "incorrect program id for instruction")
	ErrMissingRequiredSignature     = newProgramError("MissingRequiredSignature", "missing required signature for instruction")
	ErrAccountAlreadyInitialized    = newProgramError("AccountAlreadyInitialized", "instruction requires an uninitialized account")
	ErrUninitializedAccount         = newProgramError("UninitializedAccount", "instruction requires an initialized account")
	ErrUnbalancedInstruction        = newProgramError("UnbalancedInstruction", "sum of account balances before and after instruction do not match")
	ErrModifiedProgramID            = newProgramError("ModifiedProgramId", "instruction illegally modified the program id of an account")
	ErrExternalAccountLamportSpend  = newProgramError("ExternalAccountLamportSpend", "instruction spent from the balance of an account it does not own")
	ErrExternalAccountDataModified  = newProgramError("ExternalAccountDataModified", "instruction modified data of an account it does not own")
	ErrReadonlyLamportChange        = newProgramError("ReadonlyLamportChange", "instruction changed the balance of a read-only account")
	ErrReadonlyDataModified         = newProgramError("ReadonlyDataModified", "instruction modified data of a read-only account")
	ErrExecutableModified           = newProgramError("ExecutableModified", "instruction changed executable accounts data")
	ErrNotEnoughAccountKeys         = newProgramError("NotEnoughAccountKeys", "insufficient account keys for instruction")
	ErrAccountDataSizeChanged       = newProgramError("AccountDataSizeChanged", "program other than the account's owner changed the size of the account data")
	ErrAccountNotExecutable         = newProgramError("AccountNotExecutable", "instruction expected an executable account")
	ErrUnsupportedProgramID         = newProgramError("UnsupportedProgramId", "Unsupported program id")
	ErrCallDepth                    = newProgramError("CallDepth", "Cross-program invocation call depth too deep")
	ErrMissingAccount               = newProgramError("MissingAccount", "An account required by the instruction is missing")
	ErrReentrancyNotAllowed         = newProgramError("ReentrancyNotAllowed", "Cross-program invocation reentrancy not allowed for this instruction")
	ErrPrivilegeEscalation          = newProgramError("PrivilegeEscalation", "Cross-program invocation with unauthorized signer or writable account")
	ErrInvalidAccountOwner          = newProgramError("InvalidAccountOwner", "Invalid account owner")
	ErrArithmeticOverflow           = newProgramError("ArithmeticOverflow", "Program arithmetic overflowed")
	ErrInvalidSeeds                 = newProgramError("InvalidSeeds", "Provided seeds do not result in a valid address")
	ErrMaxSeedLengthExceeded        = newProgramError("MaxSeedLengthExceeded", "Length of the seed is too long for address generation")
	ErrInvalidRealloc               = newProgramError("InvalidRealloc", "Failed to reallocate account data")
	ErrReturnDataTooLarge           = newProgramError("ReturnDataTooLarge", "return data too large")
	ErrIllegalOwner                 = newProgramError("IllegalOwner", "Provided owner is not allowed")
	ErrAccountBorrowOutstanding     = newProgramError("AccountBorrowOutstanding", "instruction left account with an outstanding borrowed reference")
	ErrExecutableLamportChange      = newProgramError("ExecutableLamportChange", "instruction changed the balance of an executable account")
	ErrExecutableDataModified       = newProgramError("ExecutableDataModified", "instruction changed executable accounts data")
	ErrIncorrectAuthority           = newProgramError("IncorrectAuthority", "Incorrect authority provided")
	ErrInvalidError                 = newProgramError("InvalidError", "program returned invalid error code")
	ErrAccountNotRentExempt         = newProgramError("AccountNotRentExempt", "An account does not have enough lamports to be rent-exempt")
	ErrUnsupportedSysvar            = newProgramError("UnsupportedSysvar", "Unsupported sysvar")
	ErrBuiltinProgramsMustConsumeCU = newProgramError("BuiltinProgramsMustConsumeComputeUnits", "Builtin programs must consume compute units")
)

// CustomError is a program-specific error code, rendered as "custom program error: 0x1".
type CustomError uint32

func (e CustomError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x", uint32(e))
}

// Is matches any program error enum carrying the same code.
func (e CustomError) Is(target error) bool {
	if c, ok := target.(CustomCoder); ok {
		return c.CustomCode() == uint32(e)
	}
	return false
}

// CustomCoder is implemented by program error enums that surface as CustomError.
type CustomCoder interface {
	CustomCode() uint32
}

// normalizeError reduces a program's returned error to what crosses the program
// boundary: a builtin ProgramError or a CustomError code.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe
	}
	var ce CustomError
	if errors.As(err, &ce) {
		return ce
	}
	var coder CustomCoder
	if errors.As(err, &coder) {
		return CustomError(coder.CustomCode())
	}
	return ErrGenericError
}

// InstructionError reports which top-level instruction failed.
type InstructionError struct {
	Index int
	Err   error
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", e.Index, e.Err)
}

func (e *InstructionError) Unwrap() error { return e.Err }

// TransactionError is a failure detected outside instruction execution.
type TransactionError struct {
	name string
	msg  string
}

func (e *TransactionError) Error() string { return e.msg }

// Name returns the identifier used in structured transaction errors.
func (e *TransactionError) Name() string { return e.name }

// Transaction-level errors.
var (
	ErrAccountNotFound        = &TransactionError{"AccountNotFound", "Attempt to debit an account but found no record of a prior credit."}
	ErrProgramAccountNotFound = &TransactionError{"ProgramAccountNotFound", "Attempt to load a program that does not exist"}
	ErrAccountInUse           = &TransactionError{"AccountInUse", "Account in use"}
	ErrBlockhashNotFound      = &TransactionError{"BlockhashNotFound", "Blockhash not found"}
	ErrAlreadyProcessed       = &TransactionError{"AlreadyProcessed", "This transaction has already been processed"}
	ErrSignatureFailure       = &TransactionError{"SignatureFailure", "Transaction did not pass signature verification"}
	ErrSanitizeFailure        = &TransactionError{"SanitizeFailure", "Transaction failed to sanitize accounts offsets correctly"}
	ErrInvalidAccountIndex    = &TransactionError{"InvalidAccountIndex", "Transaction contains an invalid account reference"}
	ErrTooManyAccountLocks    = &TransactionError{"TooManyAccountLocks", "Transaction locked too many accounts"}
)

// InsufficientFundsForRentError reports an account left below the rent-exempt minimum.
type InsufficientFundsForRentError struct {
	AccountIndex int
}

func (e *InsufficientFundsForRentError) Error() string {
	return fmt.Sprintf("Transaction results in an account (%d) with insufficient funds for rent", e.AccountIndex)
}

// ErrorValue renders err in the RPC's structured form, e.g.
// {"InstructionError":[0,{"Custom":1}]} or "BlockhashNotFound".
func ErrorValue(err error) interface{} {
	if err == nil {
		return nil
	}
	var ie *InstructionError
	if errors.As(err, &ie) {
		return map[string]interface{}{"InstructionError": []interface{}{ie.Index, instructionErrorValue(ie.Err)}}
	}
	var rent *InsufficientFundsForRentError
	if errors.As(err, &rent) {
		return map[string]interface{}{"InsufficientFundsForRent": map[string]int{"account_index": rent.AccountIndex}}
	}
	var te *TransactionError
	if errors.As(err, &te) {
		return te.Name()
	}
	return err.Error()
}

func instructionErrorValue(err error) interface{} {
	var ce CustomError
	if errors.As(err, &ce) {
		return map[string]uint32{"Custom": uint32(ce)}
	}
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe.Name()
	}
	return ErrGenericError.Name()
}
