package tokentransfer

import "fmt"

// ErrorCode is a framework error code, surfaced as a custom program error.
type ErrorCode uint32

const (
	ErrInstructionMissing                ErrorCode = 100
	ErrInstructionFallbackNotFound       ErrorCode = 101
	ErrInstructionDidNotDeserialize      ErrorCode = 102
	ErrConstraintMut                     ErrorCode = 2000
	ErrConstraintRentExempt              ErrorCode = 2005
	ErrAccountDidNotDeserialize          ErrorCode = 3003
	ErrAccountDidNotSerialize            ErrorCode = 3004
	ErrAccountNotEnoughKeys              ErrorCode = 3005
	ErrAccountOwnedByWrongProgram        ErrorCode = 3007
	ErrInvalidProgramID                  ErrorCode = 3008
	ErrInvalidProgramExecutable          ErrorCode = 3009
	ErrAccountNotSigner                  ErrorCode = 3010
	ErrAccountNotSystemOwned             ErrorCode = 3011
	ErrAccountNotInitialized             ErrorCode = 3012
	ErrAccountSysvarMismatch             ErrorCode = 3015
	ErrTryingToInitPayerAsProgramAccount ErrorCode = 4101
)

type errorInfo struct {
	name string
	msg  string
}

var errorInfos = map[ErrorCode]errorInfo{
	ErrInstructionMissing:                {"InstructionMissing", "8 byte instruction identifier not provided"},
	ErrInstructionFallbackNotFound:       {"InstructionFallbackNotFound", "Fallback functions are not supported"},
	ErrInstructionDidNotDeserialize:      {"InstructionDidNotDeserialize", "The program could not deserialize the given instruction"},
	ErrConstraintMut:                     {"ConstraintMut", "A mut constraint was violated"},
	ErrConstraintRentExempt:              {"ConstraintRentExempt", "A rent exemption constraint was violated"},
	ErrAccountDidNotDeserialize:          {"AccountDidNotDeserialize", "Failed to deserialize the account"},
	ErrAccountDidNotSerialize:            {"AccountDidNotSerialize", "Failed to serialize the account"},
	ErrAccountNotEnoughKeys:              {"AccountNotEnoughKeys", "Not enough account keys given to the instruction"},
	ErrAccountOwnedByWrongProgram:        {"AccountOwnedByWrongProgram", "The given account is owned by a different program than expected"},
	ErrInvalidProgramID:                  {"InvalidProgramId", "Program ID was not as expected"},
	ErrInvalidProgramExecutable:          {"InvalidProgramExecutable", "Program account is not executable"},
	ErrAccountNotSigner:                  {"AccountNotSigner", "The given account did not sign"},
	ErrAccountNotSystemOwned:             {"AccountNotSystemOwned", "The given account is not owned by the system program"},
	ErrAccountNotInitialized:             {"AccountNotInitialized", "The program expected this account to be already initialized"},
	ErrAccountSysvarMismatch:             {"AccountSysvarMismatch", "The given public key does not match the required sysvar"},
	ErrTryingToInitPayerAsProgramAccount: {"TryingToInitPayerAsProgramAccount", "You cannot/should not initialize the payer account as a program account"},
}

// Name returns the identifier of the code, e.g. "AccountNotSigner".
func (e ErrorCode) Name() string {
	if info, ok := errorInfos[e]; ok {
		return info.name
	}
	return fmt.Sprintf("ErrorCode(%d)", uint32(e))
}

func (e ErrorCode) Error() string {
	if info, ok := errorInfos[e]; ok {
		return info.msg
	}
	return fmt.Sprintf("error code %d", uint32(e))
}

// CustomCode implements runtime.CustomCoder.
func (e ErrorCode) CustomCode() uint32 { return uint32(e) }

// AccountError attributes a validation failure to a named instruction account.
type AccountError struct {
	Account string
	Code    ErrorCode
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("%s: %s", e.Account, e.Code.Error())
}

func (e *AccountError) Unwrap() error { return e.Code }

func accountErr(name string, code ErrorCode) error {
	return &AccountError{Account: name, Code: code}
}
