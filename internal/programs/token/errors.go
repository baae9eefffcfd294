package token

import "fmt"

// Error is a token program error, surfaced as a custom program error code.
type Error uint32

const (
	ErrNotRentExempt Error = iota
	ErrInsufficientFunds
	ErrInvalidMint
	ErrMintMismatch
	ErrOwnerMismatch
	ErrFixedSupply
	ErrAlreadyInUse
	ErrInvalidNumberOfProvidedSigners
	ErrInvalidNumberOfRequiredSigners
	ErrUninitializedState
	ErrNativeNotSupported
	ErrNonNativeHasBalance
	ErrInvalidInstruction
	ErrInvalidState
	ErrOverflow
	ErrAuthorityTypeNotSupported
	ErrMintCannotFreeze
	ErrAccountFrozen
	ErrMintDecimalsMismatch
	ErrNonNativeNotSupported
)

var errorMessages = [...]string{
	ErrNotRentExempt:                  "Lamport balance below rent-exempt threshold",
	ErrInsufficientFunds:              "insufficient funds",
	ErrInvalidMint:                    "Invalid Mint",
	ErrMintMismatch:                   "Account not associated with this Mint",
	ErrOwnerMismatch:                  "owner does not match",
	ErrFixedSupply:                    "the total supply of this token is fixed",
	ErrAlreadyInUse:                   "account or token already in use",
	ErrInvalidNumberOfProvidedSigners: "Invalid number of provided signers",
	ErrInvalidNumberOfRequiredSigners: "Invalid number of required signers",
	ErrUninitializedState:             "State is uninitialized",
	ErrNativeNotSupported:             "Instruction does not support native tokens",
	ErrNonNativeHasBalance:            "Non-native account can only be closed if its balance is zero",
	ErrInvalidInstruction:             "Invalid instruction",
	ErrInvalidState:                   "State is invalid for requested operation",
	ErrOverflow:                       "Operation overflowed",
	ErrAuthorityTypeNotSupported:      "Account does not support specified authority type",
	ErrMintCannotFreeze:               "This token mint cannot freeze accounts",
	ErrAccountFrozen:                  "Account is frozen",
	ErrMintDecimalsMismatch:           "The provided decimals value different from the Mint decimals",
	ErrNonNativeNotSupported:          "Instruction does not support non-native tokens",
}

func (e Error) Error() string {
	if int(e) < len(errorMessages) {
		return errorMessages[e]
	}
	return fmt.Sprintf("token error %d", uint32(e))
}

// CustomCode implements runtime.CustomCoder.
func (e Error) CustomCode() uint32 { return uint32(e) }
