package system

import "fmt"

// Error is a system program error, surfaced as a custom program error code.
type Error uint32

const (
	ErrAccountAlreadyInUse Error = iota
	ErrResultWithNegativeLamports
	ErrInvalidProgramID
	ErrInvalidAccountDataLength
	ErrMaxSeedLengthExceeded
	ErrAddressWithSeedMismatch
)

var errorMessages = map[Error]string{
	ErrAccountAlreadyInUse:        "an account with the same address already exists",
	ErrResultWithNegativeLamports: "account does not have enough SOL to perform the operation",
	ErrInvalidProgramID:           "cannot assign account to this program id",
	ErrInvalidAccountDataLength:   "cannot allocate account data of this length",
	ErrMaxSeedLengthExceeded:      "length of requested seed is too long",
	ErrAddressWithSeedMismatch:    "provided address does not match addressed derived from seed",
}

func (e Error) Error() string {
	if msg, ok := errorMessages[e]; ok {
		return msg
	}
	return fmt.Sprintf("system error %d", uint32(e))
}

// CustomCode implements runtime.CustomCoder.
func (e Error) CustomCode() uint32 { return uint32(e) }
