package layout

import "errors"

var (
	// ErrInvalidLength is returned when account data has the wrong size.
	ErrInvalidLength = errors.New("invalid account data length")

	// ErrInvalidOption is returned when a COption tag is neither 0 nor 1.
	ErrInvalidOption = errors.New("invalid option tag")

	// ErrUninitialized is returned when unpacking state that was never initialized.
	ErrUninitialized = errors.New("account state is not initialized")

	// ErrDiscriminatorMismatch is returned when the account discriminator does not match.
	ErrDiscriminatorMismatch = errors.New("account discriminator mismatch")

	// ErrInvalidUTF8 is returned when a Borsh string holds bytes that are not UTF-8.
	ErrInvalidUTF8 = errors.New("string is not valid UTF-8")

	// ErrDataTooLarge is returned when serialized state does not fit the allocated space.
	ErrDataTooLarge = errors.New("serialized data exceeds account space")
)
