package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCode uint32

func (c testCode) Error() string      { return fmt.Sprintf("test code %d", uint32(c)) }
func (c testCode) CustomCode() uint32 { return uint32(c) }

func TestNormalizeError(t *testing.T) {
	assert.Nil(t, normalizeError(nil))
	assert.Equal(t, ErrInvalidArgument, normalizeError(fmt.Errorf("wrapped: %w", ErrInvalidArgument)))
	assert.Equal(t, CustomError(3), normalizeError(testCode(3)))
	assert.Equal(t, ErrGenericError, normalizeError(errors.New("plain")))
}

func TestCustomError_IsMatchesCodedErrors(t *testing.T) {
	err := &InstructionError{Index: 2, Err: CustomError(1)}
	assert.ErrorIs(t, err, testCode(1))
	assert.NotErrorIs(t, err, testCode(2))
	assert.Equal(t, "Error processing Instruction 2: custom program error: 0x1", err.Error())
	assert.Equal(t, "custom program error: 0xbb8", CustomError(3000).Error())
}

func TestErrorValue(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, `null`},
		{"custom", &InstructionError{Index: 0, Err: CustomError(1)}, `{"InstructionError":[0,{"Custom":1}]}`},
		{"builtin", &InstructionError{Index: 1, Err: ErrMissingRequiredSignature}, `{"InstructionError":[1,"MissingRequiredSignature"]}`},
		{"transaction", ErrBlockhashNotFound, `"BlockhashNotFound"`},
		{"rent", &InsufficientFundsForRentError{AccountIndex: 2}, `{"InsufficientFundsForRent":{"account_index":2}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(ErrorValue(tt.err))
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}
