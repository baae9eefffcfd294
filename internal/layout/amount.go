package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a UI amount cannot be represented in base units.
var ErrInvalidAmount = errors.New("invalid token amount")

// UIAmount converts base units to a decimal amount, e.g. 1500 with 3 decimals is 1.5.
func UIAmount(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(amount).Shift(-int32(decimals))
}

// UIAmountString formats base units with the mint's decimals.
func UIAmountString(amount uint64, decimals uint8) string {
	return UIAmount(amount, decimals).String()
}

// ParseUIAmount converts a decimal string to base units. Fractions finer than
// the mint's precision and values outside u64 are rejected.
func ParseUIAmount(s string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, s)
	}
	base := d.Shift(int32(decimals))
	if !base.Equal(base.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidAmount, s, decimals)
	}
	if base.GreaterThan(decimal.NewFromUint64(math.MaxUint64)) {
		return 0, fmt.Errorf("%w: %s overflows u64", ErrInvalidAmount, s)
	}
	return base.BigInt().Uint64(), nil
}
