// Package money converts between the decimal currency strings used on the
// HTTP boundary and the integer minor units used everywhere inside the
// service. Floats never touch stored amounts.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid money amount")
	ErrTooPrecise    = errors.New("amount has more than two decimal places")
)

// maxMinorUnits caps parsed amounts well below int64 overflow territory
const maxMinorUnits = int64(1) << 53

var hundred = decimal.NewFromInt(100)

// Parse converts a decimal currency string like "12.50" into minor units
// (1250). At most two decimal places are accepted; the value must be finite
// and is not required to be positive (callers enforce their own sign rules).
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	minor := d.Mul(hundred)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: %q", ErrTooPrecise, s)
	}
	v := minor.IntPart()
	if v > maxMinorUnits || v < -maxMinorUnits {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	return v, nil
}

// ParsePositive is Parse restricted to strictly positive amounts
func ParsePositive(s string) (int64, error) {
	v, err := Parse(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidAmount, s)
	}
	return v, nil
}

// Format renders minor units as a two-decimal string: 1250 -> "12.50"
func Format(minor int64) string {
	return decimal.NewFromInt(minor).Div(hundred).StringFixed(2)
}
