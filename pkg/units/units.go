// Package units converts token amounts between human decimal strings and atomic integer units.
//
// Decimal precision always comes from the caller (the chain registry); nothing here assumes 6 or 18.
package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimals bounds the precision accepted for a token.
const MaxDecimals = 36

var (
	ErrInvalidAmount    = fmt.Errorf("invalid amount")
	ErrTooPrecise       = fmt.Errorf("amount has more fractional digits than the token supports")
	ErrInvalidPrecision = fmt.Errorf("invalid token precision")
)

// ParseAmount parses a human decimal string. Negative, empty and exponent forms are rejected.
func ParseAmount(amount string) (decimal.Decimal, error) {
	s := strings.TrimSpace(amount)
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, amount)
	}
	return d, nil
}

// ToAtomic converts a decimal string such as "0.1" into atomic units at the given precision.
// Amounts with more fractional digits than decimals are rejected rather than rounded.
func ToAtomic(amount string, decimals int32) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPrecision, decimals)
	}
	d, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q at %d decimals", ErrTooPrecise, amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FromAtomic renders atomic units as the shortest decimal string, e.g. 100000 at 6 decimals is "0.1".
func FromAtomic(atomic *big.Int, decimals int32) string {
	if atomic == nil {
		return "0"
	}
	return decimal.NewFromBigInt(atomic, -decimals).String()
}

// Compare compares two decimal strings, returning -1, 0 or 1.
func Compare(a, b string) (int, error) {
	da, err := ParseAmount(a)
	if err != nil {
		return 0, err
	}
	db, err := ParseAmount(b)
	if err != nil {
		return 0, err
	}
	return da.Cmp(db), nil
}

// IsPositive reports whether amount parses and is greater than zero.
func IsPositive(amount string) bool {
	d, err := ParseAmount(amount)
	return err == nil && d.IsPositive()
}
