package core

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrAmountOverflow = errors.New("core: amount exceeds the 64-bit legacy ledger range")

// Units is an unsigned 128-bit count of a token's smallest unit.
type Units struct {
	hi uint64
	lo uint64
}

// Tokens is the legacy ledger's native 64-bit amount (e8s).
type Tokens uint64

type Memo uint64

// TimestampNanos is nanoseconds since the Unix epoch.
type TimestampNanos uint64

func NewUnits(value uint64) Units {
	return Units{lo: value}
}

func UnitsFromBig(value *big.Int) (Units, error) {
	if value == nil {
		return Units{}, nil
	}
	if value.Sign() < 0 {
		return Units{}, fmt.Errorf("core: units must not be negative")
	}
	if value.BitLen() > 128 {
		return Units{}, fmt.Errorf("core: units exceed 128 bits")
	}
	lo := new(big.Int).And(value, new(big.Int).SetUint64(^uint64(0))).Uint64()
	hi := new(big.Int).Rsh(value, 64).Uint64()
	return Units{hi: hi, lo: lo}, nil
}

func ParseUnits(text string) (Units, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(text), 10)
	if !ok {
		return Units{}, fmt.Errorf("core: invalid units %q", text)
	}
	return UnitsFromBig(value)
}

func (u Units) Big() *big.Int {
	value := new(big.Int).SetUint64(u.hi)
	value.Lsh(value, 64)
	return value.Or(value, new(big.Int).SetUint64(u.lo))
}

// Uint64 narrows to 64 bits; ok is false when the value does not fit.
func (u Units) Uint64() (uint64, bool) {
	return u.lo, u.hi == 0
}

func (u Units) IsZero() bool {
	return u.hi == 0 && u.lo == 0
}

func (u Units) String() string {
	if u.hi == 0 {
		return fmt.Sprintf("%d", u.lo)
	}
	return u.Big().String()
}

func (u Units) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Units) UnmarshalText(text []byte) error {
	parsed, err := ParseUnits(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// TokensFromUnits applies the legacy narrowing policy: reject, never truncate.
func TokensFromUnits(amount Units) (Tokens, error) {
	value, ok := amount.Uint64()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrAmountOverflow, amount)
	}
	return Tokens(value), nil
}

func (t Tokens) Units() Units {
	return NewUnits(uint64(t))
}
