package escrow

import (
	"fmt"
	"math/big"
	"math/bits"
	"strconv"

	"github.com/shopspring/decimal"
)

// BasisPointsDenominator is the number of basis points in 100%.
const BasisPointsDenominator = 10_000

// Amount counts the smallest indivisible value unit (motes).
type Amount uint64

// Add returns a+b or ErrArithmeticOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return Amount(sum), nil
}

// Sub returns a-b or ErrArithmeticOverflow when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	diff, borrow := bits.Sub64(uint64(a), uint64(b), 0)
	if borrow != 0 {
		return 0, ErrArithmeticOverflow
	}
	return Amount(diff), nil
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a == 0
}

// String renders the amount as a base-10 integer.
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// ParseAmount parses a base-10 integer amount.
func ParseAmount(s string) (Amount, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount(v), nil
}

// PlatformFee computes floor(total * feeBps / 10000).
//
// The product is computed in 128 bits so the fee is exact for every uint64
// total. feeBps above 10000 is rejected with ErrFeeTooHigh; the fee therefore
// never exceeds total.
func PlatformFee(total Amount, feeBps uint64) (Amount, error) {
	if feeBps > BasisPointsDenominator {
		return 0, ErrFeeTooHigh
	}
	hi, lo := bits.Mul64(uint64(total), feeBps)
	// hi < feeBps <= denominator, so Div64 cannot overflow.
	q, _ := bits.Div64(hi, lo, BasisPointsDenominator)
	return Amount(q), nil
}

// SplitPayout divides total into recipient payout and platform fee.
// payout + fee == total always holds.
func SplitPayout(total Amount, feeBps uint64) (payout, fee Amount, err error) {
	fee, err = PlatformFee(total, feeBps)
	if err != nil {
		return 0, 0, err
	}
	payout, err = total.Sub(fee)
	if err != nil {
		return 0, 0, err
	}
	return payout, fee, nil
}

// FormatUnits renders a mote amount in display units with the given number
// of decimals, e.g. FormatUnits(1_500_000_000, 9) == "1.5".
func FormatUnits(a Amount, decimals int32) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), -decimals)
	return d.String()
}

// ParseUnits parses a display-unit string into motes.
// Rejects negative values, sub-mote precision and values beyond uint64.
func ParseUnits(s string, decimals int32) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse units %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("parse units %q: negative amount", s)
	}
	motes := d.Shift(decimals)
	if !motes.Equal(motes.Truncate(0)) {
		return 0, fmt.Errorf("parse units %q: more than %d decimal places", s, decimals)
	}
	bi := motes.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("parse units %q: %w", s, ErrArithmeticOverflow)
	}
	return Amount(bi.Uint64()), nil
}
