package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a currency value held as a whole number of cents.
type Amount int64

// Zero is the zero amount.
const Zero Amount = 0

// MaxCents is the largest magnitude a numeric(12,2) column holds.
const MaxCents = 999_999_999_999

// ErrOutOfRange is returned when a value does not fit numeric(12,2).
var ErrOutOfRange = errors.New("amount out of numeric(12,2) range")

// Cents builds an Amount from a cent count.
func Cents(c int64) Amount {
	return Amount(c)
}

// Parse converts decimal text such as "29.99", "-3.5" or "12" into an Amount.
// Fractions longer than two digits are rounded half away from zero.
func Parse(s string) (Amount, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	switch text[0] {
	case '-':
		neg = true
		text = text[1:]
	case '+':
		text = text[1:]
	}

	whole, frac, hasDot := strings.Cut(text, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	if !allDigits(whole) || (hasDot && !allDigits(frac)) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > MaxCents/100 {
		return 0, fmt.Errorf("%q: %w", s, ErrOutOfRange)
	}

	var cents int64
	switch {
	case len(frac) == 0:
	case len(frac) == 1:
		cents = int64(frac[0]-'0') * 10
	default:
		cents = int64(frac[0]-'0')*10 + int64(frac[1]-'0')
		if len(frac) > 2 && frac[2] >= '5' {
			cents++
		}
	}

	total := units*100 + cents
	if total > MaxCents {
		return 0, fmt.Errorf("%q: %w", s, ErrOutOfRange)
	}
	if neg {
		total = -total
	}
	return Amount(total), nil
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Cents returns the raw cent count.
func (a Amount) Cents() int64 {
	return int64(a)
}

// Add returns a+b.
func (a Amount) Add(b Amount) Amount {
	return a + b
}

// Sub returns a-b.
func (a Amount) Sub(b Amount) Amount {
	return a - b
}

// Mul multiplies the amount by an integer quantity. The result is exact
// while it stays within int64; use MulChecked for untrusted quantities.
func (a Amount) Mul(qty int64) Amount {
	return Amount(int64(a) * qty)
}

// MulChecked multiplies like Mul but fails with ErrOutOfRange when the
// product leaves numeric(12,2), including when int64 would wrap.
func (a Amount) MulChecked(qty int64) (Amount, error) {
	if a == 0 || qty == 0 {
		return 0, nil
	}
	p := int64(a) * qty
	if p/qty != int64(a) || (qty == -1 && int64(a) == math.MinInt64) || p > MaxCents || p < -MaxCents {
		return 0, fmt.Errorf("%s x %d: %w", a, qty, ErrOutOfRange)
	}
	return Amount(p), nil
}

// Div divides the amount by n, rounding half away from zero to whole cents.
// It reports false when n is zero.
func (a Amount) Div(n int64) (Amount, bool) {
	if n == 0 {
		return 0, false
	}
	num := int64(a)
	neg := (num < 0) != (n < 0)
	if num < 0 {
		num = -num
	}
	if n < 0 {
		n = -n
	}
	q, r := num/n, num%n
	if r*2 >= n {
		q++
	}
	if neg {
		q = -q
	}
	return Amount(q), true
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// String renders the amount with exactly two decimals, e.g. "-12.05".
func (a Amount) String() string {
	c := int64(a)
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Float64 returns the amount in currency units. Only for display and metrics.
func (a Amount) Float64() float64 {
	return float64(a) / 100
}

// Value implements driver.Valuer so amounts bind as exact decimal text.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// GormDataType declares the column type used when gorm migrates a model.
func (Amount) GormDataType() string {
	return "decimal(12,2)"
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
