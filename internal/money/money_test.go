package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Amount
		wantErr  bool
	}{
		{name: "two decimals", input: "29.99", expected: 2999},
		{name: "one decimal", input: "3.5", expected: 350},
		{name: "integer", input: "12", expected: 1200},
		{name: "surrounding whitespace", input: "  15.00 ", expected: 1500},
		{name: "negative", input: "-0.75", expected: -75},
		{name: "explicit plus", input: "+1.01", expected: 101},
		{name: "leading dot", input: ".25", expected: 25},
		{name: "rounds half up", input: "1.005", expected: 101},
		{name: "rounds down", input: "1.004", expected: 100},
		{name: "negative rounds away from zero", input: "-1.005", expected: -101},
		{name: "empty", input: "", wantErr: true},
		{name: "letters", input: "abc", wantErr: true},
		{name: "dot only", input: ".", wantErr: true},
		{name: "two dots", input: "1.2.3", wantErr: true},
		{name: "currency symbol", input: "$5.00", wantErr: true},
		{name: "largest numeric(12,2)", input: "9999999999.99", expected: MaxCents},
		{name: "largest negative", input: "-9999999999.99", expected: -MaxCents},
		{name: "rounds past the bound", input: "9999999999.995", wantErr: true},
		{name: "beyond numeric(12,2)", input: "10000000000", wantErr: true},
		{name: "beyond int64", input: "92233720368547758080", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "29.99", Cents(2999).String())
	assert.Equal(t, "0.05", Cents(5).String())
	assert.Equal(t, "-12.30", Cents(-1230).String())
	assert.Equal(t, "0.00", Zero.String())
}

func TestArithmetic(t *testing.T) {
	price := MustParse("29.99")

	assert.Equal(t, MustParse("59.98"), price.Mul(2))
	assert.Equal(t, MustParse("109.97"), price.Mul(2).Add(MustParse("49.99")))
	assert.Equal(t, MustParse("29.98"), price.Mul(2).Sub(MustParse("30.00")))
	assert.Equal(t, -1, price.Cmp(MustParse("30")))
	assert.Equal(t, 0, price.Cmp(Cents(2999)))
	assert.Equal(t, 1, price.Cmp(Zero))
}

func TestMulChecked(t *testing.T) {
	tests := []struct {
		name    string
		amount  Amount
		qty     int64
		want    Amount
		wantErr bool
	}{
		{name: "small", amount: MustParse("29.99"), qty: 2, want: MustParse("59.98")},
		{name: "zero quantity", amount: MustParse("29.99"), qty: 0, want: Zero},
		{name: "negative quantity", amount: MustParse("5.00"), qty: -3, want: MustParse("-15.00")},
		{name: "at the bound", amount: Cents(1), qty: MaxCents, want: MaxCents},
		{name: "past the bound", amount: Cents(2), qty: MaxCents, wantErr: true},
		{name: "negative past the bound", amount: Cents(-2), qty: MaxCents, wantErr: true},
		{name: "wraps int64", amount: MustParse("2.00"), qty: 92233720368547758, wantErr: true},
		{name: "wraps to positive", amount: Cents(-4), qty: 1 << 62, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.amount.MulChecked(tt.qty)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOutOfRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiv(t *testing.T) {
	tests := []struct {
		name    string
		amount  Amount
		divisor int64
		want    Amount
		ok      bool
	}{
		{name: "exact", amount: MustParse("1139.80"), divisor: 20, want: MustParse("56.99"), ok: true},
		{name: "rounds half up", amount: Cents(5), divisor: 2, want: Cents(3), ok: true},
		{name: "rounds down", amount: Cents(10), divisor: 3, want: Cents(3), ok: true},
		{name: "negative", amount: Cents(-5), divisor: 2, want: Cents(-3), ok: true},
		{name: "zero divisor", amount: Cents(100), divisor: 0, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.amount.Div(tt.divisor)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestValueAndText(t *testing.T) {
	v, err := MustParse("49.99").Value()
	require.NoError(t, err)
	assert.Equal(t, "49.99", v)

	var a Amount
	require.NoError(t, a.UnmarshalText([]byte("300")))
	assert.Equal(t, Cents(30000), a)

	b, err := a.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "300.00", string(b))
}
