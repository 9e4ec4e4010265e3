package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		european bool
		want     string
		wantErr  bool
	}{
		{name: "plain", raw: "4.50", want: "4.5"},
		{name: "currency symbol", raw: "$4.50", want: "4.5"},
		{name: "thousands separator", raw: "1,234.56", want: "1234.56"},
		{name: "accounting negative", raw: "(12.00)", want: "-12"},
		{name: "symbol inside parens", raw: "($1,234.56)", want: "-1234.56"},
		{name: "european format", raw: "1.234,56", european: true, want: "1234.56"},
		{name: "surrounding whitespace", raw: "  3.25 ", want: "3.25"},
		{name: "empty", raw: "", wantErr: true},
		{name: "not a number", raw: "market price", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw, tt.european)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("$4.50", USD, false)
	require.NoError(t, err)
	assert.Equal(t, int64(450), m.Amount())
	assert.Equal(t, USD, m.Currency())

	_, err = ParseMoney("n/a", USD, false)
	assert.Error(t, err)
}

func TestNewFromDecimal(t *testing.T) {
	m := NewFromDecimal(decimal.RequireFromString("4.505"), USD)
	assert.Equal(t, int64(451), m.Amount(), "rounds to the nearest cent")

	m = NewFromDecimal(decimal.RequireFromString("2.50"), "NOPE")
	assert.Equal(t, USD, m.Currency(), "unknown currency falls back to USD")
}

func TestArithmetic(t *testing.T) {
	a := New(450, USD)
	b := New(250, USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(700), sum.Amount())

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, int64(200), diff.Amount())

	_, err = a.Add(New(100, "EUR"))
	assert.Error(t, err, "currency mismatch must not add")

	assert.True(t, a.Equals(New(450, USD)))
	assert.False(t, a.Equals(b))
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "$1,234.56", New(123456, USD).Display())
	assert.Equal(t, "1234.56", New(123456, USD).String())
	assert.Equal(t, "$0.00", (*Money)(nil).Display())

	assert.Equal(t, "$4.00", DisplayDecimal(decimal.RequireFromString("4.00")))
	assert.Equal(t, "+$0.50", DisplayAdjustment(decimal.RequireFromString("0.50")))
	assert.Equal(t, "-$0.50", DisplayAdjustment(decimal.RequireFromString("-0.50")))
	assert.Equal(t, "$0.00", DisplayAdjustment(decimal.Zero))
}
