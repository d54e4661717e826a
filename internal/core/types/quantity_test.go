package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityParse(t *testing.T) {
	tests := []struct {
		in     string
		scaled int64
	}{
		{"0", 0},
		{"1", 10_000},
		{"120.5", 1_205_000},
		{"0.0001", 1},
		{"-30", -300_000},
		{"-0.5", -5_000},
		{"+2.25", 22_500},
		{".5", 5_000},
		{"3.14159", 31_415}, // extra digits truncated
	}
	for _, tt := range tests {
		q, err := NewQuantityFromString(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.scaled, q.Int64Scaled(), tt.in)
	}

	// Exponent form is rejected, not converted through a float.
	for _, bad := range []string{"", "  ", "abc", "1.2.3", "1,5", "1e3", "1E3", "5e-1"} {
		_, err := NewQuantityFromString(bad)
		assert.Error(t, err, bad)
	}
}

func TestQuantityString(t *testing.T) {
	assert.Equal(t, "0.0000", Quantity(0).String())
	assert.Equal(t, "120.5000", MustQuantity("120.5").String())
	assert.Equal(t, "-30.0000", MustQuantity("-30").String())
	assert.Equal(t, "-0.0001", Quantity(-1).String())
}

func TestQuantityJSON(t *testing.T) {
	data, err := json.Marshal(MustQuantity("120.5"))
	require.NoError(t, err)
	// Number, not string.
	assert.Equal(t, "120.5000", string(data))

	var q Quantity
	require.NoError(t, json.Unmarshal([]byte("120.5"), &q))
	assert.Equal(t, MustQuantity("120.5"), q)

	require.NoError(t, json.Unmarshal([]byte(`"-30.25"`), &q))
	assert.Equal(t, MustQuantity("-30.25"), q)

	require.NoError(t, json.Unmarshal([]byte("null"), &q))
	assert.True(t, q.IsZero())
}

func TestQuantityDecimalRoundTrip(t *testing.T) {
	q := MustQuantity("120.5")
	assert.True(t, q.Decimal().Equal(decimal.RequireFromString("120.5")))

	// Rounding is half away from zero at the 4th digit.
	assert.Equal(t, MustQuantity("0.0001"), NewQuantityFromDecimal(decimal.RequireFromString("0.00005")))
	assert.Equal(t, MustQuantity("-0.0001"), NewQuantityFromDecimal(decimal.RequireFromString("-0.00005")))
	assert.Equal(t, q, NewQuantityFromDecimal(q.Decimal()))
}

func TestQuantityArithmeticHelpers(t *testing.T) {
	q := MustQuantity("2.5")
	assert.Equal(t, MustQuantity("-2.5"), q.Neg())
	assert.Equal(t, q, q.Neg().Abs())
	assert.True(t, q.IsPositive())
	assert.True(t, q.Neg().IsNegative())
	assert.InDelta(t, 2.5, q.Float64(), 1e-9)
}
