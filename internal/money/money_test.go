package money

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"6435", "6435.00"},
		{"1610", "1610.00"},
		{"0.005", "0.01"},
		{"0.004", "0.00"},
		{"2.675", "2.68"},
		{"-715", "-715.00"},
		{"-1.005", "-1.01"},
		{"-0.005", "-0.01"},
		{"-0.004", "0.00"},
		{"1234.5678", "1234.57"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestRound2_Symmetric(t *testing.T) {
	for _, s := range []string{"0.005", "0.015", "2.675", "715.125"} {
		pos := decimal.RequireFromString(s)
		assert.True(t, Round2(pos.Neg()).Equal(Round2(pos).Neg()), s)
	}
	assert.Equal(t, "-0.01", Round2(decimal.RequireFromString("-0.005")).StringFixed(2))
	assert.Equal(t, "0.01", Round2(decimal.RequireFromString("0.005")).StringFixed(2))
}

func TestParse(t *testing.T) {
	d, err := Parse(" 1500.00 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(1500)))

	_, err = Parse("15OO")
	assert.Error(t, err)
}

func TestFromFloat(t *testing.T) {
	d, err := FromFloat(1500.25)
	require.NoError(t, err)
	assert.Equal(t, "1500.25", d.String())

	_, err = FromFloat(math.NaN())
	assert.Error(t, err)
	_, err = FromFloat(math.Inf(1))
	assert.Error(t, err)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(643500), ToMinorUnits(decimal.RequireFromString("6435")))
	assert.Equal(t, int64(105), ToMinorUnits(decimal.RequireFromString("1.045")))
	assert.Equal(t, "12.34", FromMinorUnits(1234).String())
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, 104.0, FormatPercent(decimal.RequireFromString("1.04")))
	assert.Equal(t, 33.3, FormatPercent(decimal.NewFromInt(1).Div(decimal.NewFromInt(3))))
	assert.Equal(t, 0.0, FormatPercent(decimal.Zero))
	assert.Equal(t, 87.5, FormatScore(decimal.RequireFromString("87.46")))
}

func TestFormatNullable(t *testing.T) {
	assert.Nil(t, FormatNullable(decimal.NullDecimal{}))

	s := FormatNullable(decimal.NewNullDecimal(decimal.NewFromInt(50)))
	require.NotNil(t, s)
	assert.Equal(t, "50.00", *s)
}
