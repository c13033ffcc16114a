package utils_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doshiMiraj/MGNREGA-Dashboard/utils"
)

func TestParseInt(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"42", 42},
		{" 1,23,456 ", 123456},
		{"12.9", 12},
		{"-3", -3},
		{"", 0},
		{"NA", 0},
		{"abc", 0},
		{"1e3", 1000},
		{"99999999999999999999", 0},
		{"-99999999999999999999", 0},
		{"1e30", 0},
		{"9223372036854775807.5", 9223372036854775807},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, utils.ParseInt(tt.in), "input %q", tt.in)
	}
}

func TestParseDecimal(t *testing.T) {
	assert.Equal(t, 245.67, utils.ParseDecimal("245.666", 2))
	assert.Equal(t, 1234.5, utils.ParseDecimal("1,234.50", 2))
	assert.Equal(t, 0.0, utils.ParseDecimal("n/a", 2))
	assert.Equal(t, 0.0, utils.ParseDecimal("", 2))
}

func TestParseDecimalOutOfRange(t *testing.T) {
	for _, in := range []string{"1e400", "-1e400", "1e13", "12345678901234567.89"} {
		assert.Equal(t, 0.0, utils.ParseDecimal(in, 2), "input %q", in)
	}
	assert.Equal(t, 9999999999999.99, utils.ParseDecimal("9999999999999.99", 2))
}

func TestRoundAndSafeDiv(t *testing.T) {
	assert.Equal(t, 2.35, utils.Round(2.345, 2))
	assert.Equal(t, 33.3, utils.Round(100.0/3, 1))
	assert.Equal(t, 0.0, utils.SafeDiv(5, 0))
	assert.Equal(t, 2.5, utils.SafeDiv(5, 2))
}

func TestRoundNonFinite(t *testing.T) {
	assert.True(t, math.IsInf(utils.Round(math.Inf(1), 2), 1))
	assert.True(t, math.IsNaN(utils.Round(math.NaN(), 2)))
	assert.False(t, utils.Finite(math.Inf(-1)))
	assert.True(t, utils.Finite(1.5))
}
