package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimal bounds the magnitude of a stored NUMERIC(15,2) value.
const MaxDecimal = 1e13

// ParseInt reads a whole number from loosely formatted source text.
// Thousands separators are dropped and decimal input is truncated.
// Anything unparseable or outside the int64 range yields 0.
func ParseInt(s string) int64 {
	s = cleanNumber(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	whole := d.Truncate(0).BigInt()
	if !whole.IsInt64() {
		return 0
	}
	return whole.Int64()
}

// ParseDecimal reads a decimal value rounded to the given number of places.
// Anything unparseable, or too large for a NUMERIC(15,2) column, yields 0.
func ParseDecimal(s string, places int32) float64 {
	s = cleanNumber(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	v := d.Round(places).InexactFloat64()
	if !Finite(v) || math.Abs(v) >= MaxDecimal {
		return 0
	}
	return v
}

// Finite reports whether v is neither infinite nor NaN.
func Finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Round rounds half away from zero to the given number of places.
// Non-finite input is returned unchanged.
func Round(v float64, places int32) float64 {
	if !Finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// SafeDiv returns a/b, or 0 when b is 0.
func SafeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if strings.EqualFold(s, "NA") || strings.EqualFold(s, "null") {
		return ""
	}
	return s
}
