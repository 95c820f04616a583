package rollup

import (
	"math"
	"strconv"
	"strings"
)

// ToMinorUnits normalises an amount value to integer minor units (cents).
//
// String amounts follow the upstream decimal-point convention: a value with a
// decimal separator is a dollar amount and scales by 100, a bare integer is
// already minor units. Whole-dollar strings like "100" are therefore read as
// 100 cents; the importer records the per-column interpretation so the
// ambiguity stays visible instead of silently resolved.
// Missing or non-finite values normalise to zero.
func ToMinorUnits(v any) int64 {
	switch n := v.(type) {
	case nil:
		return 0
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		if n == math.Trunc(n) {
			return int64(n)
		}
		return int64(math.Round(n * 100))
	case float32:
		return ToMinorUnits(float64(n))
	case string:
		return parseAmount(n)
	default:
		return 0
	}
}

// HasDecimalSeparator reports whether a raw amount string carries a decimal
// point, i.e. whether ToMinorUnits will treat it as dollars.
func HasDecimalSeparator(s string) bool {
	return strings.Contains(s, ".")
}

func parseAmount(s string) int64 {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	if cleaned == "" {
		return 0
	}
	if !strings.Contains(cleaned, ".") {
		i, err := strconv.ParseInt(cleaned, 10, 64)
		if err != nil {
			return 0
		}
		return i
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(math.Round(f * 100))
}

// GrossOf computes a row's gross in minor units: quantity times unit price.
func GrossOf(quantity, unitPriceMinor int64) int64 {
	return quantity * unitPriceMinor
}

// CostOf computes a row's cost in minor units: quantity times unit cost.
func CostOf(quantity, unitCostMinor int64) int64 {
	return quantity * unitCostMinor
}
