// Package rollup folds raw transactional rows into keyed accumulators and
// derives presentation metrics from them. It is the shared engine behind the
// report services: every report is a Dimension, a FieldMap, and a sort metric.
package rollup

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is one raw transactional row in schema-flexible form. Source tables
// disagree on column names, so records stay untyped until a resolver picks the
// concrete field for each logical attribute.
type Record map[string]any

// Dimension names a grouping axis and the candidate columns that may carry it.
type Dimension struct {
	Name       string
	Candidates []string
}

// FieldMap lists candidate column names for each numeric attribute a reducer
// may consume. Empty slices mean the attribute is not present in the source.
type FieldMap struct {
	Quantity  []string
	UnitPrice []string
	UnitCost  []string
	Fee       []string
	Duration  []string
	Distance  []string
	Stops     []string
	Outcome   []string
}

// ResolveField returns the first candidate column present in the sample row.
// Presence alone decides: a NULL value still identifies the column, and the
// per-row coercions handle nil. Resolution happens once per invocation so
// every row in a report is read through the same column.
func ResolveField(sample Record, candidates []string) (string, bool) {
	for _, name := range candidates {
		if _, ok := sample[name]; ok {
			return name, true
		}
	}
	return "", false
}

// stringValue coerces a record field to a non-empty string key.
func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		if s == "" {
			return "", false
		}
		return s, true
	case int64:
		return strconv.FormatInt(s, 10), true
	case int:
		return strconv.Itoa(s), true
	case float64:
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return "", false
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return "", false
	}
}

// floatValue coerces a record field to a finite float64, zero when absent.
func floatValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	case float32:
		return floatValue(float64(n))
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case string:
		cleaned := strings.TrimSpace(n)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}

// intValue coerces a record field to int64, zero when absent or non-finite.
func intValue(v any) int64 {
	switch n := v.(type) {
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
		return int64(n)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// timeValue reads a timestamp field, zero time when absent.
func timeValue(v any) time.Time {
	if t, ok := v.(time.Time); ok {
		return t
	}
	return time.Time{}
}
