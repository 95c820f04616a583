package rollup

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SortMetric selects the ordering column for a presented rollup.
type SortMetric string

const (
	SortByGross       SortMetric = "gross"
	SortByNet         SortMetric = "net"
	SortByCount       SortMetric = "count"
	SortByQuantity    SortMetric = "quantity"
	SortByRatePerHour SortMetric = "rate_per_hour"
	SortByEfficiency  SortMetric = "efficiency"
	SortByWinRate     SortMetric = "win_rate"
	// SortByKey orders by the group key itself, which for date-shaped keys
	// yields chronological order.
	SortByKey SortMetric = "key"
)

// Row is one presented rollup line: the frozen bucket plus derived metrics.
type Row struct {
	Key     string  `json:"key"`
	Bucket  Bucket  `json:"totals"`
	Metrics Metrics `json:"metrics"`
}

// Present orders the rollup by the chosen metric. Ties fall back to the group
// key's natural string order so repeated runs render identically.
func Present(res Result, inputs map[string]DeriveInput, metric SortMetric, descending bool) []Row {
	rows := make([]Row, 0, len(res.Buckets))
	for _, key := range res.Keys() {
		bucket := res.Buckets[key]
		rows = append(rows, Row{
			Key:     key,
			Bucket:  *bucket,
			Metrics: Derive(bucket, inputs[key]),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if metric == SortByKey {
			if descending {
				return rows[i].Key > rows[j].Key
			}
			return rows[i].Key < rows[j].Key
		}
		a, b := sortValue(rows[i], metric), sortValue(rows[j], metric)
		if a == b {
			return rows[i].Key < rows[j].Key
		}
		if descending {
			return a > b
		}
		return a < b
	})
	return rows
}

func sortValue(row Row, metric SortMetric) float64 {
	switch metric {
	case SortByNet:
		return float64(row.Metrics.NetMinorUnits)
	case SortByCount:
		return float64(row.Bucket.RecordCount)
	case SortByQuantity:
		return float64(row.Bucket.TotalQuantity)
	case SortByRatePerHour:
		return row.Metrics.RatePerHour
	case SortByEfficiency:
		return row.Metrics.EfficiencyScore
	case SortByWinRate:
		return row.Metrics.WinRate
	default:
		return float64(row.Bucket.GrossMinorUnits)
	}
}

// FormatMinorUnits renders integer minor units as a fixed two-decimal amount.
// Rounding happens here and nowhere earlier; banker's rounding keeps repeated
// exports consistent.
func FormatMinorUnits(v int64) string {
	return decimal.New(v, -2).StringFixedBank(2)
}

// FormatPayback renders a payback period, or a dash for "never".
func FormatPayback(p *float64) string {
	if p == nil {
		return "-"
	}
	return decimal.NewFromFloat(*p).StringFixedBank(1)
}
