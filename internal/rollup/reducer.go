package rollup

import (
	"sort"
	"time"
)

// Bucket accumulates totals for one group key. All monetary totals stay in
// integer minor units until presentation. Accumulation is commutative, so row
// order never affects the final totals.
type Bucket struct {
	Key                 string
	RecordCount         int64
	TotalQuantity       int64
	GrossMinorUnits     int64
	CostMinorUnits      int64
	FeeMinorUnits       int64
	TotalDurationMillis int64
	TotalDistance       float64
	TotalStops          int64
	WonCount            int64
	LostCount           int64
	FirstAt             time.Time
	LastAt              time.Time
}

// Result holds the outcome of one reduction pass.
type Result struct {
	Buckets   map[string]*Bucket
	InputRows int64
	Excluded  int64
}

// Keys returns the bucket keys in natural string order.
func (r Result) Keys() []string {
	keys := make([]string, 0, len(r.Buckets))
	for k := range r.Buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Accumulator folds records into buckets for a single report invocation.
// Candidate columns are resolved once, against the first row added, and the
// resolution is applied to every subsequent row.
type Accumulator struct {
	dim    Dimension
	fields FieldMap

	resolved bool
	keyField string
	keyOK    bool
	quantity string
	price    string
	cost     string
	fee      string
	duration string
	distance string
	stops    string
	outcome  string

	buckets  map[string]*Bucket
	input    int64
	excluded int64
}

// NewAccumulator prepares an accumulator for the given dimension and fields.
func NewAccumulator(dim Dimension, fields FieldMap) *Accumulator {
	return &Accumulator{
		dim:     dim,
		fields:  fields,
		buckets: make(map[string]*Bucket),
	}
}

func (a *Accumulator) resolve(sample Record) {
	a.keyField, a.keyOK = ResolveField(sample, a.dim.Candidates)
	a.quantity, _ = ResolveField(sample, a.fields.Quantity)
	a.price, _ = ResolveField(sample, a.fields.UnitPrice)
	a.cost, _ = ResolveField(sample, a.fields.UnitCost)
	a.fee, _ = ResolveField(sample, a.fields.Fee)
	a.duration, _ = ResolveField(sample, a.fields.Duration)
	a.distance, _ = ResolveField(sample, a.fields.Distance)
	a.stops, _ = ResolveField(sample, a.fields.Stops)
	a.outcome, _ = ResolveField(sample, a.fields.Outcome)
	a.resolved = true
}

// Add folds one record. Rows without a resolvable group key are excluded and
// counted, never bucketed under an empty key.
func (a *Accumulator) Add(rec Record) {
	if !a.resolved {
		a.resolve(rec)
	}
	a.input++

	if !a.keyOK {
		a.excluded++
		return
	}
	key, ok := stringValue(rec[a.keyField])
	if !ok {
		a.excluded++
		return
	}

	bucket, exists := a.buckets[key]
	if !exists {
		bucket = &Bucket{Key: key}
		a.buckets[key] = bucket
	}

	quantity := intValue(rec[a.quantity])
	if quantity < 0 {
		quantity = 0
	}
	price := ToMinorUnits(rec[a.price])
	unitCost := ToMinorUnits(rec[a.cost])

	bucket.RecordCount++
	bucket.TotalQuantity += quantity
	bucket.GrossMinorUnits += GrossOf(quantity, price)
	bucket.CostMinorUnits += CostOf(quantity, unitCost)
	bucket.FeeMinorUnits += ToMinorUnits(rec[a.fee])
	bucket.TotalDurationMillis += intValue(rec[a.duration])
	bucket.TotalDistance += floatValue(rec[a.distance])
	bucket.TotalStops += intValue(rec[a.stops])

	if a.outcome != "" {
		switch outcome, _ := stringValue(rec[a.outcome]); outcome {
		case "won":
			bucket.WonCount++
		case "lost":
			bucket.LostCount++
		}
	}

	if at := timeValue(rec["occurred_at"]); !at.IsZero() {
		if bucket.FirstAt.IsZero() || at.Before(bucket.FirstAt) {
			bucket.FirstAt = at
		}
		if at.After(bucket.LastAt) {
			bucket.LastAt = at
		}
	}
}

// Result freezes the accumulator. Buckets must not be mutated afterwards.
func (a *Accumulator) Result() Result {
	return Result{Buckets: a.buckets, InputRows: a.input, Excluded: a.excluded}
}

// Reduce folds a full record slice in one call.
func Reduce(records []Record, dim Dimension, fields FieldMap) Result {
	acc := NewAccumulator(dim, fields)
	for _, rec := range records {
		acc.Add(rec)
	}
	return acc.Result()
}
