package rollup

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func salesDimension() Dimension {
	return Dimension{Name: "machine", Candidates: []string{"machine_id"}}
}

func salesFields() FieldMap {
	return FieldMap{
		Quantity:  []string{"quantity", "qty"},
		UnitPrice: []string{"unit_price_cents", "price_cents"},
		UnitCost:  []string{"unit_cost_cents", "cost_cents"},
		Fee:       []string{"fee_cents"},
	}
}

func TestReduceMachineScenario(t *testing.T) {
	records := []Record{
		{"machine_id": "M1", "quantity": int64(2), "unit_price_cents": int64(175), "unit_cost_cents": int64(100)},
		{"machine_id": "M1", "quantity": int64(1), "unit_price_cents": int64(175), "unit_cost_cents": int64(100)},
		{"machine_id": "M1", "quantity": int64(1), "unit_price_cents": int64(175), "unit_cost_cents": int64(50)},
	}
	res := Reduce(records, salesDimension(), salesFields())

	require.Len(t, res.Buckets, 1)
	bucket := res.Buckets["M1"]
	require.NotNil(t, bucket)
	require.Equal(t, int64(700), bucket.GrossMinorUnits)
	require.Equal(t, int64(350), bucket.CostMinorUnits)
	require.Equal(t, int64(4), bucket.TotalQuantity)

	metrics := Derive(bucket, DeriveInput{})
	require.Equal(t, int64(350), metrics.NetMinorUnits)
}

func TestReduceCountConservation(t *testing.T) {
	records := []Record{
		{"machine_id": "M1", "quantity": int64(1), "unit_price_cents": int64(100)},
		{"machine_id": "M2", "quantity": int64(3), "unit_price_cents": int64(150)},
		{"machine_id": "", "quantity": int64(1), "unit_price_cents": int64(100)},
		{"quantity": int64(2), "unit_price_cents": int64(100), "machine_id": nil},
		{"machine_id": "M1", "quantity": int64(2), "unit_price_cents": int64(100)},
	}
	res := Reduce(records, salesDimension(), salesFields())

	var counted int64
	for _, b := range res.Buckets {
		counted += b.RecordCount
	}
	require.Equal(t, res.InputRows, counted+res.Excluded)
	require.Equal(t, int64(5), res.InputRows)
	require.Equal(t, int64(2), res.Excluded)
}

func TestReduceOrderIndependence(t *testing.T) {
	base := make([]Record, 0, 200)
	rng := rand.New(rand.NewSource(7))
	machines := []string{"M1", "M2", "M3", "M4"}
	for i := 0; i < 200; i++ {
		base = append(base, Record{
			"machine_id":       machines[rng.Intn(len(machines))],
			"quantity":         int64(rng.Intn(5)),
			"unit_price_cents": int64(100 + rng.Intn(200)),
			"unit_cost_cents":  int64(rng.Intn(100)),
			"fee_cents":        int64(rng.Intn(20)),
		})
	}
	want := Reduce(base, salesDimension(), salesFields())

	shuffled := make([]Record, len(base))
	copy(shuffled, base)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	got := Reduce(shuffled, salesDimension(), salesFields())

	require.Equal(t, want.InputRows, got.InputRows)
	require.Equal(t, want.Excluded, got.Excluded)
	require.Equal(t, len(want.Buckets), len(got.Buckets))
	for key, wantBucket := range want.Buckets {
		require.Equal(t, *wantBucket, *got.Buckets[key], "bucket %s", key)
	}
}

func TestReduceNullFirstRowDoesNotPoisonResolution(t *testing.T) {
	// SQL NULL arrives as a present key with a nil value. A nil key or fee in
	// the sample row must only exclude or zero that row, never reject the
	// column for the whole report.
	base := []Record{
		{"machine_id": nil, "quantity": int64(1), "unit_price_cents": int64(100), "fee_cents": int64(5)},
		{"machine_id": "M1", "quantity": int64(2), "unit_price_cents": int64(150), "fee_cents": nil},
		{"machine_id": "M2", "quantity": int64(1), "unit_price_cents": int64(200), "fee_cents": int64(10)},
	}
	want := Reduce(base, salesDimension(), salesFields())
	require.Len(t, want.Buckets, 2)
	require.Equal(t, int64(1), want.Excluded)
	require.Equal(t, int64(300), want.Buckets["M1"].GrossMinorUnits)
	require.Equal(t, int64(0), want.Buckets["M1"].FeeMinorUnits)
	require.Equal(t, int64(10), want.Buckets["M2"].FeeMinorUnits)

	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, perm := range perms {
		ordered := make([]Record, 0, len(base))
		for _, i := range perm {
			ordered = append(ordered, base[i])
		}
		got := Reduce(ordered, salesDimension(), salesFields())

		require.Equal(t, want.Excluded, got.Excluded, "order %v", perm)
		require.Equal(t, len(want.Buckets), len(got.Buckets), "order %v", perm)
		for key, wantBucket := range want.Buckets {
			require.Equal(t, *wantBucket, *got.Buckets[key], "order %v bucket %s", perm, key)
		}
	}
}

func TestReduceIdempotent(t *testing.T) {
	records := []Record{
		{"machine_id": "M1", "quantity": int64(2), "unit_price_cents": int64(175), "unit_cost_cents": int64(100)},
		{"machine_id": "M2", "quantity": int64(1), "unit_price_cents": int64(200), "fee_cents": int64(15)},
	}
	first := Reduce(records, salesDimension(), salesFields())
	second := Reduce(records, salesDimension(), salesFields())

	require.Equal(t, first.InputRows, second.InputRows)
	for key, b := range first.Buckets {
		require.Equal(t, *b, *second.Buckets[key])
	}
}

func TestResolveFieldUsesSampleRowOnce(t *testing.T) {
	// The second row carries the alternate column; the resolution from the
	// first row must still apply, so the second row is excluded.
	records := []Record{
		{"business_name": "Joe's Deli", "quantity": int64(1), "unit_price_cents": int64(100)},
		{"company_name": "Acme Corp", "quantity": int64(1), "unit_price_cents": int64(100)},
	}
	dim := Dimension{Name: "prospect", Candidates: []string{"business_name", "name", "company_name"}}
	res := Reduce(records, dim, salesFields())

	require.Len(t, res.Buckets, 1)
	require.NotNil(t, res.Buckets["Joe's Deli"])
	require.Equal(t, int64(1), res.Excluded)
}

func TestResolveFieldNoCandidate(t *testing.T) {
	records := []Record{
		{"quantity": int64(1), "unit_price_cents": int64(100)},
		{"quantity": int64(2), "unit_price_cents": int64(100)},
	}
	res := Reduce(records, salesDimension(), salesFields())

	require.Empty(t, res.Buckets)
	require.Equal(t, int64(2), res.Excluded)
}

func TestReduceOutcomeCounters(t *testing.T) {
	records := []Record{
		{"stage_group": "Q1", "outcome": "won"},
		{"stage_group": "Q1", "outcome": "lost"},
		{"stage_group": "Q1", "outcome": "won"},
		{"stage_group": "Q1", "outcome": ""},
	}
	dim := Dimension{Name: "quarter", Candidates: []string{"stage_group"}}
	res := Reduce(records, dim, FieldMap{Outcome: []string{"outcome"}})

	bucket := res.Buckets["Q1"]
	require.NotNil(t, bucket)
	require.Equal(t, int64(2), bucket.WonCount)
	require.Equal(t, int64(1), bucket.LostCount)
	require.InDelta(t, 2.0/3.0, Derive(bucket, DeriveInput{}).WinRate, 1e-9)
}
