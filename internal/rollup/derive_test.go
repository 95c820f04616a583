package rollup

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveNetIdentity(t *testing.T) {
	b := &Bucket{GrossMinorUnits: 700, CostMinorUnits: 350, FeeMinorUnits: 45}
	m := Derive(b, DeriveInput{})
	require.Equal(t, int64(305), m.NetMinorUnits)
	require.Equal(t, b.GrossMinorUnits-b.CostMinorUnits-b.FeeMinorUnits, m.NetMinorUnits)
}

func TestDeriveZeroDenominators(t *testing.T) {
	b := &Bucket{GrossMinorUnits: 1000}
	m := Derive(b, DeriveInput{})

	require.Zero(t, m.RatePerDistance)
	require.Zero(t, m.RatePerHour)
	require.Zero(t, m.EfficiencyScore)
	require.Zero(t, m.MilesPerStop)
	require.Zero(t, m.WinRate)
	require.Nil(t, m.PaybackPeriods)

	for _, v := range []float64{m.RatePerDistance, m.RatePerHour, m.EfficiencyScore, m.MilesPerStop, m.WinRate} {
		require.False(t, math.IsNaN(v))
		require.False(t, math.IsInf(v, 0))
	}
}

func TestDeriveRates(t *testing.T) {
	b := &Bucket{
		GrossMinorUnits:     6000,
		TotalDistance:       30,
		TotalDurationMillis: 2 * millisPerHour,
		TotalStops:          6,
	}
	m := Derive(b, DeriveInput{})

	require.InDelta(t, 200, m.RatePerDistance, 1e-9)
	require.InDelta(t, 3000, m.RatePerHour, 1e-9)
	require.InDelta(t, 100, m.EfficiencyScore, 1e-9)
	require.InDelta(t, 5, m.MilesPerStop, 1e-9)
}

func TestDerivePayback(t *testing.T) {
	b := &Bucket{GrossMinorUnits: 90000, CostMinorUnits: 30000}
	m := Derive(b, DeriveInput{AcquisitionCostMinorUnits: 120000, WindowDays: 30})

	require.NotNil(t, m.PaybackPeriods)
	require.InDelta(t, 2.0, *m.PaybackPeriods, 1e-9)

	// Negative net never pays back; nil distinguishes "never" from zero.
	loss := &Bucket{GrossMinorUnits: 100, CostMinorUnits: 500}
	require.Nil(t, Derive(loss, DeriveInput{AcquisitionCostMinorUnits: 120000, WindowDays: 30}).PaybackPeriods)
	require.Nil(t, Derive(b, DeriveInput{AcquisitionCostMinorUnits: 0, WindowDays: 30}).PaybackPeriods)
}

func TestFormatPayback(t *testing.T) {
	require.Equal(t, "-", FormatPayback(nil))
	p := 2.25
	require.Equal(t, "2.2", FormatPayback(&p))
}
