package rollup

// Metrics is the read-only derived view of a frozen bucket. Every ratio uses
// an explicit zero-denominator guard; no NaN or Inf ever leaves this layer.
type Metrics struct {
	NetMinorUnits   int64    `json:"net_minor_units"`
	RatePerDistance float64  `json:"rate_per_distance"`
	RatePerHour     float64  `json:"rate_per_hour"`
	EfficiencyScore float64  `json:"efficiency_score"`
	MilesPerStop    float64  `json:"miles_per_stop"`
	WinRate         float64  `json:"win_rate"`
	PaybackPeriods  *float64 `json:"payback_periods"`
}

// DeriveInput carries the per-bucket context that lives outside the raw rows.
type DeriveInput struct {
	AcquisitionCostMinorUnits int64
	WindowDays                float64
}

// SafeDiv divides with an explicit zero guard instead of producing Inf/NaN.
func SafeDiv(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	return numerator / denominator
}

// Derive computes secondary metrics for one bucket, once, after all rows fold.
func Derive(b *Bucket, in DeriveInput) Metrics {
	m := Metrics{
		NetMinorUnits: b.GrossMinorUnits - b.CostMinorUnits - b.FeeMinorUnits,
	}

	gross := float64(b.GrossMinorUnits)
	hours := float64(b.TotalDurationMillis) / millisPerHour

	m.RatePerDistance = SafeDiv(gross, b.TotalDistance)
	m.RatePerHour = SafeDiv(gross, hours)
	if b.TotalDistance > 0 && hours > 0 {
		m.EfficiencyScore = gross / (b.TotalDistance * hours)
	}
	m.MilesPerStop = SafeDiv(b.TotalDistance, float64(b.TotalStops))

	decided := b.WonCount + b.LostCount
	m.WinRate = SafeDiv(float64(b.WonCount), float64(decided))

	// Payback stays nil ("never") rather than zero when the machine cannot pay
	// itself back; presentation renders nil as a dash.
	if in.AcquisitionCostMinorUnits > 0 && in.WindowDays > 0 {
		monthlyNet := float64(m.NetMinorUnits) / in.WindowDays * daysPerMonth
		if monthlyNet > 0 {
			periods := float64(in.AcquisitionCostMinorUnits) / monthlyNet
			m.PaybackPeriods = &periods
		}
	}
	return m
}

const (
	millisPerHour = 3_600_000
	daysPerMonth  = 30
)
