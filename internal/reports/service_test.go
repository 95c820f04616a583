package reports

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vendops/vendops/internal/platform/db"
	"github.com/vendops/vendops/internal/rollup"
)

type stubFetcher struct {
	records map[string][]rollup.Record
	absent  map[string]string
}

func (f *stubFetcher) Fetch(_ context.Context, source string, _ time.Time) ([]rollup.Record, db.Capability, error) {
	if ddl, ok := f.absent[source]; ok {
		return nil, db.Capability{Table: source, Present: false, SchemaDDL: ddl}, nil
	}
	return f.records[source], db.Capability{Table: source, Present: true}, nil
}

type stubCosts map[string]int64

func (c stubCosts) AcquisitionCosts(context.Context) (map[string]int64, error) {
	return c, nil
}

type stubStock map[string]int64

func (s stubStock) StockLevels(context.Context) (map[string]int64, error) {
	return s, nil
}

func testWindow() Window {
	return Window{
		Since: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		Days:  30,
	}
}

func newTestService(fetcher *stubFetcher, costs stubCosts, stock stubStock) *Service {
	return NewService(ServiceParams{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Fetcher:   fetcher,
		Cache:     NewCache(nil, 0),
		Machines:  costs,
		Inventory: stock,
	})
}

func saleRow(machine string, qty int, priceCents, costCents, feeCents int64, at time.Time) rollup.Record {
	return rollup.Record{
		"machine_id":       machine,
		"location_id":      "loc-1",
		"product_id":       "prod-1",
		"processor":        "nayax",
		"quantity":         qty,
		"unit_price_cents": priceCents,
		"unit_cost_cents":  costCents,
		"fee_cents":        feeCents,
		"occurred_at":      at,
	}
}

func TestMachineROIPaybackFromAcquisitionCost(t *testing.T) {
	at := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{records: map[string][]rollup.Record{
		"sales": {
			saleRow("m-1", 10, 200, 50, 10, at),
			saleRow("m-1", 10, 200, 50, 10, at.Add(time.Hour)),
			saleRow("m-2", 1, 100, 100, 0, at),
		},
	}}
	svc := newTestService(fetcher, stubCosts{"m-1": 2980}, stubStock{})

	report, err := svc.MachineROI(context.Background(), testWindow())
	require.NoError(t, err)
	require.Nil(t, report.Notice)
	require.Equal(t, int64(3), report.InputRows)
	require.Equal(t, int64(0), report.Excluded)
	require.Len(t, report.Rows, 2)

	// m-1 nets (10*200 - 10*50 - 10) * 2 = 2980 over the window, sorted first.
	top := report.Rows[0]
	require.Equal(t, "m-1", top.Key)
	require.Equal(t, int64(2980), top.Metrics.NetMinorUnits)

	// Monthly net equals the window net, so payback is exactly one period.
	require.NotNil(t, top.Metrics.PaybackPeriods)
	require.InDelta(t, 1.0, *top.Metrics.PaybackPeriods, 1e-9)

	// m-2 nets zero; no acquisition cost on file, payback stays nil.
	require.Nil(t, report.Rows[1].Metrics.PaybackPeriods)
}

func TestReportAbsentTableCarriesDDLNotice(t *testing.T) {
	fetcher := &stubFetcher{absent: map[string]string{
		"route_stops": "CREATE TABLE route_stops (...);",
	}}
	svc := newTestService(fetcher, stubCosts{}, stubStock{})

	report, err := svc.RouteEfficiency(context.Background(), testWindow())
	require.NoError(t, err)
	require.Empty(t, report.Rows)
	require.NotNil(t, report.Notice)
	require.False(t, report.Notice.Present)
	require.Equal(t, "route_stops", report.Notice.Table)
	require.Contains(t, report.Notice.SchemaDDL, "CREATE TABLE route_stops")
}

func TestSKUVelocityDaysOfStock(t *testing.T) {
	at := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{records: map[string][]rollup.Record{
		"sales": {
			saleRow("m-1", 30, 150, 50, 0, at),
			saleRow("m-1", 30, 150, 50, 0, at.Add(time.Hour)),
		},
	}}
	svc := newTestService(fetcher, stubCosts{}, stubStock{"prod-1": 12})

	report, err := svc.SKUVelocity(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, report.Velocity, 1)

	row := report.Velocity[0]
	require.Equal(t, "prod-1", row.Key)
	// 60 units over 30 days = 2/day; 12 on hand = 6 days of stock.
	require.InDelta(t, 2.0, row.UnitsPerDay, 1e-9)
	require.Equal(t, int64(12), row.StockOnHand)
	require.InDelta(t, 6.0, row.DaysOfStock, 1e-9)
}

func TestSKUVelocityZeroSalesLeavesCoverageZero(t *testing.T) {
	fetcher := &stubFetcher{records: map[string][]rollup.Record{"sales": nil}}
	svc := newTestService(fetcher, stubCosts{}, stubStock{"prod-1": 12})

	report, err := svc.SKUVelocity(context.Background(), testWindow())
	require.NoError(t, err)
	require.Empty(t, report.Velocity)
}

func TestDailySalesTrendChronological(t *testing.T) {
	fetcher := &stubFetcher{records: map[string][]rollup.Record{
		"sales": {
			saleRow("m-1", 1, 100, 0, 0, time.Date(2026, time.February, 12, 9, 0, 0, 0, time.UTC)),
			saleRow("m-1", 1, 100, 0, 0, time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC)),
			saleRow("m-1", 1, 100, 0, 0, time.Date(2026, time.February, 10, 21, 0, 0, 0, time.UTC)),
		},
	}}
	svc := newTestService(fetcher, stubCosts{}, stubStock{})

	report, err := svc.DailySalesTrend(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	require.Equal(t, "2026-02-10", report.Rows[0].Key)
	require.Equal(t, int64(2), report.Rows[0].Bucket.RecordCount)
	require.Equal(t, "2026-02-12", report.Rows[1].Key)
}

func TestProspectFunnelWinRate(t *testing.T) {
	created := time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC)
	prospect := func(source, stage string) rollup.Record {
		return rollup.Record{
			"business_name": "x",
			"source":        source,
			"stage":         stage,
			"occurred_at":   created,
		}
	}
	fetcher := &stubFetcher{records: map[string][]rollup.Record{
		"prospects": {
			prospect("referral", "won"),
			prospect("referral", "won"),
			prospect("referral", "lost"),
			prospect("cold_call", "lost"),
			prospect("cold_call", "contacted"),
		},
	}}
	svc := newTestService(fetcher, stubCosts{}, stubStock{})

	report, err := svc.ProspectFunnel(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	// referral: 2 of 3 decided won; cold_call: 0 of 1 decided.
	require.Equal(t, "referral", report.Rows[0].Key)
	require.InDelta(t, 2.0/3.0, report.Rows[0].Metrics.WinRate, 1e-9)
	require.Equal(t, "cold_call", report.Rows[1].Key)
	require.Zero(t, report.Rows[1].Metrics.WinRate)
}

func TestProcessorFeesGroupsByProcessor(t *testing.T) {
	at := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	rows := []rollup.Record{
		saleRow("m-1", 1, 500, 0, 25, at),
		saleRow("m-1", 1, 500, 0, 25, at),
	}
	rows[1]["processor"] = "cantaloupe"
	fetcher := &stubFetcher{records: map[string][]rollup.Record{"sales": rows}}
	svc := newTestService(fetcher, stubCosts{}, stubStock{})

	report, err := svc.ProcessorFees(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	for _, row := range report.Rows {
		require.Equal(t, int64(25), row.Bucket.FeeMinorUnits)
	}
}

func TestWarmAllBuildsEveryReport(t *testing.T) {
	fetcher := &stubFetcher{
		records: map[string][]rollup.Record{"sales": nil, "prospects": nil},
		absent:  map[string]string{"route_stops": "CREATE TABLE route_stops (...);"},
	}
	svc := newTestService(fetcher, stubCosts{}, stubStock{})

	require.NoError(t, svc.WarmAll(context.Background(), testWindow()))
}
