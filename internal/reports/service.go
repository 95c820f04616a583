package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vendops/vendops/internal/platform/db"
	"github.com/vendops/vendops/internal/rollup"
)

// RecordFetcher is the raw-row source for every report.
type RecordFetcher interface {
	Fetch(ctx context.Context, source string, since time.Time) ([]rollup.Record, db.Capability, error)
}

// AcquisitionCostSource supplies machine acquisition costs keyed the way sales
// rows key machines.
type AcquisitionCostSource interface {
	AcquisitionCosts(ctx context.Context) (map[string]int64, error)
}

// StockLevelSource supplies on-hand stock per product for velocity derivation.
type StockLevelSource interface {
	StockLevels(ctx context.Context) (map[string]int64, error)
}

// Observer records aggregation passes for monitoring.
type Observer interface {
	ObserveReport(report string, elapsed time.Duration, included, excluded int64)
}

// Window bounds one report run. Days drives monthly-rate derivations.
type Window struct {
	Since time.Time `json:"since"`
	Days  float64   `json:"days"`
}

// WindowOf builds a window covering the last n days, minimum one. The start
// truncates to the hour so identical requests within the cache TTL share a
// cache key.
func WindowOf(days int) Window {
	if days < 1 {
		days = 1
	}
	return Window{
		Since: time.Now().UTC().AddDate(0, 0, -days).Truncate(time.Hour),
		Days:  float64(days),
	}
}

// Report is one finished aggregation: ordered rows plus the counts that prove
// no input row was silently dropped. When the source table is missing, Rows is
// empty and Notice carries the provisioning DDL.
type Report struct {
	Name        string         `json:"name"`
	Window      Window         `json:"window"`
	Rows        []rollup.Row   `json:"rows"`
	InputRows   int64          `json:"input_rows"`
	Excluded    int64          `json:"excluded_rows"`
	Notice      *db.Capability `json:"notice,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// VelocityRow extends a rollup row with stock coverage for the SKU report.
type VelocityRow struct {
	rollup.Row
	StockOnHand int64   `json:"stock_on_hand"`
	UnitsPerDay float64 `json:"units_per_day"`
	DaysOfStock float64 `json:"days_of_stock"`
}

// VelocityReport is the SKU velocity report with stock coverage columns.
type VelocityReport struct {
	Report
	Velocity []VelocityRow `json:"velocity"`
}

type Service struct {
	logger    *slog.Logger
	fetcher   RecordFetcher
	cache     *Cache
	machines  AcquisitionCostSource
	inventory StockLevelSource
	metrics   Observer
	group     singleflight.Group
}

type ServiceParams struct {
	Logger    *slog.Logger
	Fetcher   RecordFetcher
	Cache     *Cache
	Machines  AcquisitionCostSource
	Inventory StockLevelSource
	Metrics   Observer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		logger:    p.Logger,
		fetcher:   p.Fetcher,
		cache:     p.Cache,
		machines:  p.Machines,
		inventory: p.Inventory,
		metrics:   p.Metrics,
	}
}

// definition is the static shape of one report: where rows come from and how they
// fold.
type definition struct {
	source     string
	dimension  rollup.Dimension
	fields     rollup.FieldMap
	sortMetric rollup.SortMetric
	descending bool
	// transform mutates fetched records before reduction, e.g. to synthesise
	// a grouping column.
	transform func([]rollup.Record)
	// inputs supplies per-bucket derive context once the reduction is frozen.
	inputs func(ctx context.Context, res rollup.Result, win Window) (map[string]rollup.DeriveInput, error)
}

var salesFields = rollup.FieldMap{
	Quantity:  []string{"quantity", "qty"},
	UnitPrice: []string{"unit_price_cents", "unit_price", "price_cents"},
	UnitCost:  []string{"unit_cost_cents", "unit_cost", "cost_cents"},
	Fee:       []string{"fee_cents", "processor_fee_cents", "fee"},
}

var routeFields = rollup.FieldMap{
	Quantity:  []string{"quantity", "qty"},
	UnitPrice: []string{"unit_price_cents", "unit_price"},
	Duration:  []string{"duration_millis", "duration_ms"},
	Distance:  []string{"distance_miles", "distance"},
	Stops:     []string{"stops", "stop_count"},
}

// MachineROI groups sales by machine and derives payback periods from each
// machine's acquisition cost.
func (s *Service) MachineROI(ctx context.Context, win Window) (*Report, error) {
	return s.cachedReport(ctx, "machine_roi", win, definition{
		source:     "sales",
		dimension:  rollup.Dimension{Name: "machine", Candidates: []string{"machine_id", "machine"}},
		fields:     salesFields,
		sortMetric: rollup.SortByNet,
		descending: true,
		inputs: func(ctx context.Context, res rollup.Result, win Window) (map[string]rollup.DeriveInput, error) {
			costs, err := s.machines.AcquisitionCosts(ctx)
			if err != nil {
				return nil, fmt.Errorf("acquisition costs: %w", err)
			}
			inputs := make(map[string]rollup.DeriveInput, len(res.Buckets))
			for key := range res.Buckets {
				inputs[key] = rollup.DeriveInput{
					AcquisitionCostMinorUnits: costs[key],
					WindowDays:                win.Days,
				}
			}
			return inputs, nil
		},
	})
}

// RouteEfficiency groups route stop rows by route and ranks by revenue per
// mile-hour.
func (s *Service) RouteEfficiency(ctx context.Context, win Window) (*Report, error) {
	return s.cachedReport(ctx, "route_efficiency", win, definition{
		source:     "route_stops",
		dimension:  rollup.Dimension{Name: "route", Candidates: []string{"route_id", "route"}},
		fields:     routeFields,
		sortMetric: rollup.SortByEfficiency,
		descending: true,
	})
}

// LocationProfitability groups sales by location, net descending.
func (s *Service) LocationProfitability(ctx context.Context, win Window) (*Report, error) {
	return s.cachedReport(ctx, "location_profitability", win, definition{
		source:     "sales",
		dimension:  rollup.Dimension{Name: "location", Candidates: []string{"location_id", "location"}},
		fields:     salesFields,
		sortMetric: rollup.SortByNet,
		descending: true,
	})
}

// ProcessorFees groups sales by payment processor so fee burdens compare
// side by side.
func (s *Service) ProcessorFees(ctx context.Context, win Window) (*Report, error) {
	return s.cachedReport(ctx, "processor_fees", win, definition{
		source:     "sales",
		dimension:  rollup.Dimension{Name: "processor", Candidates: []string{"processor", "processor_id"}},
		fields:     salesFields,
		sortMetric: rollup.SortByGross,
		descending: true,
	})
}

// ProspectFunnel groups prospects by lead source and derives win rates from
// decided stages.
func (s *Service) ProspectFunnel(ctx context.Context, win Window) (*Report, error) {
	return s.cachedReport(ctx, "prospect_funnel", win, definition{
		source:    "prospects",
		dimension: rollup.Dimension{Name: "source", Candidates: []string{"source", "channel", "lead_source"}},
		fields: rollup.FieldMap{
			Outcome: []string{"stage", "status"},
		},
		sortMetric: rollup.SortByWinRate,
		descending: true,
	})
}

// DailySalesTrend groups sales by UTC day, oldest day first.
func (s *Service) DailySalesTrend(ctx context.Context, win Window) (*Report, error) {
	return s.cachedReport(ctx, "daily_sales_trend", win, definition{
		source:     "sales",
		dimension:  rollup.Dimension{Name: "day", Candidates: []string{"sale_day"}},
		fields:     salesFields,
		sortMetric: rollup.SortByKey,
		transform: func(records []rollup.Record) {
			for _, rec := range records {
				if at, ok := rec["occurred_at"].(time.Time); ok {
					rec["sale_day"] = at.UTC().Format("2006-01-02")
				}
			}
		},
	})
}

// SKUVelocity groups sales by product and adds stock coverage: how many days
// the current on-hand stock lasts at the window's observed sell rate.
func (s *Service) SKUVelocity(ctx context.Context, win Window) (*VelocityReport, error) {
	return cached(ctx, s, "sku_velocity", win, func(ctx context.Context) (*VelocityReport, error) {
		base, err := s.build(ctx, "sku_velocity", win, definition{
			source:     "sales",
			dimension:  rollup.Dimension{Name: "product", Candidates: []string{"product_id", "sku"}},
			fields:     salesFields,
			sortMetric: rollup.SortByQuantity,
			descending: true,
		})
		if err != nil {
			return nil, err
		}
		report := &VelocityReport{Report: *base}
		if base.Notice != nil {
			return report, nil
		}

		levels, err := s.inventory.StockLevels(ctx)
		if err != nil {
			return nil, fmt.Errorf("stock levels: %w", err)
		}
		report.Velocity = make([]VelocityRow, 0, len(base.Rows))
		for _, row := range base.Rows {
			perDay := rollup.SafeDiv(float64(row.Bucket.TotalQuantity), win.Days)
			stock := levels[row.Key]
			report.Velocity = append(report.Velocity, VelocityRow{
				Row:         row,
				StockOnHand: stock,
				UnitsPerDay: perDay,
				DaysOfStock: rollup.SafeDiv(float64(stock), perDay),
			})
		}
		return report, nil
	})
}

func (s *Service) cachedReport(ctx context.Context, name string, win Window, sp definition) (*Report, error) {
	return cached(ctx, s, name, win, func(ctx context.Context) (*Report, error) {
		return s.build(ctx, name, win, sp)
	})
}

// cached collapses concurrent identical report runs and serves from the
// versioned cache when warm.
func cached[T any](ctx context.Context, s *Service, name string, win Window, build func(context.Context) (*T, error)) (*T, error) {
	key, err := s.cache.BuildKey(ctx, "reports", name,
		win.Since.UTC().Format(time.RFC3339), strconv.FormatFloat(win.Days, 'f', -1, 64))
	if err != nil {
		return nil, err
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		var out T
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return build(ctx)
		})
		if err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// build runs the fetch → reduce → derive → present pipeline once.
func (s *Service) build(ctx context.Context, name string, win Window, sp definition) (*Report, error) {
	start := time.Now()

	records, capability, err := s.fetcher.Fetch(ctx, sp.source, win.Since)
	if err != nil {
		return nil, err
	}
	report := &Report{
		Name:        name,
		Window:      win,
		GeneratedAt: time.Now().UTC(),
	}
	if !capability.Present {
		notice := capability
		report.Notice = &notice
		s.logger.Warn("report source table absent",
			slog.String("report", name), slog.String("table", capability.Table))
		return report, nil
	}

	if sp.transform != nil {
		sp.transform(records)
	}
	res := rollup.Reduce(records, sp.dimension, sp.fields)

	var inputs map[string]rollup.DeriveInput
	if sp.inputs != nil {
		inputs, err = sp.inputs(ctx, res, win)
		if err != nil {
			return nil, err
		}
	}

	report.Rows = rollup.Present(res, inputs, sp.sortMetric, sp.descending)
	report.InputRows = res.InputRows
	report.Excluded = res.Excluded

	if res.Excluded > 0 {
		s.logger.Debug("rows excluded from rollup",
			slog.String("report", name), slog.Int64("excluded", res.Excluded))
	}
	if s.metrics != nil {
		s.metrics.ObserveReport(name, time.Since(start), res.InputRows-res.Excluded, res.Excluded)
	}
	return report, nil
}

// WarmAll rebuilds every report for the default window; jobs call it after
// writes bump the cache version.
func (s *Service) WarmAll(ctx context.Context, win Window) error {
	builders := []func(context.Context, Window) error{
		func(ctx context.Context, w Window) error { _, err := s.MachineROI(ctx, w); return err },
		func(ctx context.Context, w Window) error { _, err := s.RouteEfficiency(ctx, w); return err },
		func(ctx context.Context, w Window) error { _, err := s.LocationProfitability(ctx, w); return err },
		func(ctx context.Context, w Window) error { _, err := s.SKUVelocity(ctx, w); return err },
		func(ctx context.Context, w Window) error { _, err := s.ProcessorFees(ctx, w); return err },
		func(ctx context.Context, w Window) error { _, err := s.ProspectFunnel(ctx, w); return err },
		func(ctx context.Context, w Window) error { _, err := s.DailySalesTrend(ctx, w); return err },
	}
	for _, build := range builders {
		if err := build(ctx, win); err != nil {
			return err
		}
	}
	return nil
}

// BumpCache invalidates all cached reports; write paths call this.
func (s *Service) BumpCache(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
