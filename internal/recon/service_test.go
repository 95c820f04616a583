package recon

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	settlements []Settlement
	references  map[string]bool
	sales       map[DayKey]int64
	nextID      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		references: make(map[string]bool),
		sales:      make(map[DayKey]int64),
	}
}

func (r *memoryRepo) InsertSettlement(_ context.Context, s Settlement) (int64, error) {
	if r.references[s.Reference] {
		return 0, ErrDuplicateReference
	}
	r.references[s.Reference] = true
	r.nextID++
	s.ID = r.nextID
	r.settlements = append(r.settlements, s)
	return s.ID, nil
}

func (r *memoryRepo) ListSettlements(_ context.Context, from, to time.Time) ([]Settlement, error) {
	var result []Settlement
	for _, s := range r.settlements {
		if !s.SettledOn.Before(from) && s.SettledOn.Before(to) {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *memoryRepo) SalesTotals(_ context.Context, _, _ time.Time) (map[DayKey]int64, error) {
	return r.sales, nil
}

func (r *memoryRepo) SettlementTotals(_ context.Context, _, _ time.Time) (map[DayKey]int64, error) {
	totals := make(map[DayKey]int64)
	for _, s := range r.settlements {
		key := DayKey{Processor: s.Processor, Day: s.SettledOn}
		totals[key] += s.GrossCents
	}
	return totals, nil
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func testService(repo Repository) *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, nil, nil)
}

func TestIngestSkipsDuplicatesWithoutAborting(t *testing.T) {
	repo := newMemoryRepo()
	svc := testService(repo)

	result, err := svc.Ingest(context.Background(), IngestRequest{Settlements: []SettlementLine{
		{Processor: "nayax", SettledOn: day(1), GrossCents: 1000, Reference: "n-1"},
		{Processor: "nayax", SettledOn: day(1), GrossCents: 1000, Reference: "n-1"},
		{Processor: "cantaloupe", SettledOn: day(1), GrossCents: 500, Reference: "c-1"},
	}})
	require.NoError(t, err)
	require.Equal(t, 2, result.Inserted)
	require.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	require.Equal(t, 1, result.Errors[0].Index)
}

func TestReconcileClassifiesEveryPair(t *testing.T) {
	repo := newMemoryRepo()
	repo.sales[DayKey{Processor: "nayax", Day: day(1)}] = 1000
	repo.sales[DayKey{Processor: "nayax", Day: day(2)}] = 2000
	repo.sales[DayKey{Processor: "cantaloupe", Day: day(1)}] = 700
	svc := testService(repo)

	_, err := svc.Ingest(context.Background(), IngestRequest{Settlements: []SettlementLine{
		{Processor: "nayax", SettledOn: day(1), GrossCents: 1000, Reference: "n-1"},
		{Processor: "nayax", SettledOn: day(2), GrossCents: 1900, Reference: "n-2"},
		{Processor: "stripe", SettledOn: day(1), GrossCents: 300, Reference: "s-1"},
	}})
	require.NoError(t, err)

	summary, err := svc.Reconcile(context.Background(), day(1), day(5))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Matched)
	require.Equal(t, 1, summary.AmountMismatches)
	require.Equal(t, 1, summary.MissingSettlements)
	require.Equal(t, 1, summary.MissingSales)
	require.Len(t, summary.Lines, 4)

	// -100 from the nayax shortfall, -700 missing settlement, +300 stripe
	// settlement with no sales.
	require.Equal(t, int64(-500), summary.TotalDeltaCents)

	// Lines sort by day then processor.
	require.Equal(t, "cantaloupe", summary.Lines[0].Processor)
	require.Equal(t, StatusMissingSettlement, summary.Lines[0].Status)
	require.Equal(t, StatusMatched, summary.Lines[1].Status)
	require.Equal(t, StatusMissingSales, summary.Lines[2].Status)
	require.Equal(t, StatusAmountMismatch, summary.Lines[3].Status)
}

type countingBumper struct{ bumps int }

func (c *countingBumper) BumpCache(context.Context) error {
	c.bumps++
	return nil
}

type countingWarmups struct{ enqueued int }

func (c *countingWarmups) EnqueueReportWarmup(context.Context) error {
	c.enqueued++
	return nil
}

func TestIngestInvalidatesReportsOnce(t *testing.T) {
	bumper := &countingBumper{}
	warmups := &countingWarmups{}
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), newMemoryRepo(), bumper, warmups)

	_, err := svc.Ingest(context.Background(), IngestRequest{Settlements: []SettlementLine{
		{Processor: "nayax", SettledOn: day(1), GrossCents: 1000, Reference: "n-1"},
		{Processor: "nayax", SettledOn: day(2), GrossCents: 2000, Reference: "n-2"},
	}})
	require.NoError(t, err)
	require.Equal(t, 1, bumper.bumps)
	require.Equal(t, 1, warmups.enqueued)
}

func TestIngestAllDuplicatesLeavesCacheAlone(t *testing.T) {
	bumper := &countingBumper{}
	repo := newMemoryRepo()
	repo.references["n-1"] = true
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, bumper, nil)

	result, err := svc.Ingest(context.Background(), IngestRequest{Settlements: []SettlementLine{
		{Processor: "nayax", SettledOn: day(1), GrossCents: 1000, Reference: "n-1"},
	}})
	require.NoError(t, err)
	require.Equal(t, 0, result.Inserted)
	require.Equal(t, 0, bumper.bumps)
}

func TestReconcileRejectsInvertedWindow(t *testing.T) {
	svc := testService(newMemoryRepo())
	_, err := svc.Reconcile(context.Background(), day(5), day(1))
	require.ErrorIs(t, err, ErrInvalidWindow)
}
