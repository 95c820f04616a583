package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// ReportInvalidator drops cached reports after settlement writes land.
type ReportInvalidator interface {
	BumpCache(ctx context.Context) error
}

// WarmupEnqueuer schedules a report rebuild so the next dashboard load hits a
// warm cache.
type WarmupEnqueuer interface {
	EnqueueReportWarmup(ctx context.Context) error
}

type Service struct {
	logger      *slog.Logger
	repo        Repository
	invalidator ReportInvalidator
	warmups     WarmupEnqueuer
}

func NewService(logger *slog.Logger, repo Repository, invalidator ReportInvalidator, warmups WarmupEnqueuer) *Service {
	return &Service{logger: logger, repo: repo, invalidator: invalidator, warmups: warmups}
}

// Ingest inserts settlement lines one at a time. A bad line is recorded in
// the result and skipped; it never aborts the rest of the batch.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	result := &IngestResult{}
	for i, line := range req.Settlements {
		_, err := s.repo.InsertSettlement(ctx, Settlement{
			Processor:  line.Processor,
			SettledOn:  line.SettledOn.UTC().Truncate(24 * time.Hour),
			GrossCents: line.GrossCents,
			FeeCents:   line.FeeCents,
			NetCents:   line.NetCents,
			Reference:  line.Reference,
		})
		if err != nil {
			if errors.Is(err, ErrDuplicateReference) {
				result.Skipped++
				result.Errors = append(result.Errors, IngestError{Index: i, Message: err.Error()})
				continue
			}
			return nil, fmt.Errorf("ingest line %d: %w", i, err)
		}
		result.Inserted++
	}
	if result.Inserted > 0 {
		if s.invalidator != nil {
			if err := s.invalidator.BumpCache(ctx); err != nil {
				s.logger.Warn("report cache bump failed", slog.Any("error", err))
			}
		}
		if s.warmups != nil {
			if err := s.warmups.EnqueueReportWarmup(ctx); err != nil {
				s.logger.Warn("report warmup enqueue failed", slog.Any("error", err))
			}
		}
	}
	s.logger.Info("settlements ingested",
		slog.Int("inserted", result.Inserted),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

func (s *Service) ListSettlements(ctx context.Context, from, to time.Time) ([]Settlement, error) {
	if !from.Before(to) {
		return nil, ErrInvalidWindow
	}
	return s.repo.ListSettlements(ctx, from, to)
}

// Reconcile compares settlement totals against sales totals per processor
// per day over a window and classifies every pair.
func (s *Service) Reconcile(ctx context.Context, from, to time.Time) (*Summary, error) {
	if !from.Before(to) {
		return nil, ErrInvalidWindow
	}

	sales, err := s.repo.SalesTotals(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales totals: %w", err)
	}
	settled, err := s.repo.SettlementTotals(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("settlement totals: %w", err)
	}

	keys := make(map[DayKey]struct{}, len(sales)+len(settled))
	for k := range sales {
		keys[k] = struct{}{}
	}
	for k := range settled {
		keys[k] = struct{}{}
	}

	summary := &Summary{From: from, To: to}
	for key := range keys {
		salesCents, hasSales := sales[key]
		settledCents, hasSettled := settled[key]
		line := MatchLine{
			Processor:       key.Processor,
			Day:             key.Day,
			SalesGrossCents: salesCents,
			SettledCents:    settledCents,
			DeltaCents:      settledCents - salesCents,
		}
		switch {
		case hasSales && hasSettled && salesCents == settledCents:
			line.Status = StatusMatched
			summary.Matched++
		case hasSales && hasSettled:
			line.Status = StatusAmountMismatch
			summary.AmountMismatches++
		case hasSales:
			line.Status = StatusMissingSettlement
			summary.MissingSettlements++
		default:
			line.Status = StatusMissingSales
			summary.MissingSales++
		}
		summary.TotalDeltaCents += line.DeltaCents
		summary.Lines = append(summary.Lines, line)
	}

	sort.Slice(summary.Lines, func(i, j int) bool {
		a, b := summary.Lines[i], summary.Lines[j]
		if !a.Day.Equal(b.Day) {
			return a.Day.Before(b.Day)
		}
		return a.Processor < b.Processor
	})
	return summary, nil
}
