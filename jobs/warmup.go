package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/vendops/vendops/internal/jobs"
	"github.com/vendops/vendops/internal/reports"
)

// ReportWarmer rebuilds the cached reports for a window.
type ReportWarmer interface {
	WarmAll(ctx context.Context, win reports.Window) error
}

// ReportWarmupJob pre-builds every report so dashboard loads hit a warm
// cache. It runs nightly and after settlement or import writes bump the
// cache version.
type ReportWarmupJob struct {
	reports ReportWarmer
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

func NewReportWarmupJob(warmer ReportWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{reports: warmer, logger: logger, metrics: metrics}
}

func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("report_warmup")

	var payload ReportWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			tracker.End(err)
			return asynq.SkipRetry
		}
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = 30
	}

	if err := j.reports.WarmAll(ctx, reports.WindowOf(payload.WindowDays)); err != nil {
		return tracker.End(fmt.Errorf("report warmup: %w", err))
	}
	j.logger.Info("report warmup finished", slog.Int("window_days", payload.WindowDays))
	return tracker.End(nil)
}
