package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/vendops/vendops/internal/inventory"
	jobmetrics "github.com/vendops/vendops/internal/jobs"
)

// LowStockLister supplies the slots currently at or below par.
type LowStockLister interface {
	LowStock(ctx context.Context) ([]inventory.LowStockItem, error)
}

// Enqueuer submits follow-up tasks; *Client satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// LowStockScanJob walks machine slots and enqueues one restock notice per
// slot at or below par level.
type LowStockScanJob struct {
	inventory LowStockLister
	client    Enqueuer
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
}

func NewLowStockScanJob(inv LowStockLister, client Enqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{inventory: inv, client: client, logger: logger, metrics: metrics}
}

// Handle runs one scan. Notice enqueue failures are logged per slot and do
// not fail the scan; the next run retries naturally.
func (j *LowStockScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := j.metrics.Track("low_stock_scan")

	items, err := j.inventory.LowStock(ctx)
	if err != nil {
		return tracker.End(fmt.Errorf("low stock scan: %w", err))
	}

	raised := 0
	for _, item := range items {
		task, err := NewRestockNoticeTask(RestockNoticePayload{
			SlotID:       item.SlotID,
			SlotCode:     item.SlotCode,
			MachineCode:  item.MachineCode,
			SKU:          item.SKU,
			CurrentLevel: item.CurrentLevel,
			ParLevel:     item.ParLevel,
		})
		if err != nil {
			return tracker.End(err)
		}
		if _, err := j.client.Enqueue(ctx, task, asynq.MaxRetry(3)); err != nil {
			j.logger.Warn("enqueue restock notice",
				slog.Int64("slot_id", item.SlotID), slog.Any("error", err))
			continue
		}
		raised++
	}

	j.metrics.AddNotices(raised)
	j.logger.Info("low stock scan finished",
		slog.Int("low_slots", len(items)), slog.Int("notices", raised))
	return tracker.End(nil)
}
