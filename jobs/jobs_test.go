package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/vendops/vendops/internal/inventory"
	"github.com/vendops/vendops/internal/reports"
)

type stubLister struct {
	items []inventory.LowStockItem
	err   error
}

func (s *stubLister) LowStock(context.Context) ([]inventory.LowStockItem, error) {
	return s.items, s.err
}

type stubEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (s *stubEnqueuer) Enqueue(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type stubMailer struct {
	subjects []string
	bodies   []string
	err      error
}

func (s *stubMailer) Send(_ context.Context, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.subjects = append(s.subjects, subject)
	s.bodies = append(s.bodies, body)
	return nil
}

type stubWarmer struct {
	windows []reports.Window
	err     error
}

func (s *stubWarmer) WarmAll(_ context.Context, win reports.Window) error {
	if s.err != nil {
		return s.err
	}
	s.windows = append(s.windows, win)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLowStockScanEnqueuesOneNoticePerSlot(t *testing.T) {
	lister := &stubLister{items: []inventory.LowStockItem{
		{SlotID: 1, SlotCode: "A1", MachineCode: "VM-01", SKU: "CHIP-01", CurrentLevel: 1, ParLevel: 3},
		{SlotID: 2, SlotCode: "B2", MachineCode: "VM-02", SKU: "SODA-02", CurrentLevel: 0, ParLevel: 5},
	}}
	enq := &stubEnqueuer{}
	job := NewLowStockScanJob(lister, enq, discardLogger(), nil)

	require.NoError(t, job.Handle(context.Background(), NewLowStockScanTask()))
	require.Len(t, enq.tasks, 2)
	require.Equal(t, TaskRestockNotice, enq.tasks[0].Type())
}

func TestLowStockScanEnqueueFailureDoesNotFailScan(t *testing.T) {
	lister := &stubLister{items: []inventory.LowStockItem{{SlotID: 1}}}
	enq := &stubEnqueuer{err: errors.New("redis down")}
	job := NewLowStockScanJob(lister, enq, discardLogger(), nil)

	require.NoError(t, job.Handle(context.Background(), NewLowStockScanTask()))
}

func TestRestockNoticeDelivery(t *testing.T) {
	mailer := &stubMailer{}
	job := NewRestockNoticeJob(mailer, discardLogger(), nil)

	task, err := NewRestockNoticeTask(RestockNoticePayload{
		SlotID: 1, SlotCode: "A1", MachineCode: "VM-01", SKU: "CHIP-01",
		CurrentLevel: 1, ParLevel: 3,
	})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, mailer.subjects, 1)
	require.Contains(t, mailer.subjects[0], "VM-01")
	require.Contains(t, mailer.bodies[0], "par 3")
}

func TestRestockNoticeBadPayloadSkipsRetry(t *testing.T) {
	job := NewRestockNoticeJob(&stubMailer{}, discardLogger(), nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskRestockNotice, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestReportWarmupDefaultsWindow(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewReportWarmupJob(warmer, discardLogger(), nil)

	task, err := NewReportWarmupTask(0)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, warmer.windows, 1)
	require.InDelta(t, 30, warmer.windows[0].Days, 1e-9)
}
