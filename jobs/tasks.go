// Package jobs defines the background task surface: low-stock scans that raise
// restock notices, report cache warmups, and notice delivery.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan walks machine slots and raises restock notices.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskRestockNotice delivers one restock notice to the operator inbox.
	TaskRestockNotice = "inventory:restock_notice"
	// TaskReportWarmup rebuilds every cached report for the default window.
	TaskReportWarmup = "reports:warmup"
)

// RestockNoticePayload identifies the slot that fell to or below par.
type RestockNoticePayload struct {
	SlotID       int64  `json:"slot_id"`
	SlotCode     string `json:"slot_code"`
	MachineCode  string `json:"machine_code"`
	SKU          string `json:"sku"`
	CurrentLevel int    `json:"current_level"`
	ParLevel     int    `json:"par_level"`
}

// ReportWarmupPayload selects the window the warmup rebuilds.
type ReportWarmupPayload struct {
	WindowDays int `json:"window_days"`
}

// NewLowStockScanTask constructs the scan task; it carries no payload.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil)
}

// NewRestockNoticeTask constructs a notice delivery task.
func NewRestockNoticeTask(payload RestockNoticePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRestockNotice, data), nil
}

// NewReportWarmupTask constructs a report warmup task.
func NewReportWarmupTask(windowDays int) (*asynq.Task, error) {
	data, err := json.Marshal(ReportWarmupPayload{WindowDays: windowDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}
