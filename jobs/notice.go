package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/vendops/vendops/internal/jobs"
)

// Mailer delivers one operator notice.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPMailer sends plain-text mail to the operator inbox.
type SMTPMailer struct {
	Addr string
	From string
	To   string
}

func (m *SMTPMailer) Send(_ context.Context, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + m.To,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(m.Addr, nil, m.From, []string{m.To}, []byte(msg))
}

// RestockNoticeJob delivers a restock notice raised by the low-stock scan.
type RestockNoticeJob struct {
	mailer  Mailer
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

func NewRestockNoticeJob(mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *RestockNoticeJob {
	return &RestockNoticeJob{mailer: mailer, logger: logger, metrics: metrics}
}

func (j *RestockNoticeJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("restock_notice")

	var payload RestockNoticePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		tracker.End(err)
		return asynq.SkipRetry
	}

	subject := fmt.Sprintf("Restock %s slot %s", payload.MachineCode, payload.SlotCode)
	body := fmt.Sprintf("Slot %s on machine %s is at %d of par %d (%s).",
		payload.SlotCode, payload.MachineCode, payload.CurrentLevel, payload.ParLevel, payload.SKU)
	if err := j.mailer.Send(ctx, subject, body); err != nil {
		return tracker.End(fmt.Errorf("send restock notice: %w", err))
	}

	j.logger.Info("restock notice sent",
		slog.String("machine", payload.MachineCode), slog.String("slot", payload.SlotCode))
	return tracker.End(nil)
}
