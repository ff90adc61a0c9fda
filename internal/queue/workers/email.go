package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/legalwatchdog/platform/internal/queue"
)

// Sender delivers one email. The SMTP (or provider API) implementation is
// injected so the worker stays testable.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender is the development sender: it writes the mail to the log
// instead of delivering it.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, body string) error {
	slog.Info("email (dev sender)", "to", to, "subject", subject, "body", body)
	return nil
}

type EmailWorker struct {
	sender Sender
}

func NewEmailWorker(sender Sender) *EmailWorker {
	return &EmailWorker{sender: sender}
}

func (w *EmailWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.EmailSendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := w.sender.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
		return fmt.Errorf("send email to %s: %w", payload.To, err)
	}

	slog.Info("email sent", "to", payload.To, "subject", payload.Subject)
	return nil
}
