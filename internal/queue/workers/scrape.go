package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/legalwatchdog/platform/internal/queue"
	"github.com/legalwatchdog/platform/internal/scrape"
)

type ScrapeWorker struct {
	runner *scrape.Runner
}

func NewScrapeWorker(runner *scrape.Runner) *ScrapeWorker {
	return &ScrapeWorker{runner: runner}
}

func (w *ScrapeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ScrapeRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("parse job ID: %w", err)
	}

	slog.Info("running scrape job", "job_id", jobID)
	return w.runner.Run(ctx, jobID)
}
