package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/legalwatchdog/platform/internal/queue"
	"github.com/legalwatchdog/platform/internal/search"
)

type EmbedWorker struct {
	search *search.Service
}

func NewEmbedWorker(s *search.Service) *EmbedWorker {
	return &EmbedWorker{search: s}
}

func (w *EmbedWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.EmbedRevisionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	revisionID, err := uuid.Parse(payload.RevisionID)
	if err != nil {
		return fmt.Errorf("parse revision ID: %w", err)
	}

	slog.Info("indexing revision", "revision_id", revisionID)
	return w.search.IndexRevision(ctx, revisionID)
}
