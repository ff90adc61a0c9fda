package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalwatchdog/platform/internal/models"
)

// Notifier fans out the outcome of a scrape to notifications and webhooks.
type Notifier interface {
	RevisionChange(ctx context.Context, orgID uuid.UUID, rev *models.Revision, sourceTitle string)
	ScrapeFailure(ctx context.Context, orgID, sourceID uuid.UUID, reason string)
}

// EmbedEnqueuer schedules embedding of a stored revision for search.
type EmbedEnqueuer interface {
	EnqueueEmbed(ctx context.Context, revisionID uuid.UUID) error
}

// Runner executes scrape jobs on the worker. One run is fetch, change
// detection, and on change a summarized revision insert.
type Runner struct {
	db         *pgxpool.Pool
	fetcher    *Fetcher
	summarizer *Summarizer
	notifier   Notifier
	embedder   EmbedEnqueuer
}

func NewRunner(db *pgxpool.Pool, fetcher *Fetcher, summarizer *Summarizer, notifier Notifier, embedder EmbedEnqueuer) *Runner {
	return &Runner{db: db, fetcher: fetcher, summarizer: summarizer, notifier: notifier, embedder: embedder}
}

func (r *Runner) Run(ctx context.Context, jobID uuid.UUID) error {
	job := &models.ScrapeJob{}
	var sourceURL, sourceTitle, guidance string
	err := r.db.QueryRow(ctx,
		`SELECT j.id, j.organization_id, j.source_id, j.status, s.url, s.title, COALESCE(jd.guidance, '')
		 FROM scrape_jobs j
		 JOIN sources s ON s.id = j.source_id
		 JOIN jurisdictions jd ON jd.id = s.jurisdiction_id
		 WHERE j.id = $1`, jobID,
	).Scan(&job.ID, &job.OrganizationID, &job.SourceID, &job.Status, &sourceURL, &sourceTitle, &guidance)
	if errors.Is(err, pgx.ErrNoRows) {
		// Job row gone; nothing to retry.
		slog.Warn("scrape job not found", "job_id", jobID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load scrape job: %w", err)
	}

	if job.Status != models.ScrapeJobQueued {
		slog.Info("scrape job already handled", "job_id", jobID, "status", job.Status)
		return nil
	}

	if _, err := r.db.Exec(ctx,
		`UPDATE scrape_jobs SET status = $1, started_at = now() WHERE id = $2`,
		models.ScrapeJobRunning, jobID,
	); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	if err := r.execute(ctx, job, sourceURL, sourceTitle, guidance); err != nil {
		r.fail(ctx, job, err)
		return err
	}

	_, err = r.db.Exec(ctx,
		`UPDATE scrape_jobs SET status = $1, finished_at = now() WHERE id = $2`,
		models.ScrapeJobSucceeded, jobID,
	)
	return err
}

func (r *Runner) execute(ctx context.Context, job *models.ScrapeJob, url, title, guidance string) error {
	result, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}

	var lastHash string
	err = r.db.QueryRow(ctx,
		`SELECT content_hash FROM revisions WHERE source_id = $1 ORDER BY scraped_at DESC LIMIT 1`,
		job.SourceID,
	).Scan(&lastHash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("load last revision hash: %w", err)
	}

	if _, err := r.db.Exec(ctx,
		`UPDATE sources SET last_scraped_at = now() WHERE id = $1`, job.SourceID); err != nil {
		return fmt.Errorf("stamp source: %w", err)
	}

	if !Changed(lastHash, result.Text) {
		slog.Info("source unchanged", "job_id", job.ID, "source_id", job.SourceID)
		return nil
	}

	summary, err := r.summarizer.Summarize(ctx, result.Text, guidance)
	if err != nil {
		// A revision without a summary still beats a lost revision.
		slog.Error("summarization failed", "job_id", job.ID, "error", err)
		summary = ""
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"content_type": result.ContentType,
		"pages":        result.Pages,
		"fetched_at":   result.FetchedAt.Format(time.RFC3339),
	})

	rev := &models.Revision{
		ID:             uuid.New(),
		OrganizationID: job.OrganizationID,
		SourceID:       job.SourceID,
		ContentHash:    Fingerprint(result.Text),
		Content:        result.Text,
		Summary:        summary,
		Metadata:       metadata,
	}
	err = r.db.QueryRow(ctx,
		`INSERT INTO revisions (id, organization_id, source_id, content_hash, content, summary, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING scraped_at`,
		rev.ID, rev.OrganizationID, rev.SourceID, rev.ContentHash, rev.Content, rev.Summary, rev.Metadata,
	).Scan(&rev.ScrapedAt)
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}

	if err := r.embedder.EnqueueEmbed(ctx, rev.ID); err != nil {
		slog.Error("failed to enqueue embedding", "revision_id", rev.ID, "error", err)
	}

	r.notifier.RevisionChange(ctx, job.OrganizationID, rev, title)
	slog.Info("revision captured", "job_id", job.ID, "revision_id", rev.ID, "source_id", job.SourceID)
	return nil
}

func (r *Runner) fail(ctx context.Context, job *models.ScrapeJob, cause error) {
	if _, err := r.db.Exec(ctx,
		`UPDATE scrape_jobs SET status = $1, error = $2, finished_at = now() WHERE id = $3`,
		models.ScrapeJobFailed, cause.Error(), job.ID,
	); err != nil {
		slog.Error("failed to mark scrape job failed", "job_id", job.ID, "error", err)
	}
	r.notifier.ScrapeFailure(ctx, job.OrganizationID, job.SourceID, cause.Error())
}
