package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/legalwatchdog/platform/internal/config"
	"github.com/legalwatchdog/platform/internal/database"
	"github.com/legalwatchdog/platform/internal/notify"
	"github.com/legalwatchdog/platform/internal/queue"
	"github.com/legalwatchdog/platform/internal/queue/workers"
	"github.com/legalwatchdog/platform/internal/scrape"
	"github.com/legalwatchdog/platform/internal/search"
	"github.com/legalwatchdog/platform/internal/webhook"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	queueClient := queue.NewClient(cfg.Redis)
	dispatcher := webhook.NewDispatcher(db)
	notifier := notify.NewService(db, dispatcher)

	fetcher := scrape.NewFetcher(time.Duration(cfg.Scraper.FetchTimeout)*time.Second, cfg.Scraper.MaxBodyBytes)
	summarizer := scrape.NewSummarizer(cfg.Scraper.AnthropicKey, cfg.Scraper.SummaryModel)
	runner := scrape.NewRunner(db, fetcher, summarizer, notifier, queueClient)

	embedder := search.NewEmbedder(cfg.Scraper.OpenAIKey, cfg.Search.EmbeddingModel)
	searchSvc := search.NewService(db, embedder)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	scrapeWorker := workers.NewScrapeWorker(runner)
	embedWorker := workers.NewEmbedWorker(searchSvc)
	emailWorker := workers.NewEmailWorker(workers.LogSender{})

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeScrapeRun, scrapeWorker.ProcessTask)
	mux.HandleFunc(queue.TypeEmbedRevision, embedWorker.ProcessTask)
	mux.HandleFunc(queue.TypeEmailSend, emailWorker.ProcessTask)

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
