package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/app"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/settings"
	"github.com/odyssey-erp/odyssey-pos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := jobmetrics.NewMetrics(nil)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	settingsStore := settings.NewStore(redisClient, cfg.SettingsDefaults())

	printStack, err := app.NewPrinting(cfg, logger, metrics)
	if err != nil {
		logger.Error("init printing", slog.Any("error", err))
		os.Exit(1)
	}
	printJob := jobs.NewPrintTicketJob(printStack.Station, settingsStore.Printer, logger, metrics)
	handlers := printJob.Handlers()

	var cron []jobs.CronRegistration
	if cfg.CatalogStore == "postgres" {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Warn("catalog database unavailable, refresh disabled", slog.Any("error", err))
		} else {
			defer pool.Close()
			store := catalog.NewPostgresStore(pool)
			if err := store.EnsureSchema(ctx); err != nil {
				logger.Error("catalog schema", slog.Any("error", err))
				os.Exit(1)
			}
			ledgerClient := ledger.NewClient(ledger.Config{
				BaseURL: cfg.LedgerBaseURL,
				Token:   cfg.LedgerToken,
				Timeout: cfg.LedgerTimeout,
			})
			refreshJob := jobs.NewCatalogRefreshJob(catalog.NewService(store, ledgerClient, logger), cfg.BranchID, logger, metrics)
			handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskCatalogRefresh, Handler: refreshJob.Handle})

			if cfg.BranchID > 0 && cfg.CatalogRefreshCron != "" {
				refreshTask, err := jobs.NewCatalogRefreshTask(cfg.BranchID)
				if err != nil {
					logger.Error("build catalog refresh task", slog.Any("error", err))
					os.Exit(1)
				}
				cron = append(cron, jobs.CronRegistration{
					Spec:    cfg.CatalogRefreshCron,
					Task:    refreshTask,
					Options: []asynq.Option{asynq.Timeout(5 * time.Minute)},
				})
			}
		}
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  handlers,
		Cron:      cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
