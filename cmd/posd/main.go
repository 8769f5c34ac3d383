package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-pos/internal/app"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/checkout"
	"github.com/odyssey-erp/odyssey-pos/internal/connectivity"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/observability"
	"github.com/odyssey-erp/odyssey-pos/internal/offline"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/printing"
	"github.com/odyssey-erp/odyssey-pos/internal/reconcile"
	"github.com/odyssey-erp/odyssey-pos/internal/settings"
	"github.com/odyssey-erp/odyssey-pos/jobs"
	"github.com/odyssey-erp/odyssey-pos/report"
)

// staleStagingAge is how old a leftover staged ticket must be before the
// startup sweep removes it.
const staleStagingAge = 10 * time.Minute

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping posd startup")
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
	slog.SetDefault(logger)

	metrics := observability.NewMetrics()
	domainMetrics := jobmetrics.NewMetrics(metrics.Registerer())

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

	catalogStore, closeCatalog := openCatalogStore(ctx, cfg, logger)
	defer closeCatalog()

	ledgerClient := ledger.NewClient(ledger.Config{
		BaseURL: cfg.LedgerBaseURL,
		Token:   cfg.LedgerToken,
		Timeout: cfg.LedgerTimeout,
	})
	catalogService := catalog.NewService(catalogStore, ledgerClient, logger)
	queue := offline.NewQueue(offline.NewRedisStore(redisClient, logger), logger, domainMetrics)
	settingsStore := settings.NewStore(redisClient, cfg.SettingsDefaults())

	monitor := connectivity.NewMonitor(ledgerClient, cfg.ProbeInterval, logger)
	monitor.OnTransition(func(tr connectivity.Transition) {
		if tr.To != connectivity.Online || cfg.BranchID == 0 {
			return
		}
		go func() {
			if _, err := catalogService.Refresh(ctx, cfg.BranchID); err != nil {
				logger.Warn("catalog refresh on reconnect", slog.Any("error", err))
			}
		}()
	})

	reconciler := reconcile.New(reconcile.Config{
		Queue:        queue,
		Submitter:    ledgerClient,
		Connectivity: monitor,
		Interval:     cfg.SyncInterval,
		Logger:       logger,
		Metrics:      domainMetrics,
	})

	printStack, err := app.NewPrinting(cfg, logger, domainMetrics)
	if err != nil {
		logger.Error("init printing", slog.Any("error", err))
		os.Exit(1)
	}
	printStack.Dispatcher.SweepStaging(staleStagingAge)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	var ticketPrinter checkout.TicketPrinter
	if cfg.PrintInline {
		ticketPrinter = checkout.StationPrinter{Station: printStack.Station, Logger: logger}
	} else {
		jobsClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init jobs client", slog.Any("error", err))
			os.Exit(1)
		}
		defer jobsClient.Close()
		ticketPrinter = jobsClient
	}
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	checkoutService := checkout.NewService(checkout.Config{
		Branch:       cfg.Branch(),
		Ledger:       ledgerClient,
		Queue:        queue,
		Connectivity: monitor,
		Settings:     settingsStore,
		Printer:      ticketPrinter,
		Logger:       logger,
		Metrics:      domainMetrics,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Metrics:             metrics,
		CheckoutHandler:     checkout.NewHandler(checkoutService, logger),
		CatalogHandler:      catalog.NewHandler(catalogService, cfg.BranchID, logger),
		PrintingHandler:     printing.NewHandler(printStack.Station, settingsStore.Printer, logger),
		SettingsHandler:     settings.NewHandler(settingsStore),
		SyncHandler:         reconcile.NewHandler(reconciler),
		ConnectivityHandler: connectivity.NewHandler(monitor),
		ReportHandler:       report.NewHandler(printStack.PDF, logger),
		JobHandler:          jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("posd listening", slog.String("addr", cfg.AppAddr), slog.String("print_mode", cfg.PrintMode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return ignoreCanceled(monitor.Run(groupCtx))
	})
	group.Go(func() error {
		return ignoreCanceled(reconciler.Run(groupCtx))
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", slog.Any("error", err))
		}
		if err := queue.Close(shutdownCtx); err != nil {
			logger.Warn("flush offline queue", slog.Any("error", err))
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("posd stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("posd stopped")
}

// openCatalogStore prefers the Postgres mirror and falls back to memory so a
// missing database never blocks selling.
func openCatalogStore(ctx context.Context, cfg *app.Config, logger *slog.Logger) (catalog.Store, func()) {
	if cfg.CatalogStore == "memory" {
		return catalog.NewMemoryStore(), func() {}
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Warn("catalog database unavailable, using memory mirror", slog.Any("error", err))
		return catalog.NewMemoryStore(), func() {}
	}
	store := catalog.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Warn("catalog schema unavailable, using memory mirror", slog.Any("error", err))
		pool.Close()
		return catalog.NewMemoryStore(), func() {}
	}
	return store, pool.Close
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
