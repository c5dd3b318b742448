// Package app wires configuration, storage, the updater and the scheduler into the sync service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"partsync/internal/api"
	"partsync/internal/config"
	"partsync/internal/crawler"
	"partsync/internal/logging"
	"partsync/internal/model"
	"partsync/internal/notify"
	"partsync/internal/observability"
	"partsync/internal/repository"
	"partsync/internal/scheduler"
	"partsync/internal/store"
	"partsync/internal/updater"
)

// Application holds the running sync service.
type Application struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     store.Store
	repo      *repository.CatalogRepository
	updater   *updater.Updater
	scheduler *scheduler.Scheduler
	metrics   *observability.Metrics
}

// New opens the configured store and builds the service. Nothing runs until Run or RunOnce.
func New(ctx context.Context, cfg *config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	metrics := observability.NewMetrics()
	repo := repository.NewCatalogRepository(st, cfg.Store.Namespace, baseLogger.With("component", "repository"))

	fetcher := crawler.NewHTTPFetcher(cfg.Updater.ScraperURL, &http.Client{Timeout: cfg.Updater.FetchTimeout})
	u := updater.New(updater.Deps{
		Fetcher:         fetcher,
		Repository:      repo,
		UpdateInterval:  cfg.Updater.UpdateInterval,
		CategoryTimeout: cfg.Updater.CategoryTimeout,
		StampFailedRuns: cfg.Updater.StampFailedRuns,
		Logger:          baseLogger,
		Metrics:         metrics,
	})

	s := scheduler.New(u, repo, scheduler.Options{
		Interval:          cfg.Scheduler.Interval,
		NotificationLimit: cfg.Scheduler.NotificationLimit,
		Logger:            baseLogger,
	})
	s.Subscribe(func(ev scheduler.Event) {
		baseLogger.Info("update event",
			"trigger", ev.Trigger,
			"added", ev.Result.Added,
			"updated", ev.Result.Updated,
			"errors", len(ev.Result.Errors),
		)
	})

	tg := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, baseLogger)
	if tg.Enabled() {
		s.Subscribe(tg.Listener())
	}

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     st,
		repo:      repo,
		updater:   u,
		scheduler: s,
		metrics:   metrics,
	}, nil
}

// Run serves the admin API and metrics, starting the scheduler when autostart is on.
// It blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if parts, err := a.repo.LoadCatalog(ctx); err == nil {
		a.metrics.SetCatalogSize(len(parts))
	}

	metricsSrv := observability.Start(a.cfg.HTTP.MetricsPort, a.metrics, a.logger)

	admin := api.NewAdmin(ctx, a.repo, a.updater, a.scheduler, a.logger)
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           admin.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.cfg.Scheduler.Autostart {
		a.scheduler.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("admin api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("admin api: %w", err)
	}

	a.scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("admin api shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("metrics shutdown", "error", err)
	}
	return runErr
}

// RunOnce performs a single forced update.
func (a *Application) RunOnce(ctx context.Context) (model.UpdateResult, error) {
	return a.scheduler.ForceUpdate(ctx)
}

// Close releases the store.
func (a *Application) Close() error {
	return a.store.Close()
}
