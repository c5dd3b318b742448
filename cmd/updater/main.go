package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"partsync/internal/app"
	"partsync/internal/config"
	"partsync/internal/logging"
	"partsync/internal/model"
	"partsync/internal/notify"
	"partsync/internal/scheduler"
)

// go run ./cmd/updater
// go run ./cmd/updater -once
func main() {
	once := flag.Bool("once", false, "run a single forced update and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.New("error").Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *once); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, once bool) error {
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	if !once {
		return application.Run(ctx)
	}

	res, err := application.RunOnce(ctx)
	if err != nil {
		return err
	}
	logger.Info(notify.Summary(model.Notification{
		Message:   scheduler.NotificationMessage(res),
		HasErrors: res.HasErrors(),
		Errors:    res.Errors,
	}))
	return nil
}
