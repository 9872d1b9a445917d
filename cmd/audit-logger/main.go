package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/safekidsapps/account-hub/internal/app/auditlogger"
	"github.com/safekidsapps/account-hub/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting audit logger", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := auditlogger.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize audit logger app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("audit logger app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("audit logger app stopped gracefully")
}
