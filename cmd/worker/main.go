package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/cuaderno-app/cuaderno/internal/app"
	"github.com/cuaderno-app/cuaderno/internal/credit"
	"github.com/cuaderno-app/cuaderno/internal/observability"
	"github.com/cuaderno-app/cuaderno/internal/platform/db"
	"github.com/cuaderno-app/cuaderno/internal/shared"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
	"github.com/cuaderno-app/cuaderno/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	offers, err := cfg.Offers()
	if err != nil {
		logger.Error("parse financing offers", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	partyRepo := thirdparty.NewRepository(pool)
	creditRepo := credit.NewRepository(pool)
	creditService := credit.NewService(creditRepo, partyRepo, auditLogger, metrics, offers)

	scanJob := jobs.NewCreditDefaultScanJob(creditService, cfg.DefaultAfterDays, logger)
	scanTask, err := jobs.NewCreditDefaultScanTask(jobs.CreditDefaultScanPayload{GraceDays: cfg.DefaultAfterDays})
	if err != nil {
		logger.Error("build default scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCreditDefaultScan, Handler: scanJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
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
