package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/odyssey-kpi/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-kpi/internal/jobs"
	"github.com/odyssey-erp/odyssey-kpi/internal/kpi"
	"github.com/odyssey-erp/odyssey-kpi/jobs"
)

func main() {
	_ = godotenv.Load()

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

	logger := app.NewLogger(cfg).With(slog.String("process", "worker"))

	records, err := app.OpenRecords(ctx, cfg, logger)
	if err != nil {
		logger.Error("open record backend", slog.Any("error", err))
		os.Exit(1)
	}
	defer records.Close()

	kpiMetrics := kpi.NewMetrics(prometheus.DefaultRegisterer)
	gateway := kpi.NewGateway(records.Store, kpi.GatewayConfig{
		SourceTimeout: cfg.SourceTimeout,
		RetryAttempts: cfg.SourceAttempts,
	}, logger, kpiMetrics)
	service := kpi.NewService(gateway, nil, kpiMetrics)

	digestJob := jobs.NewKPIDigestJob(service, records.Tenants, logger, jobmetrics.NewMetrics(nil))

	digestTask, err := jobs.NewKPIDigestTask(cfg.DigestPeriodDays)
	if err != nil {
		logger.Error("build digest task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskKPIDigest, Handler: digestJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: digestTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
