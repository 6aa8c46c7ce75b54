package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-kpi/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-kpi/internal/app"
	"github.com/odyssey-erp/odyssey-kpi/internal/kpi"
	kpihttp "github.com/odyssey-erp/odyssey-kpi/internal/kpi/http"
	"github.com/odyssey-erp/odyssey-kpi/internal/observability"
	"github.com/odyssey-erp/odyssey-kpi/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-kpi/jobs"
)

const usage = `usage: odyssey <command> [flags]

commands:
  serve                     run the KPI HTTP API (default)
  kpi report --snapshot F   build a report from a JSON snapshot
  jobs trigger [--period N] enqueue the kpi:digest job
  jobs stats                print default queue statistics
`

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		os.Exit(serve(ctx))
	case "kpi":
		os.Exit(runKPI(ctx, args, os.Stdout, os.Stderr))
	case "jobs":
		os.Exit(runJobs(ctx, args, os.Stdout, os.Stderr))
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}

func runKPI(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] != "report" {
		fmt.Fprint(stderr, usage)
		return 2
	}
	fs := flag.NewFlagSet("kpi report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := cli.ReportOptions{Stdout: stdout, Stderr: stderr}
	fs.StringVar(&opts.SnapshotPath, "snapshot", "", "path to a JSON records snapshot")
	fs.StringVar(&opts.UserID, "user", "", "tenant user id (defaults to the snapshot user_id)")
	fs.StringVar(&opts.Period, "period", "30", "reporting period in days: 7, 30, 90 or 365")
	fs.StringVar(&opts.AsOf, "as-of", "", "report end instant, RFC3339 (defaults to now)")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print the report as JSON")
	fs.BoolVar(&opts.CSVOutput, "csv", false, "print the report as CSV")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	return cli.ReportCommand(ctx, opts)
}

func runJobs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "jobs: load config: %v\n", err)
		return 1
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(stderr, "jobs: %v\n", err)
		return 1
	}
	defer jobsCLI.Close()

	switch args[0] {
	case "trigger":
		fs := flag.NewFlagSet("jobs trigger", flag.ContinueOnError)
		fs.SetOutput(stderr)
		period := fs.Int("period", cfg.DigestPeriodDays, "digest period in days")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, jobs.TaskKPIDigest, *period)
		if err != nil {
			fmt.Fprintf(stderr, "jobs trigger: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "jobs stats: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		scheduled, err := jobsCLI.ListScheduled(ctx, 10)
		if err == nil {
			for _, task := range scheduled {
				fmt.Fprintf(stdout, "scheduled %s id=%s at=%s\n", task.Type, task.ID, task.NextProcessAt.Format(time.RFC3339))
			}
		}
	default:
		fmt.Fprint(stderr, usage)
		return 2
	}
	return 0
}

func serve(ctx context.Context) int {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return 0
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)

	records, err := app.OpenRecords(ctx, cfg, logger)
	if err != nil {
		logger.Error("open record backend", slog.Any("error", err))
		return 1
	}
	defer records.Close()

	var sequencer kpi.Sequencer
	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, refresh ordering is process-local", slog.Any("error", err))
	} else {
		redisClient = client
		sequencer = kpi.NewRedisSequencer(client, "")
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	kpiMetrics := kpi.NewMetrics(metrics.Registerer())
	gateway := kpi.NewGateway(records.Store, kpi.GatewayConfig{
		SourceTimeout: cfg.SourceTimeout,
		RetryAttempts: cfg.SourceAttempts,
	}, logger, kpiMetrics)
	service := kpi.NewService(gateway, nil, kpiMetrics)
	refresher := kpi.NewRefresher(service, sequencer, logger, kpiMetrics)

	var jobHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer inspector.Close()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		KPIHandler: kpihttp.NewHandler(logger, service, refresher, cfg.AppRequestTimeout),
		JobHandler: jobHandler,
		Metrics:    metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.RecordBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("http server", slog.Any("error", err))
		return 1
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return 1
	}
	return 0
}
