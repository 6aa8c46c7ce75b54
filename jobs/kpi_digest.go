package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-kpi/internal/jobs"
	"github.com/odyssey-erp/odyssey-kpi/internal/kpi"
	kpidb "github.com/odyssey-erp/odyssey-kpi/internal/kpi/db"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportGenerator produces a KPI report for one tenant.
type ReportGenerator interface {
	Generate(ctx context.Context, userID uuid.UUID, period kpi.Period) (kpi.KPIReport, error)
}

// TenantLister discovers the tenants the digest should cover.
type TenantLister interface {
	Tenants(ctx context.Context) ([]uuid.UUID, error)
}

// QuoteOwnerTenants lists every user that owns at least one quote.
type QuoteOwnerTenants struct {
	Queries *kpidb.Queries
}

func (t QuoteOwnerTenants) Tenants(ctx context.Context) ([]uuid.UUID, error) {
	if t.Queries == nil {
		return nil, errors.New("kpi digest: queries not configured")
	}
	owners, err := t.Queries.QuoteOwners(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(owners))
	for _, owner := range owners {
		if owner.Valid {
			out = append(out, uuid.UUID(owner.Bytes))
		}
	}
	return out, nil
}

// StaticTenants serves a configured tenant list, for backends without a
// cheap owner scan.
type StaticTenants []uuid.UUID

func (t StaticTenants) Tenants(context.Context) ([]uuid.UUID, error) {
	return append([]uuid.UUID(nil), t...), nil
}

// ErrDigestUnavailable marks a digest in which at least one tenant report had
// no usable source data; asynq retries the task.
var ErrDigestUnavailable = errors.New("kpi digest: tenant reports unavailable")

// KPIDigestJob regenerates every tenant's KPI report on a schedule and logs a
// one-line summary per tenant.
type KPIDigestJob struct {
	Reports ReportGenerator
	Tenants TenantLister
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	// TenantTimeout bounds a single tenant's report generation.
	TenantTimeout time.Duration
	clock         func() time.Time
}

// NewKPIDigestJob wires dependencies for the digest handler.
func NewKPIDigestJob(reports ReportGenerator, tenants TenantLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *KPIDigestJob {
	return &KPIDigestJob{
		Reports:       reports,
		Tenants:       tenants,
		Logger:        logger,
		Metrics:       metrics,
		TenantTimeout: 30 * time.Second,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskKPIDigest tasks.
func (j *KPIDigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil || j.Tenants == nil {
		return errors.New("kpi digest: handler not configured")
	}
	var payload KPIDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("kpi digest: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.PeriodDays == 0 {
		payload.PeriodDays = int(kpi.DefaultPeriod)
	}
	period := kpi.Period(payload.PeriodDays)
	if !period.Valid() {
		return fmt.Errorf("kpi digest: unsupported period %d: %w", payload.PeriodDays, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskKPIDigest)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("period_days", period.Days()))
	logger.Info("starting kpi digest")
	start := j.now()

	tenants, err := j.Tenants.Tenants(ctx)
	if err != nil {
		resultErr = fmt.Errorf("kpi digest: list tenants: %w", err)
		logger.Error("list digest tenants", slog.Any("error", err))
		return resultErr
	}
	if len(tenants) == 0 {
		logger.Info("no tenants discovered for digest")
		return resultErr
	}

	unavailable := 0
	for _, tenant := range tenants {
		report, err := j.digestTenant(ctx, tenant, period)
		if err != nil {
			resultErr = err
			logger.Error("digest tenant", slog.String("user_id", tenant.String()), slog.Any("error", err))
			return resultErr
		}
		j.metrics().AddDigestTenant(string(report.Diagnostics.Completeness))
		if report.Diagnostics.Completeness == kpi.CompletenessUnavailable {
			unavailable++
		}
		logger.Info("kpi digest tenant",
			slog.String("user_id", tenant.String()),
			slog.String("completeness", string(report.Diagnostics.Completeness)),
			slog.Int("quotes", report.Quotes.Total),
			slog.Float64("approved_value", report.Financial.ApprovedValue),
			slog.Float64("conversion_rate", report.Rates.ConversionRate),
		)
	}

	logger.Info("completed kpi digest",
		slog.Int("tenants", len(tenants)),
		slog.Int("unavailable", unavailable),
		slog.Duration("duration", j.now().Sub(start)),
	)
	if unavailable > 0 {
		resultErr = fmt.Errorf("%w: %d of %d", ErrDigestUnavailable, unavailable, len(tenants))
	}
	return resultErr
}

func (j *KPIDigestJob) digestTenant(ctx context.Context, tenant uuid.UUID, period kpi.Period) (kpi.KPIReport, error) {
	timeout := j.TenantTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tenantCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return j.Reports.Generate(tenantCtx, tenant, period)
}

func (j *KPIDigestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskKPIDigest))
	}
	return slog.Default().With(slog.String("job", TaskKPIDigest))
}

func (j *KPIDigestJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *KPIDigestJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
