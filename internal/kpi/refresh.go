package kpi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrSuperseded is returned when a newer refresh for the same tenant was
// issued while this one was running.
var ErrSuperseded = errors.New("kpi: refresh superseded by a newer request")

type inflight struct {
	id     int64
	cancel context.CancelFunc
}

// Refresher applies last-request-wins to report generation per tenant.
type Refresher struct {
	service *Service
	seq     Sequencer
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	running map[string]inflight
}

// NewRefresher wraps service with a sequencer. A nil sequencer keeps ids in memory.
func NewRefresher(service *Service, seq Sequencer, logger *slog.Logger, metrics *Metrics) *Refresher {
	if seq == nil {
		seq = NewMemorySequencer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		service: service,
		seq:     seq,
		logger:  logger,
		metrics: metrics,
		running: make(map[string]inflight),
	}
}

// Refresh generates a report for userID and returns ErrSuperseded when a later
// refresh for the same user was issued before this one finished. Starting a
// refresh cancels the gather of any older refresh running in this process.
func (r *Refresher) Refresh(ctx context.Context, userID uuid.UUID, period Period) (KPIReport, error) {
	if userID == uuid.Nil {
		return KPIReport{}, ErrInvalidUser
	}
	if !period.Valid() {
		return KPIReport{}, ErrInvalidPeriod
	}
	scope := userID.String()
	id, err := r.seq.Next(ctx, scope)
	if err != nil {
		return KPIReport{}, fmt.Errorf("kpi: claim refresh id: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.track(scope, id, cancel)
	defer r.release(scope, id)

	report, err := r.service.Generate(runCtx, userID, period)
	if err != nil {
		return KPIReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return KPIReport{}, err
	}
	latest, err := r.seq.Current(ctx, scope)
	if err != nil {
		return KPIReport{}, fmt.Errorf("kpi: read refresh id: %w", err)
	}
	if latest != id {
		r.metrics.refreshSuperseded()
		r.logger.Info("kpi refresh superseded",
			slog.String("user_id", scope),
			slog.Int64("request_id", id),
			slog.Int64("latest_id", latest),
		)
		return KPIReport{}, ErrSuperseded
	}
	return report, nil
}

func (r *Refresher) track(scope string, id int64, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.running[scope]
	if ok && prev.id > id {
		cancel()
		return
	}
	if ok {
		prev.cancel()
	}
	r.running[scope] = inflight{id: id, cancel: cancel}
}

func (r *Refresher) release(scope string, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.running[scope]; ok && cur.id == id {
		delete(r.running, scope)
	}
}
