package kpi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RecordStore is the read-only record source the gateway queries.
type RecordStore interface {
	// Quotes returns quotes owned by userID created in the half-open range [from, to).
	Quotes(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]QuoteRecord, error)
	Products(ctx context.Context, userID uuid.UUID) ([]ProductRecord, error)
}

// Source names one of the three independently gathered record lists.
type Source string

const (
	SourceCurrentQuotes  Source = "current_quotes"
	SourcePreviousQuotes Source = "previous_quotes"
	SourceProducts       Source = "products"
)

// ErrSourceUnavailable marks a gather source that could not be read.
var ErrSourceUnavailable = errors.New("kpi: source unavailable")

// SourceError describes the failure of a single gather source.
type SourceError struct {
	Source Source
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("kpi: source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrSourceUnavailable.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// Result is the settled outcome of one source: data or an error, never both.
type Result[T any] struct {
	Data T
	Err  error
}

// OK reports whether the source succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

// GatherResult holds the three settled sources of one gather.
type GatherResult struct {
	Window   Window
	Current  Result[[]QuoteRecord]
	Previous Result[[]QuoteRecord]
	Products Result[[]ProductRecord]
}

// Failures lists the failed sources in a fixed order.
func (g GatherResult) Failures() []*SourceError {
	var out []*SourceError
	for _, err := range []error{g.Current.Err, g.Previous.Err, g.Products.Err} {
		var srcErr *SourceError
		if errors.As(err, &srcErr) {
			out = append(out, srcErr)
		}
	}
	return out
}

// GatewayConfig bounds and retries the per-source queries.
type GatewayConfig struct {
	SourceTimeout  time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

const (
	defaultSourceTimeout  = 5 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 100 * time.Millisecond
	defaultRetryMaxDelay  = time.Second
)

func (c GatewayConfig) withDefaults() GatewayConfig {
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = defaultSourceTimeout
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = defaultRetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = defaultRetryMaxDelay
	}
	return c
}

// Gateway fans out the three record queries and settles each independently.
type Gateway struct {
	store   RecordStore
	cfg     GatewayConfig
	logger  *slog.Logger
	metrics *Metrics
}

// NewGateway wires a record store with timeout and retry policy.
func NewGateway(store RecordStore, cfg GatewayConfig, logger *slog.Logger, metrics *Metrics) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{store: store, cfg: cfg.withDefaults(), logger: logger, metrics: metrics}
}

// Gather issues the current quotes, previous quotes and products queries
// concurrently and returns once all three have settled.
func (g *Gateway) Gather(ctx context.Context, userID uuid.UUID, window Window) GatherResult {
	start := time.Now()
	result := GatherResult{Window: window}

	var group errgroup.Group
	group.Go(func() error {
		result.Current = fetch(ctx, g, SourceCurrentQuotes, func(ctx context.Context) ([]QuoteRecord, error) {
			return g.store.Quotes(ctx, userID, window.CurrentStart, window.CurrentEnd)
		})
		return nil
	})
	group.Go(func() error {
		result.Previous = fetch(ctx, g, SourcePreviousQuotes, func(ctx context.Context) ([]QuoteRecord, error) {
			return g.store.Quotes(ctx, userID, window.PreviousStart, window.PreviousEnd)
		})
		return nil
	})
	group.Go(func() error {
		result.Products = fetch(ctx, g, SourceProducts, func(ctx context.Context) ([]ProductRecord, error) {
			return g.store.Products(ctx, userID)
		})
		return nil
	})
	_ = group.Wait()

	g.metrics.observeGather(time.Since(start))
	if ctx.Err() != nil {
		// Abandoned by the caller; these are not source failures.
		return result
	}
	for _, failure := range result.Failures() {
		g.metrics.sourceFailed(failure.Source)
		g.logger.Warn("kpi source unavailable",
			slog.String("source", string(failure.Source)),
			slog.String("user_id", userID.String()),
			slog.Any("error", failure.Err),
		)
	}
	return result
}

func fetch[T any](ctx context.Context, g *Gateway, source Source, query func(context.Context) (T, error)) Result[T] {
	if g.store == nil {
		return Result[T]{Err: &SourceError{Source: source, Err: errors.New("record store not configured")}}
	}
	var data T
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.SourceTimeout)
		defer cancel()
		out, err := query(attemptCtx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		data = out
		return nil
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.cfg.RetryBaseDelay
	policy.MaxInterval = g.cfg.RetryMaxDelay
	policy.MaxElapsedTime = 0
	retries := backoff.WithMaxRetries(policy, uint64(g.cfg.RetryAttempts-1))
	if err := backoff.Retry(operation, backoff.WithContext(retries, ctx)); err != nil {
		var zero T
		return Result[T]{Data: zero, Err: &SourceError{Source: source, Err: err}}
	}
	return Result[T]{Data: data}
}
