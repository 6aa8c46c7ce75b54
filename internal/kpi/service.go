package kpi

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidUser indicates a missing tenant user id.
var ErrInvalidUser = errors.New("kpi: user id required")

// Service generates KPI reports: a concurrent gather followed by a
// synchronous aggregation over the gathered snapshots.
type Service struct {
	gateway    *Gateway
	classifier *StatusClassifier
	metrics    *Metrics
	now        func() time.Time
}

// NewService wires the gateway with a status classifier. A nil classifier
// falls back to DefaultClassifier.
func NewService(gateway *Gateway, classifier *StatusClassifier, metrics *Metrics) *Service {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &Service{
		gateway:    gateway,
		classifier: classifier,
		metrics:    metrics,
		now:        time.Now,
	}
}

// WithClock overrides the service clock used for period boundaries.
func (s *Service) WithClock(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Generate gathers the tenant's records for period and builds the report.
// Source failures degrade the report instead of returning an error.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, period Period) (KPIReport, error) {
	if userID == uuid.Nil {
		return KPIReport{}, ErrInvalidUser
	}
	if !period.Valid() {
		return KPIReport{}, ErrInvalidPeriod
	}
	window := WindowFor(s.now(), period)
	gathered := s.gateway.Gather(ctx, userID, window)
	report := BuildReport(gathered, period, s.classifier)
	if ctx.Err() == nil {
		s.metrics.reportGenerated(report.Diagnostics.Completeness)
	}
	return report, nil
}

// BuildReport runs the aggregation phase over a settled gather. Failed
// sources contribute empty record lists.
func BuildReport(gathered GatherResult, period Period, classifier *StatusClassifier) KPIReport {
	t := &tally{}
	current := gathered.Current.Data
	previous := gathered.Previous.Data

	financial := aggregateFinancial(current, classifier, t)
	previousFinancial := aggregateFinancial(previous, classifier, t)
	customers := AnalyzeCustomers(current)
	previousCustomers := AnalyzeCustomers(previous)

	trends := ComputeTrends(
		PeriodTotals{Quotes: len(current), ApprovedRevenue: financial.ApprovedValue, Customers: customers.UniqueCount},
		PeriodTotals{Quotes: len(previous), ApprovedRevenue: previousFinancial.ApprovedValue, Customers: previousCustomers.UniqueCount},
	)

	return Assemble(AssembleInput{
		Period:      period,
		Window:      gathered.Window,
		Financial:   financial,
		Quotes:      CountQuotes(current, classifier),
		Products:    analyzeStock(gathered.Products.Data, t),
		Customers:   customers,
		Trends:      trends,
		Diagnostics: diagnose(gathered, t.malformed),
	})
}

func diagnose(gathered GatherResult, malformed int) Diagnostics {
	failures := gathered.Failures()
	diag := Diagnostics{
		Completeness:    CompletenessComplete,
		Warnings:        make([]SourceWarning, 0, len(failures)),
		MalformedFields: malformed,
	}
	for _, failure := range failures {
		diag.Warnings = append(diag.Warnings, SourceWarning{Source: failure.Source, Reason: failure.Err.Error()})
	}
	switch {
	case len(failures) == 3:
		diag.Completeness = CompletenessUnavailable
	case len(failures) > 0:
		diag.Completeness = CompletenessPartial
	}
	return diag
}
