package kpihttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-kpi/internal/kpi"
	"github.com/odyssey-erp/odyssey-kpi/internal/kpi/export"
	"github.com/odyssey-erp/odyssey-kpi/internal/platform/httpx"
)

const (
	defaultRequestTimeout = 10 * time.Second
	completenessHeader    = "X-KPI-Completeness"
)

// ReportService generates KPI reports.
type ReportService interface {
	Generate(ctx context.Context, userID uuid.UUID, period kpi.Period) (kpi.KPIReport, error)
}

// RefreshService regenerates reports with last-request-wins semantics.
type RefreshService interface {
	Refresh(ctx context.Context, userID uuid.UUID, period kpi.Period) (kpi.KPIReport, error)
}

// Handler serves KPI reports over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   ReportService
	refresher RefreshService
	validate  *validator.Validate
	timeout   time.Duration
	csvPool   sync.Pool
}

// NewHandler constructs the KPI HTTP handler. A non-positive timeout uses the default.
func NewHandler(logger *slog.Logger, service ReportService, refresher RefreshService, timeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	h := &Handler{
		logger:    logger,
		service:   service,
		refresher: refresher,
		validate:  validator.New(),
		timeout:   timeout,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

type reportFilter struct {
	UserID string `validate:"required,uuid"`
	Period string `validate:"omitempty,oneof=7 30 90 365"`
}

type filters struct {
	userID uuid.UUID
	period kpi.Period
}

type periodOption struct {
	Days  int    `json:"days"`
	Label string `json:"label"`
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.service.Generate(ctx, f.userID, f.period)
	if err != nil {
		h.handleServiceError(w, "generate report", err)
		return
	}
	w.Header().Set(completenessHeader, string(report.Diagnostics.Completeness))
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		h.handleServerError(w, "refresh", errors.New("refresher not configured"))
		return
	}
	f, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.refresher.Refresh(ctx, f.userID, f.period)
	if err != nil {
		h.handleServiceError(w, "refresh report", err)
		return
	}
	w.Header().Set(completenessHeader, string(report.Diagnostics.Completeness))
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.service.Generate(ctx, f.userID, f.period)
	if err != nil {
		h.handleServiceError(w, "generate report", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	if err := export.WriteReportCSV(buf, report); err != nil {
		h.handleServerError(w, "write kpi csv", err)
		return
	}

	filename := fmt.Sprintf("kpi-%s-%s.csv", f.userID, f.period)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set(completenessHeader, string(report.Diagnostics.Completeness))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handlePeriods(w http.ResponseWriter, _ *http.Request) {
	periods := kpi.Periods()
	out := make([]periodOption, 0, len(periods))
	for _, p := range periods {
		out = append(out, periodOption{Days: p.Days(), Label: p.String()})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"default": kpi.DefaultPeriod.Days(),
		"periods": out,
	})
}

func (h *Handler) parseFilters(r *http.Request) (filters, error) {
	form := reportFilter{
		UserID: strings.TrimSpace(chi.URLParam(r, "userID")),
		Period: strings.TrimSuffix(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("period"))), "d"),
	}
	if err := h.validate.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return filters{}, validationError{field: fieldName(fieldErrs[0].Field())}
		}
		return filters{}, err
	}
	period, err := kpi.ParsePeriod(form.Period)
	if err != nil {
		return filters{}, validationError{field: "period"}
	}
	userID, err := uuid.Parse(form.UserID)
	if err != nil || userID == uuid.Nil {
		return filters{}, validationError{field: "user_id"}
	}
	return filters{userID: userID, period: period}, nil
}

func fieldName(field string) string {
	if field == "UserID" {
		return "user_id"
	}
	return strings.ToLower(field)
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var vErr validationError
	if errors.As(err, &vErr) {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, vErr.Error()))
		return
	}
	h.handleServerError(w, "parse filters", err)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, kpi.ErrSuperseded):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrSuperseded, err.Error()))
	case errors.Is(err, kpi.ErrInvalidPeriod), errors.Is(err, kpi.ErrInvalidUser):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
	case errors.Is(err, context.Canceled):
		h.logError(op, err)
	case errors.Is(err, context.DeadlineExceeded):
		h.logError(op, err)
		httpx.RespondError(w, err)
	default:
		h.handleServerError(w, op, err)
	}
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	httpx.RespondError(w, err)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}
