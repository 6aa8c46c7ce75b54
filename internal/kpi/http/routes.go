package kpihttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the KPI endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/kpi/periods", h.handlePeriods)
	r.Route("/tenants/{userID}/kpi", func(tr chi.Router) {
		tr.Get("/", h.handleReport)
		tr.Post("/refresh", h.handleRefresh)
		tr.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/export.csv", h.handleCSV)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
