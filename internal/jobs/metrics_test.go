package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("kpi:digest").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("kpi:digest").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("kpi:digest", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("kpi:digest", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("kpi:digest")))
}

func TestDigestTenantCounter(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddDigestTenant("complete")
	m.AddDigestTenant("complete")
	m.AddDigestTenant("")

	require.Equal(t, 2.0, testutil.ToFloat64(m.tenants.WithLabelValues("complete")))

	var nilMetrics *Metrics
	nilMetrics.AddDigestTenant("partial")
	require.NoError(t, nilMetrics.Track("x").End(nil))
}
