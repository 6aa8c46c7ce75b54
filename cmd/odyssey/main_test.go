package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-kpi/internal/app"
	_ "github.com/odyssey-erp/odyssey-kpi/testing"
)

func TestServeSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode())
	require.Equal(t, 0, serve(context.Background()))
}

func TestRunKPIRequiresReportSubcommand(t *testing.T) {
	stderr := new(bytes.Buffer)
	require.Equal(t, 2, runKPI(context.Background(), nil, new(bytes.Buffer), stderr))
	require.Contains(t, stderr.String(), "usage: odyssey")

	stderr.Reset()
	require.Equal(t, 2, runKPI(context.Background(), []string{"report", "--bogus"}, new(bytes.Buffer), stderr))
}

func TestRunKPIReportNeedsSnapshot(t *testing.T) {
	stderr := new(bytes.Buffer)
	code := runKPI(context.Background(), []string{"report", "--period", "7"}, new(bytes.Buffer), stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "--snapshot is required")
}

func TestRunJobsWithoutSubcommand(t *testing.T) {
	stderr := new(bytes.Buffer)
	require.Equal(t, 2, runJobs(context.Background(), nil, new(bytes.Buffer), stderr))
}
