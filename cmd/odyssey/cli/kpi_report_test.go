package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-kpi/internal/kpi"
)

const tenantSnapshot = `{
  "user_id": "6f1c2f9e-3b0a-4d8e-9a51-1f7b2a0c9d10",
  "quotes": [
    {"id": "0b5b7c1e-98a4-4e0c-a7a7-8b8a5f0c0001", "customer_email": "a@x", "status": "Aprovado",
     "created_at": "2026-03-30T10:00:00Z", "items": [{"quantity": "2", "unit_price": 100}]},
    {"id": "0b5b7c1e-98a4-4e0c-a7a7-8b8a5f0c0002", "customer_email": "b@x", "status": "pending",
     "created_at": "2026-03-29T10:00:00Z", "total": 1500}
  ],
  "products": [
    {"id": "0b5b7c1e-98a4-4e0c-a7a7-8b8a5f0c0101", "stock": 3, "min_stock": 5, "price": 9.5}
  ]
}`

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestReportCommandJSON(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	exitCode := ReportCommand(context.Background(), ReportOptions{
		SnapshotPath: writeSnapshot(t, tenantSnapshot),
		Period:       "7d",
		AsOf:         "2026-03-31T12:00:00Z",
		JSONOutput:   true,
		Stdout:       stdout,
		Stderr:       stderr,
	})
	require.Equal(t, ExitOK, exitCode, stderr.String())

	var report kpi.KPIReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	require.Equal(t, kpi.PeriodWeek, report.Period)
	require.Equal(t, 1700.0, report.Financial.Total)
	require.Equal(t, 200.0, report.Financial.ApprovedValue)
	require.Equal(t, 2, report.Quotes.Total)
	require.Equal(t, 1, report.Products.LowStock)
	require.Equal(t, kpi.CompletenessComplete, report.Diagnostics.Completeness)
}

func TestReportCommandHuman(t *testing.T) {
	stdout := new(bytes.Buffer)
	exitCode := ReportCommand(context.Background(), ReportOptions{
		SnapshotPath: writeSnapshot(t, tenantSnapshot),
		Period:       "7",
		AsOf:         "2026-03-31T12:00:00Z",
		Stdout:       stdout,
		Stderr:       new(bytes.Buffer),
	})
	require.Equal(t, ExitOK, exitCode)
	out := stdout.String()
	require.Contains(t, out, "last 7d (2026-03-24 to 2026-03-31)")
	require.Contains(t, out, "Completeness: complete")
	require.Contains(t, out, "total       1,700.00")
	require.Contains(t, out, "Conversion: 50.00%")
}

func TestReportCommandCSV(t *testing.T) {
	stdout := new(bytes.Buffer)
	exitCode := ReportCommand(context.Background(), ReportOptions{
		SnapshotPath: writeSnapshot(t, tenantSnapshot),
		Period:       "30",
		AsOf:         "2026-03-31T12:00:00Z",
		CSVOutput:    true,
		Stdout:       stdout,
		Stderr:       new(bytes.Buffer),
	})
	require.Equal(t, ExitOK, exitCode)
	require.Contains(t, stdout.String(), "Approved,200.00")
}

func TestReportCommandRejectsBadInput(t *testing.T) {
	path := writeSnapshot(t, tenantSnapshot)
	noUser := writeSnapshot(t, `{"quotes": [], "products": []}`)
	cases := map[string]ReportOptions{
		"missing snapshot": {Period: "30"},
		"unknown file":     {SnapshotPath: filepath.Join(t.TempDir(), "nope.json")},
		"bad period":       {SnapshotPath: path, Period: "14"},
		"bad as-of":        {SnapshotPath: path, AsOf: "yesterday"},
		"both formats":     {SnapshotPath: path, JSONOutput: true, CSVOutput: true},
		"bad user":         {SnapshotPath: path, UserID: "abc"},
		"no user":          {SnapshotPath: noUser},
		"invalid json":     {SnapshotPath: writeSnapshot(t, `{"quotes": [`)},
	}
	for name, opts := range cases {
		stderr := new(bytes.Buffer)
		opts.Stdout = new(bytes.Buffer)
		opts.Stderr = stderr
		require.Equal(t, ExitFailure, ReportCommand(context.Background(), opts), name)
		require.Contains(t, stderr.String(), "kpi report:", name)
	}
}

func TestReportCommandUserOverride(t *testing.T) {
	stdout := new(bytes.Buffer)
	exitCode := ReportCommand(context.Background(), ReportOptions{
		SnapshotPath: writeSnapshot(t, tenantSnapshot),
		UserID:       "11111111-1111-1111-1111-111111111111",
		AsOf:         "2026-03-31T12:00:00Z",
		JSONOutput:   true,
		Stdout:       stdout,
		Stderr:       new(bytes.Buffer),
	})
	require.Equal(t, ExitOK, exitCode)

	var report kpi.KPIReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	require.Zero(t, report.Quotes.Total)
	require.Zero(t, report.Products.Total)
}
