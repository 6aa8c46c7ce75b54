package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/odyssey-kpi/internal/kpi"
	"github.com/odyssey-erp/odyssey-kpi/internal/kpi/export"
)

// Exit codes reported by ReportCommand.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitPartial     = 10
	ExitUnavailable = 11
)

// ReportOptions defines the flags of the kpi report command.
type ReportOptions struct {
	SnapshotPath string
	UserID       string
	Period       string
	AsOf         string
	JSONOutput   bool
	CSVOutput    bool
	Stdout       io.Writer
	Stderr       io.Writer
}

// ReportCommand builds a KPI report from a JSON snapshot file and prints it.
// The exit code reflects the report completeness.
func ReportCommand(ctx context.Context, opts ReportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if strings.TrimSpace(opts.SnapshotPath) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "kpi report: --snapshot is required")
		return ExitFailure
	}
	if opts.JSONOutput && opts.CSVOutput {
		_, _ = fmt.Fprintln(opts.Stderr, "kpi report: --json and --csv are mutually exclusive")
		return ExitFailure
	}
	period, err := kpi.ParsePeriod(strings.TrimSpace(opts.Period))
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "kpi report: invalid period %q (expected 7, 30, 90 or 365)\n", opts.Period)
		return ExitFailure
	}
	asOf := time.Now().UTC()
	if raw := strings.TrimSpace(opts.AsOf); raw != "" {
		asOf, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "kpi report: invalid --as-of %q (expected RFC3339)\n", opts.AsOf)
			return ExitFailure
		}
	}

	snap, err := loadSnapshot(opts.SnapshotPath)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "kpi report: %v\n", err)
		return ExitFailure
	}
	userID := snap.UserID
	if raw := strings.TrimSpace(opts.UserID); raw != "" {
		userID, err = uuid.Parse(raw)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "kpi report: invalid --user %q\n", opts.UserID)
			return ExitFailure
		}
	}
	if userID == uuid.Nil {
		_, _ = fmt.Fprintln(opts.Stderr, "kpi report: snapshot has no user_id; pass --user")
		return ExitFailure
	}

	logger := slog.New(slog.NewTextHandler(opts.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	gateway := kpi.NewGateway(kpi.NewSnapshotStore(snap), kpi.GatewayConfig{}, logger, nil)
	service := kpi.NewService(gateway, nil, nil)
	service.WithClock(func() time.Time { return asOf })

	report, err := service.Generate(ctx, userID, period)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "kpi report: %v\n", err)
		return ExitFailure
	}

	switch {
	case opts.JSONOutput:
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "kpi report: encode json: %v\n", err)
			return ExitFailure
		}
	case opts.CSVOutput:
		if err := export.WriteReportCSV(opts.Stdout, report); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "kpi report: write csv: %v\n", err)
			return ExitFailure
		}
	default:
		renderReportHuman(opts.Stdout, userID, report)
	}

	switch report.Diagnostics.Completeness {
	case kpi.CompletenessUnavailable:
		return ExitUnavailable
	case kpi.CompletenessPartial:
		return ExitPartial
	}
	return ExitOK
}

func loadSnapshot(path string) (kpi.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return kpi.Snapshot{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return kpi.LoadSnapshot(f)
}

func renderReportHuman(out io.Writer, userID uuid.UUID, report kpi.KPIReport) {
	p := message.NewPrinter(language.English)
	_, _ = p.Fprintf(out, "KPI report for %s, last %s (%s to %s)\n",
		userID, report.Period,
		report.Window.CurrentStart.Format(time.DateOnly), report.Window.CurrentEnd.Format(time.DateOnly))
	_, _ = p.Fprintf(out, "Completeness: %s\n\n", report.Diagnostics.Completeness)

	_, _ = p.Fprintf(out, "Revenue\n")
	_, _ = p.Fprintf(out, "  total       %.2f\n", report.Financial.Total)
	_, _ = p.Fprintf(out, "  approved    %.2f\n", report.Financial.ApprovedValue)
	_, _ = p.Fprintf(out, "  pending     %.2f\n", report.Financial.PendingValue)
	_, _ = p.Fprintf(out, "  avg ticket  %.2f\n\n", report.Financial.AverageValue)

	_, _ = p.Fprintf(out, "Quotes: %d total, %d approved, %d pending, %d rejected, %d draft, %d unclassified\n",
		report.Quotes.Total, report.Quotes.Approved, report.Quotes.Pending,
		report.Quotes.Rejected, report.Quotes.Draft, report.Quotes.Unclassified)
	_, _ = p.Fprintf(out, "Conversion: %.2f%%  Financial success: %.2f%%\n",
		report.Rates.ConversionRate, report.Rates.FinancialSuccessRate)
	_, _ = p.Fprintf(out, "Products: %d total, %d low stock, %d out of stock, stock value %.2f\n",
		report.Products.Total, report.Products.LowStock, report.Products.OutOfStock, report.Products.TotalValue)
	_, _ = p.Fprintf(out, "Customers: %d unique, %.2f quotes each\n",
		report.Customers.UniqueCount, report.Customers.QuotesPerCustomer)
	_, _ = p.Fprintf(out, "Growth: revenue %.2f%%, quotes %.2f%%, customers %.2f%%\n",
		report.Trends.RevenueGrowth, report.Trends.QuoteGrowth, report.Trends.CustomerGrowth)

	for _, warning := range report.Diagnostics.Warnings {
		_, _ = p.Fprintf(out, "warning: %s unavailable: %s\n", warning.Source, warning.Reason)
	}
	if report.Diagnostics.MalformedFields > 0 {
		_, _ = p.Fprintf(out, "warning: %d malformed field(s) counted as zero\n", report.Diagnostics.MalformedFields)
	}
}
