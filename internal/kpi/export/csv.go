package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-kpi/internal/kpi"
)

// WriteReportCSV serialises a KPI report as sectioned Metric,Value blocks
// separated by blank lines.
func WriteReportCSV(w io.Writer, report kpi.KPIReport) error {
	writer := csv.NewWriter(w)
	for i, section := range reportSections(report) {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := writer.Write([]string{section.title, ""}); err != nil {
			return err
		}
		for _, record := range section.rows {
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return err
		}
	}
	return nil
}

type section struct {
	title string
	rows  [][]string
}

func reportSections(report kpi.KPIReport) []section {
	fin := report.Financial
	quotes := report.Quotes
	products := report.Products
	customers := report.Customers

	top := make([][]string, 0, len(customers.TopCustomers)+2)
	top = append(top,
		[]string{"Unique Customers", formatInt(customers.UniqueCount)},
		[]string{"Quotes per Customer", formatFloat(customers.QuotesPerCustomer)},
	)
	for i, c := range customers.TopCustomers {
		top = append(top, []string{"Top " + formatInt(i+1), safeCell(c.Email), formatInt(c.Quotes)})
	}

	warnings := [][]string{
		{"Completeness", string(report.Diagnostics.Completeness)},
		{"Malformed Fields", formatInt(report.Diagnostics.MalformedFields)},
	}
	for _, warn := range report.Diagnostics.Warnings {
		warnings = append(warnings, []string{"Warning " + string(warn.Source), safeCell(warn.Reason)})
	}

	return []section{
		{title: "Metric", rows: [][]string{
			{"Period", report.Period.String()},
			{"Window Start", report.Window.CurrentStart.Format(time.RFC3339)},
			{"Window End", report.Window.CurrentEnd.Format(time.RFC3339)},
		}},
		{title: "Financial", rows: [][]string{
			{"Total", formatFloat(fin.Total)},
			{"Approved", formatFloat(fin.ApprovedValue)},
			{"Pending", formatFloat(fin.PendingValue)},
			{"Rejected", formatFloat(fin.RejectedValue)},
			{"Draft", formatFloat(fin.DraftValue)},
			{"Unclassified", formatFloat(fin.UnclassifiedValue)},
			{"Average", formatFloat(fin.AverageValue)},
		}},
		{title: "Quotes", rows: [][]string{
			{"Total", formatInt(quotes.Total)},
			{"Approved", formatInt(quotes.Approved)},
			{"Pending", formatInt(quotes.Pending)},
			{"Rejected", formatInt(quotes.Rejected)},
			{"Draft", formatInt(quotes.Draft)},
			{"Unclassified", formatInt(quotes.Unclassified)},
		}},
		{title: "Products", rows: [][]string{
			{"Total", formatInt(products.Total)},
			{"Healthy", formatInt(products.Healthy)},
			{"Low Stock", formatInt(products.LowStock)},
			{"Out of Stock", formatInt(products.OutOfStock)},
			{"Inventory Value", formatFloat(products.TotalValue)},
			{"Average Price", formatFloat(products.AveragePrice)},
		}},
		{title: "Customers", rows: top},
		{title: "Trends", rows: [][]string{
			{"Quote Growth %", formatFloat(report.Trends.QuoteGrowth)},
			{"Revenue Growth %", formatFloat(report.Trends.RevenueGrowth)},
			{"Customer Growth %", formatFloat(report.Trends.CustomerGrowth)},
			{"Conversion Rate %", formatFloat(report.Rates.ConversionRate)},
			{"Financial Success Rate %", formatFloat(report.Rates.FinancialSuccessRate)},
		}},
		{title: "Diagnostics", rows: warnings},
	}
}

// safeCell quotes free text that a spreadsheet would otherwise evaluate as a
// formula.
func safeCell(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}
