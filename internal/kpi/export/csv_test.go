package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-kpi/internal/kpi"
)

func TestWriteReportCSV(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	report := kpi.Assemble(kpi.AssembleInput{
		Period:    kpi.PeriodMonth,
		Window:    kpi.WindowFor(now, kpi.PeriodMonth),
		Financial: kpi.FinancialReport{Total: 650, ApprovedValue: 150, PendingValue: 500},
		Quotes:    kpi.QuotesReport{Total: 3, Approved: 1, Pending: 1, Rejected: 1},
		Customers: kpi.CustomerReport{
			UniqueCount:       2,
			QuotesPerCustomer: 1.5,
			TopCustomers:      []kpi.CustomerCount{{Email: "a@x.com", Quotes: 2}, {Email: "b@x.com", Quotes: 1}},
		},
		Diagnostics: kpi.Diagnostics{
			Completeness: kpi.CompletenessPartial,
			Warnings:     []kpi.SourceWarning{{Source: kpi.SourceProducts, Reason: "timeout"}},
		},
	})

	buf := &bytes.Buffer{}
	require.NoError(t, WriteReportCSV(buf, report))

	reader := csv.NewReader(bytes.NewReader(buf.Bytes()))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	values := make(map[string]string)
	var top [][]string
	for _, record := range records {
		if strings.HasPrefix(record[0], "Top ") {
			top = append(top, record)
			continue
		}
		require.Len(t, record, 2)
		values[record[0]] = record[1]
	}
	require.Equal(t, "30d", values["Period"])
	require.Equal(t, "1.50", values["Quotes per Customer"])
	require.Equal(t, [][]string{{"Top 1", "a@x.com", "2"}, {"Top 2", "b@x.com", "1"}}, top)
	require.Equal(t, "partial", values["Completeness"])
	require.Equal(t, "timeout", values["Warning products"])
	require.Equal(t, "33.33", values["Conversion Rate %"])
	require.True(t, strings.Contains(buf.String(), "\n\nFinancial,\nTotal,650.00\nApproved,150.00\n"))
}

func TestWriteReportCSVNeutralisesFormulaEmails(t *testing.T) {
	report := kpi.Assemble(kpi.AssembleInput{
		Period: kpi.PeriodWeek,
		Customers: kpi.CustomerReport{
			UniqueCount: 3,
			TopCustomers: []kpi.CustomerCount{
				{Email: "=HYPERLINK(\"http://evil\")@x.com", Quotes: 3},
				{Email: "@sum(a1)@x.com", Quotes: 2},
				{Email: "-2+3@x.com", Quotes: 1},
			},
		},
	})

	buf := &bytes.Buffer{}
	require.NoError(t, WriteReportCSV(buf, report))

	reader := csv.NewReader(bytes.NewReader(buf.Bytes()))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	var emails []string
	for _, record := range records {
		if strings.HasPrefix(record[0], "Top ") {
			require.Len(t, record, 3)
			emails = append(emails, record[1])
		}
	}
	require.Equal(t, []string{"'=HYPERLINK(\"http://evil\")@x.com", "'@sum(a1)@x.com", "'-2+3@x.com"}, emails)
}

func TestSafeCell(t *testing.T) {
	require.Equal(t, "a@x.com", safeCell("a@x.com"))
	require.Equal(t, "", safeCell(""))
	require.Equal(t, "'+1@x.com", safeCell("+1@x.com"))
	require.Equal(t, "'\tx", safeCell("\tx"))
}
