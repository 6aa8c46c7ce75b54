package kpi

import (
	"sort"
	"strings"
)

// TopCustomerLimit caps the ranked customer list.
const TopCustomerLimit = 5

// CustomerCount is a ranked customer entry keyed by normalised email.
type CustomerCount struct {
	Email  string `json:"email"`
	Quotes int    `json:"quotes"`
}

// CustomerReport describes customer concentration across quotes.
type CustomerReport struct {
	UniqueCount       int             `json:"unique_count"`
	QuotesPerCustomer float64         `json:"quotes_per_customer"`
	TopCustomers      []CustomerCount `json:"top_customers"`
}

// NormalizeEmail trims and lower-cases an email; empty means "no customer".
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AnalyzeCustomers counts unique customers and ranks the most frequent ones.
// Ties keep first-seen order.
func AnalyzeCustomers(quotes []QuoteRecord) CustomerReport {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, q := range quotes {
		email := NormalizeEmail(q.CustomerEmail)
		if email == "" {
			continue
		}
		if _, seen := counts[email]; !seen {
			order = append(order, email)
		}
		counts[email]++
	}

	ranked := make([]CustomerCount, 0, len(order))
	for _, email := range order {
		ranked = append(ranked, CustomerCount{Email: email, Quotes: counts[email]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Quotes > ranked[j].Quotes
	})
	if len(ranked) > TopCustomerLimit {
		ranked = ranked[:TopCustomerLimit]
	}

	report := CustomerReport{
		UniqueCount:  len(order),
		TopCustomers: ranked,
	}
	if report.UniqueCount > 0 {
		report.QuotesPerCustomer = finite(round2(float64(len(quotes)) / float64(report.UniqueCount)))
	}
	return report
}
