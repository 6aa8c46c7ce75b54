package kpi

import (
	"github.com/shopspring/decimal"
)

// FinancialReport rolls quote values up by canonical status.
type FinancialReport struct {
	Total             float64 `json:"total"`
	ApprovedValue     float64 `json:"approved_value"`
	PendingValue      float64 `json:"pending_value"`
	RejectedValue     float64 `json:"rejected_value"`
	DraftValue        float64 `json:"draft_value"`
	UnclassifiedValue float64 `json:"unclassified_value"`
	AverageValue      float64 `json:"average_value"`
}

// QuotesReport counts quotes per canonical status. Quotes whose status is not
// recognised are counted in Unclassified so that
// Total == Approved + Pending + Rejected + Draft + Unclassified.
type QuotesReport struct {
	Total        int `json:"total"`
	Approved     int `json:"approved"`
	Pending      int `json:"pending"`
	Rejected     int `json:"rejected"`
	Draft        int `json:"draft"`
	Unclassified int `json:"unclassified"`
}

// Classified returns the number of quotes that mapped to a known status.
func (q QuotesReport) Classified() int {
	return q.Approved + q.Pending + q.Rejected + q.Draft
}

// QuoteValue computes the effective value of a quote: the sum of its line
// items when present, else the stored quote total, else 0.
func QuoteValue(q QuoteRecord) float64 {
	return toFloat(quoteValue(q, nil))
}

func quoteValue(q QuoteRecord, t *tally) decimal.Decimal {
	if len(q.Items) > 0 {
		sum := decimal.Zero
		for _, item := range q.Items {
			sum = sum.Add(lineValue(item, t))
		}
		return sum
	}
	if total, ok := optionalAmount(q.Total, t); ok {
		return money(total)
	}
	return decimal.Zero
}

func lineValue(item QuoteLineItem, t *tally) decimal.Decimal {
	if total, ok := optionalAmount(item.Total, t); ok {
		return money(total)
	}
	qty := amount(item.Quantity, t)
	price := amount(item.UnitPrice, t)
	return bounded(money(qty).Mul(money(price)), t)
}

// AggregateFinancial sums quote values into per-status buckets.
func AggregateFinancial(quotes []QuoteRecord, classifier *StatusClassifier) FinancialReport {
	return aggregateFinancial(quotes, classifier, nil)
}

func aggregateFinancial(quotes []QuoteRecord, classifier *StatusClassifier, t *tally) FinancialReport {
	var total, approved, pending, rejected, draft, unclassified decimal.Decimal
	for _, q := range quotes {
		value := quoteValue(q, t)
		total = total.Add(value)
		switch classifier.Classify(q.Status) {
		case StatusApproved:
			approved = approved.Add(value)
		case StatusPending:
			pending = pending.Add(value)
		case StatusRejected:
			rejected = rejected.Add(value)
		case StatusDraft:
			draft = draft.Add(value)
		default:
			unclassified = unclassified.Add(value)
		}
	}
	return FinancialReport{
		Total:             toFloat(total),
		ApprovedValue:     toFloat(approved),
		PendingValue:      toFloat(pending),
		RejectedValue:     toFloat(rejected),
		DraftValue:        toFloat(draft),
		UnclassifiedValue: toFloat(unclassified),
		AverageValue:      divide(total, len(quotes)),
	}
}

// ApprovedRevenue returns the summed value of approved quotes only.
func ApprovedRevenue(quotes []QuoteRecord, classifier *StatusClassifier) float64 {
	return AggregateFinancial(quotes, classifier).ApprovedValue
}

// CountQuotes tallies quotes per canonical status.
func CountQuotes(quotes []QuoteRecord, classifier *StatusClassifier) QuotesReport {
	report := QuotesReport{Total: len(quotes)}
	for _, q := range quotes {
		switch classifier.Classify(q.Status) {
		case StatusApproved:
			report.Approved++
		case StatusPending:
			report.Pending++
		case StatusRejected:
			report.Rejected++
		case StatusDraft:
			report.Draft++
		default:
			report.Unclassified++
		}
	}
	return report
}
