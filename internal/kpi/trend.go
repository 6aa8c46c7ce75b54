package kpi

// TrendReport holds period-over-period growth percentages.
type TrendReport struct {
	QuoteGrowth    float64 `json:"quote_growth"`
	RevenueGrowth  float64 `json:"revenue_growth"`
	CustomerGrowth float64 `json:"customer_growth"`
}

// GrowthRate returns the percentage change from previous to current. A zero
// baseline yields 100 when current is positive and 0 otherwise. The result is
// always finite.
func GrowthRate(current, previous float64) float64 {
	if previous > 0 {
		return finite(round2((current - previous) / previous * 100))
	}
	if current > 0 {
		return 100
	}
	return 0
}

// PeriodTotals are the per-window figures growth is computed from.
type PeriodTotals struct {
	Quotes          int
	ApprovedRevenue float64
	Customers       int
}

// ComputeTrends compares current against previous window totals.
func ComputeTrends(current, previous PeriodTotals) TrendReport {
	return TrendReport{
		QuoteGrowth:    GrowthRate(float64(current.Quotes), float64(previous.Quotes)),
		RevenueGrowth:  GrowthRate(current.ApprovedRevenue, previous.ApprovedRevenue),
		CustomerGrowth: GrowthRate(float64(current.Customers), float64(previous.Customers)),
	}
}
