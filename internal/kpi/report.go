package kpi

// Completeness tells the presentation layer how much source data backed a report.
type Completeness string

const (
	CompletenessComplete    Completeness = "complete"
	CompletenessPartial     Completeness = "partial"
	CompletenessUnavailable Completeness = "unavailable"
)

// SourceWarning is a soft failure of one gather source.
type SourceWarning struct {
	Source Source `json:"source"`
	Reason string `json:"reason"`
}

// Diagnostics records everything that degraded a report without failing it.
type Diagnostics struct {
	Completeness    Completeness    `json:"completeness"`
	Warnings        []SourceWarning `json:"warnings"`
	MalformedFields int             `json:"malformed_fields"`
}

// Rates are convenience ratios derived from the sub-reports.
type Rates struct {
	ConversionRate       float64 `json:"conversion_rate"`
	FinancialSuccessRate float64 `json:"financial_success_rate"`
}

// KPIReport is the immutable business-metrics report handed to callers.
type KPIReport struct {
	Period      Period          `json:"period_days"`
	Window      Window          `json:"window"`
	Financial   FinancialReport `json:"financial"`
	Quotes      QuotesReport    `json:"quotes"`
	Products    StockReport     `json:"products"`
	Customers   CustomerReport  `json:"customers"`
	Trends      TrendReport     `json:"trends"`
	Rates       Rates           `json:"rates"`
	Diagnostics Diagnostics     `json:"diagnostics"`
}

// AssembleInput groups the computed sub-reports.
type AssembleInput struct {
	Period      Period
	Window      Window
	Financial   FinancialReport
	Quotes      QuotesReport
	Products    StockReport
	Customers   CustomerReport
	Trends      TrendReport
	Diagnostics Diagnostics
}

// Assemble composes sub-reports into a KPIReport and derives the rates.
func Assemble(in AssembleInput) KPIReport {
	diag := in.Diagnostics
	if diag.Warnings == nil {
		diag.Warnings = []SourceWarning{}
	}
	if diag.Completeness == "" {
		diag.Completeness = CompletenessComplete
	}
	customers := in.Customers
	if customers.TopCustomers == nil {
		customers.TopCustomers = []CustomerCount{}
	}
	return KPIReport{
		Period:    in.Period,
		Window:    in.Window,
		Financial: in.Financial,
		Quotes:    in.Quotes,
		Products:  in.Products,
		Customers: customers,
		Trends:    in.Trends,
		Rates: Rates{
			ConversionRate:       ratio(float64(in.Quotes.Approved), float64(in.Quotes.Classified())),
			FinancialSuccessRate: ratio(in.Financial.ApprovedValue, in.Financial.Total),
		},
		Diagnostics: diag,
	}
}
