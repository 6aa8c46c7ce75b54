package kpi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMinStock applies when a product carries no minimum stock threshold.
const DefaultMinStock = 5

// QuoteLineItem is a single priced line of a quote.
type QuoteLineItem struct {
	Quantity  float64  `json:"quantity"`
	UnitPrice float64  `json:"unit_price"`
	Total     *float64 `json:"total,omitempty"`
}

// QuoteRecord is a read-only snapshot of a quote owned by a tenant user.
type QuoteRecord struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []QuoteLineItem `json:"items,omitempty"`
	Total         *float64        `json:"total,omitempty"`
}

// ProductRecord is a read-only snapshot of an inventory product.
type ProductRecord struct {
	ID       uuid.UUID `json:"id"`
	Stock    int       `json:"stock"`
	MinStock *int      `json:"min_stock,omitempty"`
	Price    float64   `json:"price"`

	// StockInvalid marks a stored stock that was missing or unusable. Stock
	// is 0 in that case and the field counts as malformed.
	StockInvalid bool `json:"-"`
}

// Period is the reporting window length in days.
type Period int

const (
	PeriodWeek    Period = 7
	PeriodMonth   Period = 30
	PeriodQuarter Period = 90
	PeriodYear    Period = 365
)

// DefaultPeriod is used when the caller does not select a window.
const DefaultPeriod = PeriodMonth

// ErrInvalidPeriod indicates a window outside the supported options.
var ErrInvalidPeriod = errors.New("kpi: unsupported period")

// Periods lists the selectable reporting windows in ascending order.
func Periods() []Period {
	return []Period{PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear}
}

// Valid reports whether p is one of the fixed options.
func (p Period) Valid() bool {
	switch p {
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return true
	}
	return false
}

// Duration converts the period to a time.Duration.
func (p Period) Duration() time.Duration {
	return time.Duration(p) * 24 * time.Hour
}

// Days returns the window length in days.
func (p Period) Days() int {
	return int(p)
}

func (p Period) String() string {
	return strconv.Itoa(int(p)) + "d"
}

// ParsePeriod accepts "30" or "30d" style values.
func ParsePeriod(raw string) (Period, error) {
	value := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "d")
	if value == "" {
		return DefaultPeriod, nil
	}
	days, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	p := Period(days)
	if !p.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	return p, nil
}

// Window holds the current and previous half-open reporting intervals.
type Window struct {
	CurrentStart  time.Time `json:"current_start"`
	CurrentEnd    time.Time `json:"current_end"`
	PreviousStart time.Time `json:"previous_start"`
	PreviousEnd   time.Time `json:"previous_end"`
}

// WindowFor computes [now-p, now) and the adjacent preceding window of equal length.
func WindowFor(now time.Time, p Period) Window {
	now = now.UTC()
	currentStart := now.Add(-p.Duration())
	return Window{
		CurrentStart:  currentStart,
		CurrentEnd:    now,
		PreviousStart: currentStart.Add(-p.Duration()),
		PreviousEnd:   currentStart,
	}
}
