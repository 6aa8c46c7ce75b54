package kpi

import (
	"math"

	"github.com/shopspring/decimal"
)

// tally collects malformed-field counts during a single aggregation pass.
type tally struct {
	malformed int
}

func (t *tally) bad() {
	if t != nil {
		t.malformed++
	}
}

// amount returns v when it is a finite, non-negative number and 0 otherwise.
func amount(v float64, t *tally) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		t.bad()
		return 0
	}
	return v
}

// optionalAmount resolves a stored optional number; ok is false when the value
// is absent or unusable.
func optionalAmount(v *float64, t *tally) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		t.bad()
		return 0, false
	}
	return *v, true
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// bounded returns d when it is representable as a finite float64 and counts
// it as malformed otherwise.
func bounded(d decimal.Decimal, t *tally) decimal.Decimal {
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		t.bad()
		return decimal.Zero
	}
	return d
}

// toFloat exposes a money value rounded to cents; values beyond the float64
// range become 0.
func toFloat(d decimal.Decimal) float64 {
	return finite(d.Round(2).InexactFloat64())
}

// ratio returns numerator/denominator*100 rounded to two decimals, or 0 when
// the denominator is not positive or the result is not finite.
func ratio(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	return finite(round2(numerator / denominator * 100))
}

func divide(numerator decimal.Decimal, count int) float64 {
	if count <= 0 {
		return 0
	}
	return toFloat(numerator.Div(decimal.NewFromInt(int64(count))))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
