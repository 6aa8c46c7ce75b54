package kpi

import "github.com/shopspring/decimal"

// StockHealth classifies a single product's inventory level.
type StockHealth string

const (
	StockHealthy    StockHealth = "HEALTHY"
	StockLow        StockHealth = "LOW"
	StockOutOfStock StockHealth = "OUT_OF_STOCK"
)

// StockReport summarises inventory health and valuation.
type StockReport struct {
	Total        int     `json:"total"`
	Healthy      int     `json:"healthy"`
	LowStock     int     `json:"low_stock"`
	OutOfStock   int     `json:"out_of_stock"`
	TotalValue   float64 `json:"total_value"`
	AveragePrice float64 `json:"average_price"`
}

// ClassifyStock applies the out-of-stock / low-stock thresholds to p.
func ClassifyStock(p ProductRecord) StockHealth {
	stock := effectiveStock(p)
	if stock <= 0 {
		return StockOutOfStock
	}
	if stock <= minStock(p) {
		return StockLow
	}
	return StockHealthy
}

func effectiveStock(p ProductRecord) int {
	if p.Stock < 0 {
		return 0
	}
	return p.Stock
}

func minStock(p ProductRecord) int {
	if p.MinStock == nil {
		return DefaultMinStock
	}
	return *p.MinStock
}

// AnalyzeStock classifies every product and values the inventory.
func AnalyzeStock(products []ProductRecord) StockReport {
	return analyzeStock(products, nil)
}

func analyzeStock(products []ProductRecord, t *tally) StockReport {
	report := StockReport{Total: len(products)}
	value := decimal.Zero
	prices := decimal.Zero
	for _, p := range products {
		if p.StockInvalid {
			t.bad()
		}
		switch ClassifyStock(p) {
		case StockOutOfStock:
			report.OutOfStock++
		case StockLow:
			report.LowStock++
		default:
			report.Healthy++
		}
		price := money(amount(p.Price, t))
		prices = prices.Add(price)
		value = value.Add(bounded(decimal.NewFromInt(int64(effectiveStock(p))).Mul(price), t))
	}
	report.TotalValue = toFloat(value)
	report.AveragePrice = divide(prices, len(products))
	return report
}
