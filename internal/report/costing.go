package report

import (
	"github.com/shopspring/decimal"
	"github.com/toko-nastar/api/internal/model"
)

// Costing is the production-cost calculator output for one size.
// Margin and ROI are percentages rounded to one decimal place, the
// precision the costing page displays.
type Costing struct {
	Size         string          `json:"size"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Profit       decimal.Decimal `json:"profit"`
	MarginPct    decimal.Decimal `json:"margin_pct"` // profit / price
	ROIPct       decimal.Decimal `json:"roi_pct"`    // profit / cost
}

// Cost computes profitability for a size from its production spec,
// optionally overriding the selling price (pass 0 to use the spec's).
// Zero cost or price yields zero percentages rather than a division
// error.
func Cost(spec model.ProductionSpec, priceOverride float64) Costing {
	cost := decimal.NewFromFloat(spec.CostPerUnit)
	price := decimal.NewFromFloat(spec.PricePerUnit)
	if priceOverride > 0 {
		price = decimal.NewFromFloat(priceOverride)
	}

	profit := price.Sub(cost)
	c := Costing{
		Size:         spec.Size,
		CostPerUnit:  cost,
		PricePerUnit: price,
		Profit:       profit,
		MarginPct:    decimal.Zero,
		ROIPct:       decimal.Zero,
	}

	hundred := decimal.NewFromInt(100)
	if price.IsPositive() {
		c.MarginPct = profit.Div(price).Mul(hundred).Round(1)
	}
	if cost.IsPositive() {
		c.ROIPct = profit.Div(cost).Mul(hundred).Round(1)
	}
	return c
}
