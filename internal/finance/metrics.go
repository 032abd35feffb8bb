package finance

import (
	"github.com/shopspring/decimal"
)

// Metrics holds the derived profitability aggregates for one invoice.
type Metrics struct {
	Profit decimal.Decimal
	Margin decimal.Decimal // profit as a percentage of revenue
	ROI    decimal.Decimal // profit as a percentage of cost
}

var hundred = decimal.NewFromInt(100)

// ProfitMetrics derives profit, margin and ROI from revenue and total cost.
// Zero revenue degrades to 0% margin and zero cost to 0% ROI rather than
// dividing by zero. Negative inputs are accepted as-is.
func ProfitMetrics(revenue, totalCost decimal.Decimal) Metrics {
	profit := Round2(revenue.Sub(totalCost))

	margin := decimal.Zero
	if revenue.IsPositive() {
		margin = Round2(profit.Div(revenue).Mul(hundred))
	}

	roi := decimal.Zero
	if totalCost.IsPositive() {
		roi = Round2(profit.Div(totalCost).Mul(hundred))
	}

	return Metrics{Profit: profit, Margin: margin, ROI: roi}
}
