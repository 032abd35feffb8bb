package finance

import (
	"testing"
)

func TestProfitMetrics(t *testing.T) {
	tests := []struct {
		name       string
		revenue    string
		totalCost  string
		wantProfit string
		wantMargin string
		wantROI    string
	}{
		{
			name:       "typical vehicle sale",
			revenue:    "100000",
			totalCost:  "50000",
			wantProfit: "50000",
			wantMargin: "50",
			wantROI:    "100",
		},
		{
			name:       "loss-making sale",
			revenue:    "80000",
			totalCost:  "100000",
			wantProfit: "-20000",
			wantMargin: "-25",
			wantROI:    "-20",
		},
		{
			name:       "zero revenue degrades margin to zero",
			revenue:    "0",
			totalCost:  "40000",
			wantProfit: "-40000",
			wantMargin: "0",
			wantROI:    "-100",
		},
		{
			name:       "zero cost degrades roi to zero",
			revenue:    "30000",
			totalCost:  "0",
			wantProfit: "30000",
			wantMargin: "100",
			wantROI:    "0",
		},
		{
			name:       "everything zero",
			revenue:    "0",
			totalCost:  "0",
			wantProfit: "0",
			wantMargin: "0",
			wantROI:    "0",
		},
		{
			name:       "metrics rounded to 2 places",
			revenue:    "30000",
			totalCost:  "20000",
			wantProfit: "10000",
			wantMargin: "33.33",
			wantROI:    "50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProfitMetrics(dec(tt.revenue), dec(tt.totalCost))
			if !got.Profit.Equal(dec(tt.wantProfit)) {
				t.Errorf("profit = %s, want %s", got.Profit, tt.wantProfit)
			}
			if !got.Margin.Equal(dec(tt.wantMargin)) {
				t.Errorf("margin = %s, want %s", got.Margin, tt.wantMargin)
			}
			if !got.ROI.Equal(dec(tt.wantROI)) {
				t.Errorf("roi = %s, want %s", got.ROI, tt.wantROI)
			}
		})
	}
}

// Metrics are a pure function of their inputs: feeding the same rows twice
// must yield the same aggregates.
func TestProfitMetricsIdempotent(t *testing.T) {
	revenue := dec("100000")
	cost := dec("40000").Add(dec("10000"))

	first := ProfitMetrics(revenue, cost)
	second := ProfitMetrics(revenue, cost)

	if !first.Profit.Equal(second.Profit) || !first.Margin.Equal(second.Margin) || !first.ROI.Equal(second.ROI) {
		t.Errorf("repeated computation diverged: first=%+v second=%+v", first, second)
	}
	if !first.Profit.Equal(dec("50000")) || !first.Margin.Equal(dec("50")) || !first.ROI.Equal(dec("100")) {
		t.Errorf("unexpected aggregates: %+v", first)
	}
}
