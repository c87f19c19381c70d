package analytics_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-client/internal/analytics"
	"github.com/ndewijer/portfolio-client/internal/model"
	"github.com/ndewijer/portfolio-client/internal/testutil"
)

// TestCalculateHolding tests per-holding metrics.
//
// WHY: These figures feed every table and the portfolio totals, so the formulas
// and the zero-cost guard must be exact.
func TestCalculateHolding(t *testing.T) {
	t.Run("computes value, cost, gain and return", func(t *testing.T) {
		h := testutil.CreateHolding("AAPL", 10, 100, 150)

		m := analytics.CalculateHolding(h)

		assert.Equal(t, 1500.0, m.MarketValue)
		assert.Equal(t, 1000.0, m.Cost)
		assert.Equal(t, 500.0, m.GainLoss)
		require.NotNil(t, m.ReturnPct)
		assert.Equal(t, 50.0, *m.ReturnPct)
	})

	t.Run("return is undefined when cost is zero", func(t *testing.T) {
		h := testutil.CreateHolding("FREE", 10, 0, 25)

		m := analytics.CalculateHolding(h)

		assert.Nil(t, m.ReturnPct)
		assert.Equal(t, 250.0, m.GainLoss)
	})

	t.Run("rounds fractional shares to cents", func(t *testing.T) {
		h := testutil.CreateHolding("FRAC", 0.333, 10.01, 12.345)

		m := analytics.CalculateHolding(h)

		assert.Equal(t, 4.11, m.MarketValue)
		assert.Equal(t, 3.33, m.Cost)
		require.NotNil(t, m.ReturnPct)
		assert.Equal(t, 23.33, *m.ReturnPct)
	})
}

// TestCalculatePortfolio tests portfolio-level aggregation.
//
// WHY: Best and worst performer selection has several edge cases (undefined
// returns, ties, empty input) that must never produce NaN or an error.
func TestCalculatePortfolio(t *testing.T) {
	t.Run("empty holdings yield zero metrics", func(t *testing.T) {
		m := analytics.CalculatePortfolio(nil)

		assert.Equal(t, model.PortfolioMetrics{}, m)
	})

	t.Run("aggregates totals and picks performers", func(t *testing.T) {
		holdings := []model.Holding{
			testutil.CreateHolding("AAPL", 10, 100, 150), // +50%
			testutil.CreateHolding("INTC", 20, 50, 40),   // -20%
			testutil.CreateHolding("MSFT", 5, 200, 220),  // +10%
		}

		m := analytics.CalculatePortfolio(holdings)

		assert.Equal(t, 3400.0, m.TotalValue)
		assert.Equal(t, 3000.0, m.TotalCost)
		assert.Equal(t, 400.0, m.TotalGainLoss)
		assert.Equal(t, 13.33, m.GainLossPercentage)
		assert.Equal(t, 3, m.TotalHoldings)
		require.NotNil(t, m.BestPerformer)
		assert.Equal(t, model.Performer{Ticker: "AAPL", ReturnPct: 50}, *m.BestPerformer)
		require.NotNil(t, m.WorstPerformer)
		assert.Equal(t, model.Performer{Ticker: "INTC", ReturnPct: -20}, *m.WorstPerformer)
	})

	t.Run("ties keep the first holding", func(t *testing.T) {
		holdings := []model.Holding{
			testutil.CreateHolding("AAA", 1, 100, 110),
			testutil.CreateHolding("BBB", 2, 50, 55),
		}

		m := analytics.CalculatePortfolio(holdings)

		assert.Equal(t, "AAA", m.BestPerformer.Ticker)
		assert.Equal(t, "AAA", m.WorstPerformer.Ticker)
	})

	t.Run("zero-cost holdings are excluded from performers", func(t *testing.T) {
		holdings := []model.Holding{
			testutil.CreateHolding("GIFT", 10, 0, 500),
			testutil.CreateHolding("LOSS", 1, 100, 90),
		}

		m := analytics.CalculatePortfolio(holdings)

		require.NotNil(t, m.BestPerformer)
		assert.Equal(t, "LOSS", m.BestPerformer.Ticker)
		assert.Equal(t, "LOSS", m.WorstPerformer.Ticker)
	})

	t.Run("a lone zero-cost holding has no performers and no percentage", func(t *testing.T) {
		m := analytics.CalculatePortfolio([]model.Holding{testutil.CreateHolding("GIFT", 10, 0, 5)})

		assert.Nil(t, m.BestPerformer)
		assert.Nil(t, m.WorstPerformer)
		assert.Equal(t, 0.0, m.GainLossPercentage)
		assert.False(t, math.IsNaN(m.GainLossPercentage))
		assert.Equal(t, 50.0, m.TotalGainLoss)
	})
}

// TestTotalReturn tests the rounded total return percentage.
func TestTotalReturn(t *testing.T) {
	tests := []struct {
		name     string
		holdings []model.Holding
		want     float64
	}{
		{"empty", nil, 0},
		{"zero cost", []model.Holding{testutil.CreateHolding("X", 1, 0, 10)}, 0},
		{"gain", []model.Holding{testutil.CreateHolding("X", 3, 30, 40)}, 33.33},
		{"loss", []model.Holding{testutil.CreateHolding("X", 3, 30, 20)}, -33.33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, analytics.TotalReturn(tt.holdings))
		})
	}
}

// TestAverageHoldingTime tests the average holding period.
//
// WHY: The period switches between days and whole months at 30 days and must report
// "not applicable" rather than zero when there is nothing to average.
func TestAverageHoldingTime(t *testing.T) {
	today := time.Date(2025, time.June, 15, 18, 30, 0, 0, time.UTC)

	holding := func(date string) model.Holding {
		return testutil.NewHolding().WithPurchaseDate(date).Build()
	}

	t.Run("empty is not applicable", func(t *testing.T) {
		p := analytics.AverageHoldingTime(nil, today)

		assert.False(t, p.Applicable)
		assert.Equal(t, "N/A", p.String())
	})

	t.Run("holdings without dates are ignored", func(t *testing.T) {
		p := analytics.AverageHoldingTime([]model.Holding{holding("")}, today)

		assert.False(t, p.Applicable)
	})

	t.Run("under 30 days is reported in days", func(t *testing.T) {
		p := analytics.AverageHoldingTime([]model.Holding{holding("2025-06-05"), holding("2025-06-11")}, today)

		assert.True(t, p.Applicable)
		assert.Equal(t, 7, p.Days)
		assert.Equal(t, 0, p.Months)
		assert.Equal(t, "7 days", p.String())
	})

	t.Run("30 days or more is reported in whole months", func(t *testing.T) {
		p := analytics.AverageHoldingTime([]model.Holding{holding("2025-03-17"), holding("2025-06-15")}, today)

		assert.Equal(t, 45, p.Days)
		assert.Equal(t, 1, p.Months)
		assert.Equal(t, "1 month", p.String())
	})

	t.Run("purchases today count as zero days", func(t *testing.T) {
		p := analytics.AverageHoldingTime([]model.Holding{holding("2025-06-15")}, today)

		assert.True(t, p.Applicable)
		assert.Equal(t, "0 days", p.String())
	})
}
