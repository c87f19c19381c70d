package analytics_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-client/internal/analytics"
	"github.com/ndewijer/portfolio-client/internal/model"
	"github.com/ndewijer/portfolio-client/internal/testutil"
)

func sectorHolding(sector string, value float64) model.Holding {
	return testutil.NewHolding().
		WithShares(1).
		WithPrices(value, value).
		WithSector(sector).
		Build()
}

// TestAggregateSectors tests grouping holdings into sector slices.
//
// WHY: The allocation chart relies on a deterministic order, exact label matching,
// an explicit bucket for unlabelled holdings and percentages that add up to 100.
func TestAggregateSectors(t *testing.T) {
	t.Run("empty holdings yield no slices", func(t *testing.T) {
		assert.Empty(t, analytics.AggregateSectors(nil))
	})

	t.Run("orders sectors by value", func(t *testing.T) {
		slices := analytics.AggregateSectors([]model.Holding{
			sectorHolding("Health", 200),
			sectorHolding("Tech", 800),
		})

		require.Len(t, slices, 2)
		assert.Equal(t, "Tech", slices[0].Sector)
		assert.Equal(t, 80.0, slices[0].Percentage)
		assert.Equal(t, 800.0, slices[0].Value)
		assert.Equal(t, "Health", slices[1].Sector)
		assert.Equal(t, 20.0, slices[1].Percentage)
	})

	t.Run("colors follow first-seen order", func(t *testing.T) {
		slices := analytics.AggregateSectors([]model.Holding{
			sectorHolding("Health", 200),
			sectorHolding("Tech", 800),
		})

		assert.Equal(t, model.SectorColor(1), slices[0].Color)
		assert.Equal(t, model.SectorColor(0), slices[1].Color)
	})

	t.Run("groups case-sensitively and sums values", func(t *testing.T) {
		slices := analytics.AggregateSectors([]model.Holding{
			sectorHolding("Tech", 100),
			sectorHolding("tech", 100),
			sectorHolding("Tech", 100),
		})

		require.Len(t, slices, 2)
		assert.Equal(t, "Tech", slices[0].Sector)
		assert.Equal(t, 200.0, slices[0].Value)
		assert.Equal(t, "tech", slices[1].Sector)
	})

	t.Run("ties keep first-seen order", func(t *testing.T) {
		slices := analytics.AggregateSectors([]model.Holding{
			sectorHolding("Energy", 100),
			sectorHolding("Utilities", 100),
			sectorHolding("Finance", 100),
		})

		require.Len(t, slices, 3)
		assert.Equal(t, []string{"Energy", "Utilities", "Finance"},
			[]string{slices[0].Sector, slices[1].Sector, slices[2].Sector})
		assert.Equal(t, 33.34, slices[0].Percentage)
		assert.Equal(t, 33.33, slices[1].Percentage)
		assert.Equal(t, 33.33, slices[2].Percentage)
	})

	t.Run("holdings without a sector are grouped as unclassified", func(t *testing.T) {
		slices := analytics.AggregateSectors([]model.Holding{
			sectorHolding("", 100),
			sectorHolding("Tech", 300),
			sectorHolding("", 50),
		})

		require.Len(t, slices, 2)
		assert.Equal(t, model.UnclassifiedSector, slices[1].Sector)
		assert.Equal(t, 150.0, slices[1].Value)
	})

	t.Run("zero-valued portfolio has zero percentages", func(t *testing.T) {
		slices := analytics.AggregateSectors([]model.Holding{sectorHolding("Tech", 0)})

		require.Len(t, slices, 1)
		assert.Equal(t, 0.0, slices[0].Percentage)
	})
}

// TestAggregateSectors_PercentagesSumTo100 checks the sum invariant over random portfolios.
//
// WHY: Independent rounding of each slice can drift from 100; the apportionment
// must absorb the drift for any mix of values.
func TestAggregateSectors_PercentagesSumTo100(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(12)
		holdings := make([]model.Holding, n)
		for j := range holdings {
			holdings[j] = testutil.NewHolding().
				WithShares(0.01 + rng.Float64()*100).
				WithPrices(1, 0.01+rng.Float64()*500).
				WithSector(fmt.Sprintf("S%d", rng.Intn(9))).
				Build()
		}

		slices := analytics.AggregateSectors(holdings)

		var sum float64
		for _, s := range slices {
			sum += s.Percentage
		}
		assert.InDelta(t, 100.0, sum, 0.01, "portfolio %d", i)
	}
}
