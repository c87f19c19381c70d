package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-client/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

// TestPortfolioMetrics_Merge tests shallow merging of partial metrics.
//
// WHY: Absent fields must keep the prior value while an explicit null performer
// must clear it; confusing the two shows stale or missing performers.
func TestPortfolioMetrics_Merge(t *testing.T) {
	base := model.PortfolioMetrics{
		TotalValue:     1000,
		TotalCost:      800,
		TotalGainLoss:  200,
		BestPerformer:  &model.Performer{Ticker: "AAPL", ReturnPct: 25},
		WorstPerformer: &model.Performer{Ticker: "INTC", ReturnPct: -5},
		TotalHoldings:  2,
	}

	t.Run("empty patch keeps everything", func(t *testing.T) {
		assert.Equal(t, base, base.Merge(model.MetricsPatch{}))
	})

	t.Run("supplied fields overwrite", func(t *testing.T) {
		got := base.Merge(model.MetricsPatch{
			TotalValue:    floatPtr(1200),
			BestPerformer: model.OptionalPerformer{Set: true, Value: &model.Performer{Ticker: "MSFT", ReturnPct: 30}},
		})

		assert.Equal(t, 1200.0, got.TotalValue)
		assert.Equal(t, 800.0, got.TotalCost)
		assert.Equal(t, "MSFT", got.BestPerformer.Ticker)
		assert.Equal(t, "INTC", got.WorstPerformer.Ticker)
	})

	t.Run("explicit null clears a performer", func(t *testing.T) {
		got := base.Merge(model.MetricsPatch{WorstPerformer: model.OptionalPerformer{Set: true}})

		assert.Nil(t, got.WorstPerformer)
		require.NotNil(t, got.BestPerformer)
	})

	t.Run("receiver is not modified", func(t *testing.T) {
		before := base.Clone()

		got := base.Merge(model.MetricsPatch{TotalValue: floatPtr(1)})
		got.BestPerformer.Ticker = "CHANGED"

		assert.Equal(t, before, base)
	})
}

func TestPortfolioMetrics_Clone(t *testing.T) {
	m := model.PortfolioMetrics{BestPerformer: &model.Performer{Ticker: "AAPL"}}

	c := m.Clone()
	c.BestPerformer.Ticker = "MSFT"

	assert.Equal(t, "AAPL", m.BestPerformer.Ticker)
	assert.Nil(t, c.WorstPerformer)
}

func TestSyncState(t *testing.T) {
	assert.False(t, model.SyncState{}.Busy())
	assert.True(t, model.SyncState{Phase: model.SyncLoading}.Busy())
	assert.True(t, model.SyncState{Phase: model.SyncRefreshing}.Busy())
	assert.Equal(t, "refreshing", model.SyncRefreshing.String())
	assert.Equal(t, "idle", model.SyncIdle.String())
}

// TestSectorColor tests palette cycling.
func TestSectorColor(t *testing.T) {
	assert.Equal(t, "#00FFFF", model.SectorColor(0))
	assert.Equal(t, "#FF6600", model.SectorColor(6))
	assert.Equal(t, model.SectorColor(0), model.SectorColor(7))
}
