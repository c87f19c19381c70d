package analytics

import (
	"fmt"
	"time"

	"github.com/ndewijer/portfolio-client/internal/model"
)

// Concentration thresholds, as a percentage of total market value.
const (
	SectorConcentrationThreshold   = 40.0
	PositionConcentrationThreshold = 25.0
)

// RiskKind classifies a risk flag.
type RiskKind string

const (
	RiskSectorConcentration   RiskKind = "sector_concentration"
	RiskPositionConcentration RiskKind = "position_concentration"
	RiskUndefinedReturn       RiskKind = "undefined_return"
)

// RiskFlag is a single portfolio risk derived from the current holdings.
type RiskFlag struct {
	Kind   RiskKind `json:"kind"`
	Title  string   `json:"title"`
	Detail string   `json:"detail"`
}

// HoldingRow pairs a holding with its derived metrics.
type HoldingRow struct {
	Holding model.Holding
	HoldingMetrics
	Weight float64 // Share of total market value, in percent
}

// Insights is the derived analytics view of a holdings snapshot.
type Insights struct {
	TotalReturn        float64
	AverageHoldingTime HoldingPeriod
	Rows               []HoldingRow
	Sectors            []model.SectorSlice
	Risks              []RiskFlag
}

// BuildInsights computes the insights view for holdings as of now.
func BuildInsights(holdings []model.Holding, now time.Time) Insights {
	portfolio := CalculatePortfolio(holdings)
	sectors := AggregateSectors(holdings)

	rows := make([]HoldingRow, len(holdings))
	for i, h := range holdings {
		m := CalculateHolding(h)
		var weight float64
		if portfolio.TotalValue > 0 {
			weight = m.MarketValue / portfolio.TotalValue * 100
		}
		rows[i] = HoldingRow{Holding: h, HoldingMetrics: m, Weight: weight}
	}

	return Insights{
		TotalReturn:        TotalReturn(holdings),
		AverageHoldingTime: AverageHoldingTime(holdings, now),
		Rows:               rows,
		Sectors:            sectors,
		Risks:              riskFlags(rows, sectors),
	}
}

func riskFlags(rows []HoldingRow, sectors []model.SectorSlice) []RiskFlag {
	flags := []RiskFlag{}

	// A one-holding portfolio is trivially concentrated; flag it once via its sector.
	for _, s := range sectors {
		if s.Percentage >= SectorConcentrationThreshold {
			flags = append(flags, RiskFlag{
				Kind:   RiskSectorConcentration,
				Title:  fmt.Sprintf("Over-Concentration in %s", s.Sector),
				Detail: fmt.Sprintf("%.2f%% of portfolio value is in one sector; consider diversifying into other sectors", s.Percentage),
			})
		}
	}

	if len(rows) > 1 {
		for _, r := range rows {
			if r.Weight >= PositionConcentrationThreshold {
				flags = append(flags, RiskFlag{
					Kind:   RiskPositionConcentration,
					Title:  fmt.Sprintf("Large Position in %s", r.Holding.Ticker),
					Detail: fmt.Sprintf("%s is %.2f%% of portfolio value", r.Holding.Ticker, r.Weight),
				})
			}
		}
	}

	for _, r := range rows {
		if r.ReturnPct == nil {
			flags = append(flags, RiskFlag{
				Kind:   RiskUndefinedReturn,
				Title:  fmt.Sprintf("No Cost Basis for %s", r.Holding.Ticker),
				Detail: "Buy price is zero, so the return cannot be computed",
			})
		}
	}

	return flags
}
