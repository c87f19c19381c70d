// Package analytics holds the pure portfolio calculations: per-holding and
// portfolio-level metrics, sector aggregation and the derived insights view.
//
// Arithmetic is done in shopspring/decimal and converted to float64 only at the
// end, rounded to two decimal places, so that identical holdings always yield
// identical figures regardless of summation order noise.
package analytics

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-client/internal/model"
)

// RoundingPlaces is the number of decimals kept for monetary values and percentages.
const RoundingPlaces = 2

var hundred = decimal.NewFromInt(100)

// HoldingMetrics are the derived figures of a single holding.
type HoldingMetrics struct {
	MarketValue float64
	Cost        float64
	GainLoss    float64
	ReturnPct   *float64 // nil when cost is 0
}

// holdingFigures is the unrounded decimal form of HoldingMetrics.
type holdingFigures struct {
	marketValue decimal.Decimal
	cost        decimal.Decimal
	returnPct   *decimal.Decimal
}

func figures(h model.Holding) holdingFigures {
	shares := decimal.NewFromFloat(h.Shares)
	f := holdingFigures{
		marketValue: shares.Mul(decimal.NewFromFloat(h.CurrentPrice)),
		cost:        shares.Mul(decimal.NewFromFloat(h.BuyPrice)),
	}
	if f.cost.IsPositive() {
		pct := f.marketValue.Sub(f.cost).Div(f.cost).Mul(hundred)
		f.returnPct = &pct
	}
	return f
}

// CalculateHolding returns market value, cost, gain/loss and return percentage of h.
//
// The return percentage is undefined (nil) when the cost basis is zero rather than
// producing NaN or Inf.
func CalculateHolding(h model.Holding) HoldingMetrics {
	f := figures(h)
	m := HoldingMetrics{
		MarketValue: round(f.marketValue),
		Cost:        round(f.cost),
		GainLoss:    round(f.marketValue.Sub(f.cost)),
	}
	if f.returnPct != nil {
		pct := round(*f.returnPct)
		m.ReturnPct = &pct
	}
	return m
}

// CalculatePortfolio aggregates holdings into portfolio-level metrics.
//
// Best and worst performer are selected by maximum and minimum return percentage.
// Holdings whose return is undefined are skipped, and ties keep the holding that
// appears first. An empty list yields zero totals and nil performers.
func CalculatePortfolio(holdings []model.Holding) model.PortfolioMetrics {
	totalValue := decimal.Zero
	totalCost := decimal.Zero

	var best, worst *model.Performer
	var bestPct, worstPct decimal.Decimal

	for _, h := range holdings {
		f := figures(h)
		totalValue = totalValue.Add(f.marketValue)
		totalCost = totalCost.Add(f.cost)

		if f.returnPct == nil {
			continue
		}
		if best == nil || f.returnPct.GreaterThan(bestPct) {
			bestPct = *f.returnPct
			best = &model.Performer{Ticker: h.Ticker, ReturnPct: round(bestPct)}
		}
		if worst == nil || f.returnPct.LessThan(worstPct) {
			worstPct = *f.returnPct
			worst = &model.Performer{Ticker: h.Ticker, ReturnPct: round(worstPct)}
		}
	}

	return model.PortfolioMetrics{
		TotalValue:         round(totalValue),
		TotalCost:          round(totalCost),
		TotalGainLoss:      round(totalValue.Sub(totalCost)),
		GainLossPercentage: percentOf(totalValue.Sub(totalCost), totalCost),
		BestPerformer:      best,
		WorstPerformer:     worst,
		TotalHoldings:      len(holdings),
	}
}

// TotalReturn is the portfolio gain/loss as a percentage of cost, rounded to two
// decimals. It is 0 for an empty portfolio or a zero cost basis.
func TotalReturn(holdings []model.Holding) float64 {
	totalValue := decimal.Zero
	totalCost := decimal.Zero
	for _, h := range holdings {
		f := figures(h)
		totalValue = totalValue.Add(f.marketValue)
		totalCost = totalCost.Add(f.cost)
	}
	return percentOf(totalValue.Sub(totalCost), totalCost)
}

// HoldingPeriod is the average time the holdings have been owned.
// When Applicable is false there was nothing to average.
type HoldingPeriod struct {
	Days       int
	Months     int // Whole months; 0 when the average is under 30 days
	Applicable bool
}

func (p HoldingPeriod) String() string {
	switch {
	case !p.Applicable:
		return "N/A"
	case p.Months == 1:
		return "1 month"
	case p.Months > 1:
		return strconv.Itoa(p.Months) + " months"
	case p.Days == 1:
		return "1 day"
	default:
		return strconv.Itoa(p.Days) + " days"
	}
}

// AverageHoldingTime is the mean number of whole days between each purchase date
// and today. Holdings without a purchase date are ignored.
func AverageHoldingTime(holdings []model.Holding, today time.Time) HoldingPeriod {
	end := dateOnly(today)

	var total, counted int
	for _, h := range holdings {
		if h.PurchaseDate.IsZero() {
			continue
		}
		days := int(end.Sub(dateOnly(h.PurchaseDate)).Hours() / 24)
		if days < 0 {
			days = 0
		}
		total += days
		counted++
	}
	if counted == 0 {
		return HoldingPeriod{}
	}

	avg := total / counted
	return HoldingPeriod{
		Days:       avg,
		Months:     avg / 30,
		Applicable: true,
	}
}

// percentOf returns part/whole*100 rounded, or 0 when whole is not positive.
func percentOf(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return round(part.Div(whole).Mul(hundred))
}

func round(d decimal.Decimal) float64 {
	return d.Round(RoundingPlaces).InexactFloat64()
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
