package testutil

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ndewijer/portfolio-client/internal/model"
)

var holdingSeq atomic.Int64

// HoldingBuilder provides a fluent interface for creating test holdings.
//
// Example usage:
//
//	// Simple creation with defaults
//	h := testutil.NewHolding().Build()
//
//	// Customized holding
//	h := testutil.NewHolding().
//	    WithTicker("AAPL").
//	    WithShares(10).
//	    WithPrices(100, 150).
//	    WithSector("Technology").
//	    Build()
type HoldingBuilder struct {
	ID           string
	Ticker       string
	Shares       float64
	BuyPrice     float64
	CurrentPrice float64
	PurchaseDate time.Time
	Sector       string
}

// NewHolding creates a HoldingBuilder with sensible defaults.
func NewHolding() *HoldingBuilder {
	return &HoldingBuilder{
		ID:           strconv.FormatInt(holdingSeq.Add(1), 10),
		Ticker:       MakeTicker("TST"),
		Shares:       10,
		BuyPrice:     100,
		CurrentPrice: 110,
		PurchaseDate: MustParseDate("2024-01-15"),
		Sector:       "Technology",
	}
}

// WithID sets a custom ID.
func (b *HoldingBuilder) WithID(id string) *HoldingBuilder {
	b.ID = id
	return b
}

// WithTicker sets a custom ticker.
func (b *HoldingBuilder) WithTicker(ticker string) *HoldingBuilder {
	b.Ticker = ticker
	return b
}

// WithShares sets the share count.
func (b *HoldingBuilder) WithShares(shares float64) *HoldingBuilder {
	b.Shares = shares
	return b
}

// WithPrices sets the buy and current price.
func (b *HoldingBuilder) WithPrices(buy, current float64) *HoldingBuilder {
	b.BuyPrice = buy
	b.CurrentPrice = current
	return b
}

// WithPurchaseDate sets the purchase date from a YYYY-MM-DD string.
func (b *HoldingBuilder) WithPurchaseDate(date string) *HoldingBuilder {
	b.PurchaseDate = MustParseDate(date)
	return b
}

// WithSector sets the sector label.
func (b *HoldingBuilder) WithSector(sector string) *HoldingBuilder {
	b.Sector = sector
	return b
}

// Build returns the holding.
func (b *HoldingBuilder) Build() model.Holding {
	return model.Holding{
		ID:           b.ID,
		Ticker:       b.Ticker,
		Shares:       b.Shares,
		BuyPrice:     b.BuyPrice,
		PurchaseDate: b.PurchaseDate,
		CurrentPrice: b.CurrentPrice,
		Sector:       b.Sector,
	}
}

// Convenience functions

// CreateHolding creates a holding with the given ticker, shares and prices.
//
// Example usage:
//
//	h := testutil.CreateHolding("AAPL", 10, 100, 150)
func CreateHolding(ticker string, shares, buyPrice, currentPrice float64) model.Holding {
	return NewHolding().
		WithTicker(ticker).
		WithShares(shares).
		WithPrices(buyPrice, currentPrice).
		Build()
}

// CreateHistory creates days history points ending on end, one per day, with the
// value growing by 10 each day from start.
func CreateHistory(end time.Time, days int, start float64) []model.HistoryPoint {
	points := make([]model.HistoryPoint, days)
	for i := 0; i < days; i++ {
		d := end.AddDate(0, 0, i-days+1)
		points[i] = model.HistoryPoint{
			Date:  d,
			Label: d.Format("Jan 02"),
			Value: start + float64(i)*10,
		}
	}
	return points
}

// MustParseDate parses a YYYY-MM-DD date and panics on failure.
// An empty string yields the zero time.
func MustParseDate(date string) time.Time {
	if date == "" {
		return time.Time{}
	}
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return d
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
