package model

import "time"

// DateLayout is the wire and display format for calendar dates.
const DateLayout = "2006-01-02"

// Holding represents one purchased position in a ticker symbol as reported by the
// portfolio service. Prices are refreshed by sync; everything else is set when the
// holding is added.
type Holding struct {
	ID           string    `json:"id"`
	Ticker       string    `json:"ticker"`        // Uppercase symbol
	Shares       float64   `json:"shares"`        // Always > 0, fractional allowed
	BuyPrice     float64   `json:"buy_price"`     // Price per share at purchase, >= 0
	PurchaseDate time.Time `json:"purchase_date"` // Zero when the backend sent no usable date
	CurrentPrice float64   `json:"current_price"` // Latest known price per share, >= 0
	Sector       string    `json:"sector"`
}

// Performer identifies a holding by ticker together with its return percentage.
type Performer struct {
	Ticker    string  `json:"ticker"`
	ReturnPct float64 `json:"return_pct"`
}

// PortfolioMetrics represents the portfolio-level summary figures.
// All monetary values and percentages are rounded to two decimal places.
type PortfolioMetrics struct {
	TotalValue         float64    `json:"total_value"`
	TotalCost          float64    `json:"total_cost"`
	TotalGainLoss      float64    `json:"total_gain_loss"`      // TotalValue - TotalCost
	GainLossPercentage float64    `json:"gain_loss_percentage"` // 0 when TotalCost is 0
	BestPerformer      *Performer `json:"best_performer"`       // nil when undefined
	WorstPerformer     *Performer `json:"worst_performer"`      // nil when undefined
	TotalHoldings      int        `json:"total_holdings"`
}

// OptionalPerformer carries a performer field of a partial metrics payload.
// Set distinguishes an absent key (retain prior value) from an explicit null
// (Set with a nil Value, which clears it).
type OptionalPerformer struct {
	Set   bool
	Value *Performer
}

// MetricsPatch is a partial PortfolioMetrics. Nil fields were not supplied and
// leave the corresponding metric untouched when merged.
type MetricsPatch struct {
	TotalValue         *float64
	TotalCost          *float64
	TotalGainLoss      *float64
	GainLossPercentage *float64
	BestPerformer      OptionalPerformer
	WorstPerformer     OptionalPerformer
	TotalHoldings      *int
}

// Merge shallow-merges p over m: supplied fields overwrite, unspecified fields are kept.
// The receiver is not modified.
func (m PortfolioMetrics) Merge(p MetricsPatch) PortfolioMetrics {
	out := m.Clone()
	if p.TotalValue != nil {
		out.TotalValue = *p.TotalValue
	}
	if p.TotalCost != nil {
		out.TotalCost = *p.TotalCost
	}
	if p.TotalGainLoss != nil {
		out.TotalGainLoss = *p.TotalGainLoss
	}
	if p.GainLossPercentage != nil {
		out.GainLossPercentage = *p.GainLossPercentage
	}
	if p.BestPerformer.Set {
		out.BestPerformer = clonePerformer(p.BestPerformer.Value)
	}
	if p.WorstPerformer.Set {
		out.WorstPerformer = clonePerformer(p.WorstPerformer.Value)
	}
	if p.TotalHoldings != nil {
		out.TotalHoldings = *p.TotalHoldings
	}
	return out
}

// Clone returns a copy of m that shares no pointers with it.
func (m PortfolioMetrics) Clone() PortfolioMetrics {
	m.BestPerformer = clonePerformer(m.BestPerformer)
	m.WorstPerformer = clonePerformer(m.WorstPerformer)
	return m
}

func clonePerformer(p *Performer) *Performer {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// SectorSlice is one sector's share of the portfolio's market value.
type SectorSlice struct {
	Sector     string  `json:"sector"`
	Value      float64 `json:"value"`      // Aggregate market value of the sector
	Percentage float64 `json:"percentage"` // Share of total portfolio value
	Color      string  `json:"color"`      // Display color
}

// UnclassifiedSector is the bucket for holdings without a sector label.
const UnclassifiedSector = "Unclassified"

// sectorPalette is the display palette, assigned in first-seen order and cycled.
var sectorPalette = []string{
	"#00FFFF",
	"#FF00FF",
	"#00FF00",
	"#FFFF00",
	"#FF0099",
	"#00FFAA",
	"#FF6600",
}

// SectorColor returns the palette color for the i-th sector seen.
func SectorColor(i int) string {
	if i < 0 {
		i = -i
	}
	return sectorPalette[i%len(sectorPalette)]
}

// HistoryPoint represents the portfolio value on a single date.
type HistoryPoint struct {
	Date  time.Time `json:"date"`
	Label string    `json:"formatted_date"` // Short display label, e.g. "Jan 02"
	Value float64   `json:"value"`
}
