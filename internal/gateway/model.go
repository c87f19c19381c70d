package gateway

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ndewijer/portfolio-client/internal/model"
)

// PortfolioPayload is the parsed body of GET /portfolio and POST /refresh-prices.
type PortfolioPayload struct {
	Holdings []model.Holding
	Metrics  model.MetricsPatch
}

// AddHoldingRequest is the body of POST /holdings.
// BuyPrice is optional; when nil the service looks up the historical price itself.
type AddHoldingRequest struct {
	Ticker       string   `json:"ticker" validate:"required,max=12"`
	Shares       float64  `json:"shares" validate:"gt=0"`
	PurchaseDate string   `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	BuyPrice     *float64 `json:"buy_price,omitempty" validate:"omitempty,gte=0"`
}

// MutationResult is the parsed body of a successful add or delete.
type MutationResult struct {
	Message string
	Holding *model.Holding // Set when the service echoes the created holding
}

// portfolioResponse is the raw JSON structure of /portfolio and /refresh-prices.
type portfolioResponse struct {
	Holdings []wireHolding             `json:"holdings"`
	Metrics  map[string]json.RawMessage `json:"metrics"`
}

// wireHolding mirrors a holding as sent by the service. Pointer fields distinguish
// missing values from zero values.
type wireHolding struct {
	ID           json.RawMessage `json:"id"`
	Ticker       string          `json:"ticker"`
	Shares       *float64        `json:"shares"`
	BuyPrice     *float64        `json:"buy_price"`
	CurrentPrice *float64        `json:"current_price"`
	PurchaseDate string          `json:"purchase_date"`
	Sector       string          `json:"sector"`
}

type mutationResponse struct {
	Message string       `json:"message"`
	Holding *wireHolding `json:"holding"`
}

type wirePerformer struct {
	Ticker    string   `json:"ticker"`
	ReturnPct *float64 `json:"return_pct"`
}

type wireSector struct {
	Sector     string   `json:"sector"`
	Value      *float64 `json:"value"`
	Percentage *float64 `json:"percentage"`
	Color      string   `json:"color"`
}

type wireHistoryPoint struct {
	Date          string   `json:"date"`
	Value         *float64 `json:"value"`
	FormattedDate string   `json:"formatted_date"`
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

type suggestionsResponse struct {
	Suggestions []model.AdvisorySuggestion `json:"suggestions"`
}

// parseID accepts the numeric or string ids the service emits.
func parseID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// toHolding converts a wire holding into a model.Holding.
// The boolean is false when the record violates a holding invariant and must be dropped.
func (w wireHolding) toHolding() (model.Holding, bool) {
	id := parseID(w.ID)
	ticker := strings.ToUpper(strings.TrimSpace(w.Ticker))
	if id == "" || ticker == "" {
		return model.Holding{}, false
	}
	if w.Shares == nil || *w.Shares <= 0 {
		return model.Holding{}, false
	}

	var buyPrice float64
	if w.BuyPrice != nil {
		buyPrice = *w.BuyPrice
	}
	currentPrice := buyPrice
	if w.CurrentPrice != nil {
		currentPrice = *w.CurrentPrice
	}
	if buyPrice < 0 || currentPrice < 0 {
		return model.Holding{}, false
	}

	var purchased time.Time
	if d, err := time.Parse(model.DateLayout, strings.TrimSpace(w.PurchaseDate)); err == nil {
		purchased = d
	}

	return model.Holding{
		ID:           id,
		Ticker:       ticker,
		Shares:       *w.Shares,
		BuyPrice:     buyPrice,
		PurchaseDate: purchased,
		CurrentPrice: currentPrice,
		Sector:       strings.TrimSpace(w.Sector),
	}, true
}

// parseHoldings converts wire holdings, dropping invalid records with a warning.
func parseHoldings(in []wireHolding, logger *zap.Logger) []model.Holding {
	out := make([]model.Holding, 0, len(in))
	for i, w := range in {
		h, ok := w.toHolding()
		if !ok {
			logger.Warn("dropping malformed holding",
				zap.Int("index", i),
				zap.String("ticker", w.Ticker))
			continue
		}
		out = append(out, h)
	}
	return out
}

// parseMetricsPatch decodes a partial metrics object. Unknown keys are ignored; a
// numeric key that is null or not a number is treated as absent.
func parseMetricsPatch(raw map[string]json.RawMessage) model.MetricsPatch {
	var p model.MetricsPatch
	p.TotalValue = decodeFloat(raw, "total_value")
	p.TotalCost = decodeFloat(raw, "total_cost")
	p.TotalGainLoss = decodeFloat(raw, "total_gain_loss")
	p.GainLossPercentage = decodeFloat(raw, "gain_loss_percentage")
	p.BestPerformer = decodePerformer(raw, "best_performer")
	p.WorstPerformer = decodePerformer(raw, "worst_performer")
	if f := decodeFloat(raw, "total_holdings"); f != nil && *f >= 0 {
		n := int(*f)
		p.TotalHoldings = &n
	}
	return p
}

func decodeFloat(raw map[string]json.RawMessage, key string) *float64 {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	var f *float64
	if err := json.Unmarshal(v, &f); err != nil {
		return nil
	}
	return f
}

func decodePerformer(raw map[string]json.RawMessage, key string) model.OptionalPerformer {
	v, ok := raw[key]
	if !ok {
		return model.OptionalPerformer{}
	}
	var wp *wirePerformer
	if err := json.Unmarshal(v, &wp); err != nil {
		return model.OptionalPerformer{}
	}
	if wp == nil || strings.TrimSpace(wp.Ticker) == "" || wp.ReturnPct == nil {
		return model.OptionalPerformer{Set: true}
	}
	return model.OptionalPerformer{
		Set: true,
		Value: &model.Performer{
			Ticker:    strings.ToUpper(strings.TrimSpace(wp.Ticker)),
			ReturnPct: *wp.ReturnPct,
		},
	}
}

// parseSectors converts the sector breakdown, defaulting missing labels and colors
// and restoring the descending-by-value order.
func parseSectors(in []wireSector, logger *zap.Logger) []model.SectorSlice {
	out := make([]model.SectorSlice, 0, len(in))
	for i, w := range in {
		if w.Value == nil || *w.Value < 0 {
			logger.Warn("dropping malformed sector slice", zap.Int("index", i), zap.String("sector", w.Sector))
			continue
		}
		s := model.SectorSlice{
			Sector: strings.TrimSpace(w.Sector),
			Value:  *w.Value,
			Color:  strings.TrimSpace(w.Color),
		}
		if s.Sector == "" {
			s.Sector = model.UnclassifiedSector
		}
		if w.Percentage != nil && *w.Percentage >= 0 {
			s.Percentage = *w.Percentage
		}
		if s.Color == "" {
			s.Color = model.SectorColor(i)
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Value > out[b].Value
	})
	return out
}

// parseHistory converts history points, dropping undated or valueless points and
// sorting ascending by date.
func parseHistory(in []wireHistoryPoint, logger *zap.Logger) []model.HistoryPoint {
	out := make([]model.HistoryPoint, 0, len(in))
	for i, w := range in {
		d, err := time.Parse(model.DateLayout, strings.TrimSpace(w.Date))
		if err != nil || w.Value == nil {
			logger.Warn("dropping malformed history point", zap.Int("index", i), zap.String("date", w.Date))
			continue
		}
		label := strings.TrimSpace(w.FormattedDate)
		if label == "" {
			label = d.Format("Jan 02")
		}
		out = append(out, model.HistoryPoint{Date: d, Label: label, Value: *w.Value})
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Date.Before(out[b].Date)
	})
	return out
}

// parseSuggestions trims entries and drops those without a title.
func parseSuggestions(in []model.AdvisorySuggestion) []model.AdvisorySuggestion {
	out := make([]model.AdvisorySuggestion, 0, len(in))
	for _, s := range in {
		s.Title = strings.TrimSpace(s.Title)
		s.Description = strings.TrimSpace(s.Description)
		s.Recommendation = strings.TrimSpace(s.Recommendation)
		if s.Title == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
