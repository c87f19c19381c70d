package testutil

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ndewijer/portfolio-client/internal/apperrors"
	"github.com/ndewijer/portfolio-client/internal/gateway"
	"github.com/ndewijer/portfolio-client/internal/model"
)

// Gateway operation names used to configure and inspect MockGateway.
const (
	OpGetPortfolio        = "GetPortfolio"
	OpGetPortfolioMetrics = "GetPortfolioMetrics"
	OpGetSectorBreakdown  = "GetSectorBreakdown"
	OpGetPortfolioHistory = "GetPortfolioHistory"
	OpAddHolding          = "AddHolding"
	OpDeleteHolding       = "DeleteHolding"
	OpRefreshPrices       = "RefreshPrices"
	OpAskAdvisor          = "AskAdvisor"
	OpGetSuggestions      = "GetSuggestions"
)

// MockGateway is an in-memory implementation of gateway.PortfolioAPI and
// gateway.AdvisorAPI for testing. It is safe for concurrent use.
//
// Added holdings are kept so that later reads return them, which lets tests check
// the reload behaviour of the store. Any operation can be made to fail with
// WithError or to block until released with Block.
type MockGateway struct {
	mu sync.Mutex

	holdings        []model.Holding
	metrics         model.MetricsPatch
	extendedMetrics model.MetricsPatch
	sectors         []model.SectorSlice
	history         []model.HistoryPoint
	suggestions     []model.AdvisorySuggestion
	answer          string
	refreshPrices   map[string]float64

	errs  map[string]error
	gates map[string]chan struct{}
	calls map[string]int

	nextID       int
	lastAdd      gateway.AddHoldingRequest
	lastQuestion string
	historyDays  int
}

// NewMockGateway creates a mock with an empty portfolio and a canned advisor answer.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		holdings:      []model.Holding{},
		sectors:       []model.SectorSlice{},
		history:       []model.HistoryPoint{},
		answer:        "Your portfolio looks balanced.",
		refreshPrices: make(map[string]float64),
		errs:          make(map[string]error),
		gates:         make(map[string]chan struct{}),
		calls:         make(map[string]int),
		nextID:        1,
	}
}

// WithHoldings replaces the holdings returned by the mock.
func (m *MockGateway) WithHoldings(holdings ...model.Holding) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdings = append([]model.Holding{}, holdings...)
	for _, h := range holdings {
		if id, err := strconv.Atoi(h.ID); err == nil && id >= m.nextID {
			m.nextID = id + 1
		}
	}
	return m
}

// WithMetrics sets the basic metrics patch sent along with the holdings.
func (m *MockGateway) WithMetrics(p model.MetricsPatch) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = p
	return m
}

// WithExtendedMetrics sets the patch returned by GetPortfolioMetrics.
func (m *MockGateway) WithExtendedMetrics(p model.MetricsPatch) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extendedMetrics = p
	return m
}

// WithSectors sets the sector breakdown.
func (m *MockGateway) WithSectors(sectors ...model.SectorSlice) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sectors = append([]model.SectorSlice{}, sectors...)
	return m
}

// WithHistory sets the history series.
func (m *MockGateway) WithHistory(points ...model.HistoryPoint) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append([]model.HistoryPoint{}, points...)
	return m
}

// WithSuggestions sets the advisor suggestions.
func (m *MockGateway) WithSuggestions(suggestions ...model.AdvisorySuggestion) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suggestions = append([]model.AdvisorySuggestion{}, suggestions...)
	return m
}

// WithAnswer sets the advisor answer.
func (m *MockGateway) WithAnswer(answer string) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answer = answer
	return m
}

// WithRefreshedPrice sets the price ticker gets on the next RefreshPrices.
func (m *MockGateway) WithRefreshedPrice(ticker string, price float64) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshPrices[ticker] = price
	return m
}

// WithError makes op fail with err. A nil err makes op succeed again.
func (m *MockGateway) WithError(op string, err error) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
	} else {
		m.errs[op] = err
	}
	return m
}

// Block makes subsequent calls of op wait until the returned release function is
// called. Release is safe to call more than once.
func (m *MockGateway) Block(op string) (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gates[op] = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gates[op] == gate {
				delete(m.gates, op)
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

// CallCount returns how many times op has been called.
func (m *MockGateway) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// LastAddRequest returns the most recent AddHolding request.
func (m *MockGateway) LastAddRequest() gateway.AddHoldingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAdd
}

// LastQuestion returns the most recent question sent to the advisor.
func (m *MockGateway) LastQuestion() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuestion
}

// LastHistoryDays returns the window of the most recent history request.
func (m *MockGateway) LastHistoryDays() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyDays
}

// enter records a call of op, waits on its gate if any and returns its configured error.
func (m *MockGateway) enter(ctx context.Context, op string) error {
	m.mu.Lock()
	m.calls[op]++
	gate := m.gates[op]
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[op]
}

// GetPortfolio returns the configured holdings and basic metrics.
func (m *MockGateway) GetPortfolio(ctx context.Context) (gateway.PortfolioPayload, error) {
	if err := m.enter(ctx, OpGetPortfolio); err != nil {
		return gateway.PortfolioPayload{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return gateway.PortfolioPayload{
		Holdings: append([]model.Holding{}, m.holdings...),
		Metrics:  m.metrics,
	}, nil
}

// GetPortfolioMetrics returns the configured extended metrics.
func (m *MockGateway) GetPortfolioMetrics(ctx context.Context) (model.MetricsPatch, error) {
	if err := m.enter(ctx, OpGetPortfolioMetrics); err != nil {
		return model.MetricsPatch{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extendedMetrics, nil
}

// GetSectorBreakdown returns the configured sectors.
func (m *MockGateway) GetSectorBreakdown(ctx context.Context) ([]model.SectorSlice, error) {
	if err := m.enter(ctx, OpGetSectorBreakdown); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SectorSlice{}, m.sectors...), nil
}

// GetPortfolioHistory returns the configured history and records the window.
func (m *MockGateway) GetPortfolioHistory(ctx context.Context, days int) ([]model.HistoryPoint, error) {
	m.mu.Lock()
	m.historyDays = days
	m.mu.Unlock()

	if err := m.enter(ctx, OpGetPortfolioHistory); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.HistoryPoint{}, m.history...), nil
}

// AddHolding stores a new holding. Without a buy price it is bought at 100.
func (m *MockGateway) AddHolding(ctx context.Context, req gateway.AddHoldingRequest) (gateway.MutationResult, error) {
	m.mu.Lock()
	m.lastAdd = req
	m.mu.Unlock()

	if err := m.enter(ctx, OpAddHolding); err != nil {
		return gateway.MutationResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	purchased, _ := time.Parse(model.DateLayout, req.PurchaseDate)
	price := 100.0
	if req.BuyPrice != nil {
		price = *req.BuyPrice
	}
	h := model.Holding{
		ID:           strconv.Itoa(m.nextID),
		Ticker:       req.Ticker,
		Shares:       req.Shares,
		BuyPrice:     price,
		PurchaseDate: purchased,
		CurrentPrice: price,
		Sector:       "Other",
	}
	m.nextID++
	m.holdings = append(m.holdings, h)

	return gateway.MutationResult{
		Message: "Successfully added " + h.Ticker + " to portfolio",
		Holding: &h,
	}, nil
}

// DeleteHolding removes the holding with id, or fails with a 404 APIError.
func (m *MockGateway) DeleteHolding(ctx context.Context, id string) (gateway.MutationResult, error) {
	if err := m.enter(ctx, OpDeleteHolding); err != nil {
		return gateway.MutationResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, h := range m.holdings {
		if h.ID == id {
			m.holdings = append(m.holdings[:i:i], m.holdings[i+1:]...)
			return gateway.MutationResult{Message: "Holding deleted successfully"}, nil
		}
	}
	return gateway.MutationResult{}, &gateway.APIError{
		StatusCode: http.StatusNotFound,
		Method:     http.MethodDelete,
		Path:       "/holdings/" + id,
		Message:    "Holding not found",
		Err:        apperrors.ErrHoldingNotFound,
	}
}

// RefreshPrices applies the prices configured with WithRefreshedPrice and returns
// the holdings.
func (m *MockGateway) RefreshPrices(ctx context.Context) (gateway.PortfolioPayload, error) {
	if err := m.enter(ctx, OpRefreshPrices); err != nil {
		return gateway.PortfolioPayload{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.holdings {
		if price, ok := m.refreshPrices[m.holdings[i].Ticker]; ok {
			m.holdings[i].CurrentPrice = price
		}
	}
	return gateway.PortfolioPayload{
		Holdings: append([]model.Holding{}, m.holdings...),
		Metrics:  m.metrics,
	}, nil
}

// AskAdvisor returns the configured answer.
func (m *MockGateway) AskAdvisor(ctx context.Context, question string) (string, error) {
	m.mu.Lock()
	m.lastQuestion = question
	m.mu.Unlock()

	if err := m.enter(ctx, OpAskAdvisor); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.answer, nil
}

// GetSuggestions returns the configured suggestions.
func (m *MockGateway) GetSuggestions(ctx context.Context) ([]model.AdvisorySuggestion, error) {
	if err := m.enter(ctx, OpGetSuggestions); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AdvisorySuggestion{}, m.suggestions...), nil
}

var (
	_ gateway.PortfolioAPI = (*MockGateway)(nil)
	_ gateway.AdvisorAPI   = (*MockGateway)(nil)
)
