package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ndewijer/portfolio-client/internal/model"
)

// PortfolioAPI is the portfolio half of the remote service consumed by the store.
type PortfolioAPI interface {
	GetPortfolio(ctx context.Context) (PortfolioPayload, error)
	GetPortfolioMetrics(ctx context.Context) (model.MetricsPatch, error)
	GetSectorBreakdown(ctx context.Context) ([]model.SectorSlice, error)
	GetPortfolioHistory(ctx context.Context, days int) ([]model.HistoryPoint, error)
	AddHolding(ctx context.Context, req AddHoldingRequest) (MutationResult, error)
	DeleteHolding(ctx context.Context, id string) (MutationResult, error)
	RefreshPrices(ctx context.Context) (PortfolioPayload, error)
}

// GetPortfolio retrieves the holdings with their latest prices and the basic metrics.
func (c *Client) GetPortfolio(ctx context.Context) (PortfolioPayload, error) {
	var resp portfolioResponse
	if err := c.do(ctx, http.MethodGet, "/portfolio", c.newRequest(ctx), &resp); err != nil {
		return PortfolioPayload{}, err
	}
	return c.toPayload(resp), nil
}

// GetPortfolioMetrics retrieves the extended metrics (best and worst performer, holding count).
func (c *Client) GetPortfolioMetrics(ctx context.Context) (model.MetricsPatch, error) {
	var resp map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/portfolio-metrics", c.newRequest(ctx), &resp); err != nil {
		return model.MetricsPatch{}, err
	}
	return parseMetricsPatch(resp), nil
}

// GetSectorBreakdown retrieves the sector allocation as computed by the service.
func (c *Client) GetSectorBreakdown(ctx context.Context) ([]model.SectorSlice, error) {
	var resp []wireSector
	if err := c.do(ctx, http.MethodGet, "/sector-breakdown", c.newRequest(ctx), &resp); err != nil {
		return nil, err
	}
	return parseSectors(resp, c.logger), nil
}

// GetPortfolioHistory retrieves the daily portfolio value series for the last days days.
// A non-positive days uses DefaultHistoryDays.
func (c *Client) GetPortfolioHistory(ctx context.Context, days int) ([]model.HistoryPoint, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}

	req := c.newRequest(ctx).SetQueryParam("days", strconv.Itoa(days))

	var resp []wireHistoryPoint
	if err := c.do(ctx, http.MethodGet, "/portfolio-history", req, &resp); err != nil {
		return nil, err
	}
	return parseHistory(resp, c.logger), nil
}

// AddHolding creates a holding. The service resolves the current price and sector,
// and the historical buy price when req.BuyPrice is nil.
func (c *Client) AddHolding(ctx context.Context, req AddHoldingRequest) (MutationResult, error) {
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))

	var resp mutationResponse
	if err := c.do(ctx, http.MethodPost, "/holdings", c.newRequest(ctx).SetBody(req), &resp); err != nil {
		return MutationResult{}, err
	}
	return c.toMutationResult(resp), nil
}

// DeleteHolding removes the holding with the given id.
func (c *Client) DeleteHolding(ctx context.Context, id string) (MutationResult, error) {
	req := c.newRequest(ctx).SetPathParam("id", id)

	var resp mutationResponse
	if err := c.do(ctx, http.MethodDelete, "/holdings/{id}", req, &resp); err != nil {
		return MutationResult{}, err
	}
	return c.toMutationResult(resp), nil
}

// RefreshPrices asks the service to fetch fresh quotes for every holding and returns
// the updated holdings and basic metrics.
func (c *Client) RefreshPrices(ctx context.Context) (PortfolioPayload, error) {
	var resp portfolioResponse
	req := c.newRequest(ctx).SetBody(map[string]any{})
	if err := c.do(ctx, http.MethodPost, "/refresh-prices", req, &resp); err != nil {
		return PortfolioPayload{}, err
	}
	return c.toPayload(resp), nil
}

// Health reports the service status.
func (c *Client) Health(ctx context.Context) (model.HealthStatus, error) {
	var resp model.HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", c.newRequest(ctx), &resp); err != nil {
		return model.HealthStatus{}, err
	}
	return resp, nil
}

func (c *Client) toPayload(resp portfolioResponse) PortfolioPayload {
	return PortfolioPayload{
		Holdings: parseHoldings(resp.Holdings, c.logger),
		Metrics:  parseMetricsPatch(resp.Metrics),
	}
}

func (c *Client) toMutationResult(resp mutationResponse) MutationResult {
	result := MutationResult{Message: resp.Message}
	if resp.Holding != nil {
		if h, ok := resp.Holding.toHolding(); ok {
			result.Holding = &h
		}
	}
	return result
}
