package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/ndewijer/portfolio-client/internal/apperrors"
	"github.com/ndewijer/portfolio-client/internal/model"
)

// AdvisorAPI is the advisory half of the remote service consumed by the chat session.
type AdvisorAPI interface {
	AskAdvisor(ctx context.Context, question string) (string, error)
	GetSuggestions(ctx context.Context) ([]model.AdvisorySuggestion, error)
}

// AskAdvisor sends a question and returns the advisor's answer. An empty answer is
// reported as a malformed response.
func (c *Client) AskAdvisor(ctx context.Context, question string) (string, error) {
	req := c.newRequest(ctx).SetBody(chatRequest{Question: question})

	var resp chatResponse
	if err := c.do(ctx, http.MethodPost, "/ai-chat", req, &resp); err != nil {
		return "", err
	}

	answer := strings.TrimSpace(resp.Answer)
	if answer == "" {
		return "", &APIError{
			StatusCode: http.StatusOK,
			Method:     http.MethodPost,
			Path:       "/ai-chat",
			Message:    "advisor returned an empty answer",
			Err:        apperrors.ErrMissingRequiredField,
		}
	}
	return answer, nil
}

// GetSuggestions retrieves the pre-computed advisory suggestions for the portfolio.
func (c *Client) GetSuggestions(ctx context.Context) ([]model.AdvisorySuggestion, error) {
	var resp suggestionsResponse
	if err := c.do(ctx, http.MethodGet, "/ai-suggestions", c.newRequest(ctx), &resp); err != nil {
		return nil, err
	}
	return parseSuggestions(resp.Suggestions), nil
}
