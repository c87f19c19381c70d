package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/portfolio-client/internal/apperrors"
	"github.com/ndewijer/portfolio-client/internal/gateway"
	"github.com/ndewijer/portfolio-client/internal/model"
	"github.com/ndewijer/portfolio-client/internal/validation"
)

// fallbackSuggestions are shown when the advisor cannot provide any.
var fallbackSuggestions = []model.AdvisorySuggestion{
	{
		Title:          "Over-Concentration in Tech Sector",
		Description:    "Consider diversifying into other sectors",
		Recommendation: "Add stocks in Healthcare, Consumer Goods.",
	},
	{
		Title:          "High Volatility",
		Description:    "Some stocks showing high risk due to market conditions",
		Recommendation: "Consider balancing with stable assets.",
	},
	{
		Title:          "No Dividends",
		Description:    "Consider adding dividend-paying stocks",
		Recommendation: "Add dividend-paying stocks for steady income.",
	},
}

// FallbackSuggestions returns a copy of the fixed local suggestion list.
func FallbackSuggestions() []model.AdvisorySuggestion {
	return append([]model.AdvisorySuggestion{}, fallbackSuggestions...)
}

// AdvisoryPhase is the state of an advisory session.
type AdvisoryPhase int

const (
	AdvisoryIdle AdvisoryPhase = iota
	AdvisorySending
	AdvisoryLoadingSuggestions
)

func (p AdvisoryPhase) String() string {
	switch p {
	case AdvisorySending:
		return "sending"
	case AdvisoryLoadingSuggestions:
		return "loading_suggestions"
	default:
		return "idle"
	}
}

// SessionOption configures an AdvisorySession.
type SessionOption func(*AdvisorySession)

// WithSessionClock replaces the clock used to timestamp chat messages.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(a *AdvisorySession) {
		if now != nil {
			a.now = now
		}
	}
}

// AdvisorySession manages one question-answer conversation with the advisor.
//
// The transcript is append-only. A question is appended as soon as it is asked and
// is never removed, even if the advisor fails to answer. Only one question may be
// outstanding at a time, so answers always follow their question.
type AdvisorySession struct {
	id     string
	api    gateway.AdvisorAPI
	errs   *ErrorChannel
	logger *zap.Logger
	now    func() time.Time

	flights singleflight.Group

	mu                 sync.Mutex
	transcript         []model.ChatMessage
	suggestions        []model.AdvisorySuggestion
	suggestionsLoaded  bool
	sending            bool
	loadingSuggestions bool
	lastErr            string
	closed             bool
}

// NewAdvisorySession opens a session against api.
func NewAdvisorySession(api gateway.AdvisorAPI, errs *ErrorChannel, logger *zap.Logger, opts ...SessionOption) *AdvisorySession {
	if errs == nil {
		errs = NewErrorChannel()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &AdvisorySession{
		id:         uuid.New().String(),
		api:        api,
		errs:       errs,
		logger:     logger,
		now:        time.Now,
		transcript: []model.ChatMessage{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("session", a.id))

	return a
}

// ID returns the session identifier.
func (a *AdvisorySession) ID() string {
	return a.id
}

// Ask sends question to the advisor and returns the advisor's reply.
//
// Empty questions are rejected without contacting the advisor and without touching
// the transcript. While a question is outstanding, further calls fail with
// apperrors.ErrQuestionPending. On failure the question stays in the transcript, no
// reply is appended, and the error is kept until dismissed.
func (a *AdvisorySession) Ask(ctx context.Context, question string) (model.ChatMessage, error) {
	if err := validation.ValidateQuestion(question); err != nil {
		return model.ChatMessage{}, err
	}
	question = strings.TrimSpace(question)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return model.ChatMessage{}, apperrors.ErrClosed
	}
	if a.sending {
		a.mu.Unlock()
		return model.ChatMessage{}, apperrors.ErrQuestionPending
	}
	a.sending = true
	a.appendLocked(model.RoleUser, question)
	a.mu.Unlock()

	answer, err := a.api.AskAdvisor(ctx, question)

	a.mu.Lock()
	a.sending = false
	if a.closed {
		a.mu.Unlock()
		return model.ChatMessage{}, apperrors.ErrClosed
	}
	if err != nil {
		a.lastErr = err.Error()
		a.mu.Unlock()

		a.logger.Error("advisor request failed",
			zap.Error(fmt.Errorf("%w: %w", apperrors.ErrFailedToAskAdvisor, err)))
		a.errs.Publish(err.Error())
		return model.ChatMessage{}, err
	}
	reply := a.appendLocked(model.RoleAdvisor, answer)
	a.lastErr = ""
	a.mu.Unlock()

	a.errs.Clear()
	return reply, nil
}

// appendLocked adds a message to the transcript. a.mu must be held.
func (a *AdvisorySession) appendLocked(role model.ChatRole, content string) model.ChatMessage {
	msg := model.ChatMessage{
		ID:        uuid.New().String(),
		Position:  len(a.transcript),
		Role:      role,
		Content:   content,
		CreatedAt: a.now(),
	}
	a.transcript = append(a.transcript, msg)
	return msg
}

// LoadSuggestions fetches the advisor's suggestions once per session. Later calls
// return the stored list. When the advisor fails or has nothing to offer, the
// fallback list is used; this is logged but is not a visible error.
func (a *AdvisorySession) LoadSuggestions(ctx context.Context) []model.AdvisorySuggestion {
	a.mu.Lock()
	if a.suggestionsLoaded || a.closed {
		out := append([]model.AdvisorySuggestion{}, a.suggestions...)
		a.mu.Unlock()
		return out
	}
	a.mu.Unlock()

	// The shared fetch ignores cancellation of the caller that started it.
	ctx = context.WithoutCancel(ctx)
	v, _, _ := a.flights.Do("suggestions", func() (any, error) {
		return a.loadSuggestions(ctx), nil
	})
	return append([]model.AdvisorySuggestion{}, v.([]model.AdvisorySuggestion)...)
}

func (a *AdvisorySession) loadSuggestions(ctx context.Context) []model.AdvisorySuggestion {
	a.mu.Lock()
	a.loadingSuggestions = true
	a.mu.Unlock()

	suggestions, err := a.api.GetSuggestions(ctx)
	switch {
	case err != nil:
		a.logger.Warn("using fallback suggestions",
			zap.Error(fmt.Errorf("%w: %w", apperrors.ErrFailedToLoadSuggestions, err)))
		suggestions = FallbackSuggestions()
	case len(suggestions) == 0:
		a.logger.Debug("advisor returned no suggestions, using fallback")
		suggestions = FallbackSuggestions()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.loadingSuggestions = false
	if !a.closed {
		a.suggestions = suggestions
		a.suggestionsLoaded = true
	}
	return suggestions
}

// Transcript returns a copy of the conversation so far.
func (a *AdvisorySession) Transcript() []model.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.ChatMessage{}, a.transcript...)
}

// Suggestions returns a copy of the loaded suggestions, empty until LoadSuggestions completes.
func (a *AdvisorySession) Suggestions() []model.AdvisorySuggestion {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.AdvisorySuggestion{}, a.suggestions...)
}

// Phase returns the current session state.
func (a *AdvisorySession) Phase() AdvisoryPhase {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.sending:
		return AdvisorySending
	case a.loadingSuggestions:
		return AdvisoryLoadingSuggestions
	default:
		return AdvisoryIdle
	}
}

// Err returns the message of the last failed question, or "".
func (a *AdvisorySession) Err() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// DismissError clears the session error, and the error channel when it still shows it.
func (a *AdvisorySession) DismissError() {
	a.mu.Lock()
	msg := a.lastErr
	a.lastErr = ""
	a.mu.Unlock()

	if msg != "" && a.errs.Current() == msg {
		a.errs.Dismiss()
	}
}

// Close ends the session. An answer arriving afterwards is discarded.
func (a *AdvisorySession) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}
