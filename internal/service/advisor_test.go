package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ndewijer/portfolio-client/internal/apperrors"
	"github.com/ndewijer/portfolio-client/internal/gateway"
	"github.com/ndewijer/portfolio-client/internal/model"
	"github.com/ndewijer/portfolio-client/internal/service"
	"github.com/ndewijer/portfolio-client/internal/testutil"
)

// TestAdvisorySession_Ask tests the question-answer exchange.
//
// WHY: The transcript is the user's record of the conversation. Questions must never
// disappear, answers must follow their question, and empty input must not cost a
// request.
func TestAdvisorySession_Ask(t *testing.T) {
	t.Run("appends question and answer", func(t *testing.T) {
		// Setup
		mock := testutil.NewMockGateway().WithAnswer("Consider adding bonds.")
		session, errs := testutil.NewTestSession(t, mock)
		errs.Publish("earlier failure")

		// Execute
		reply, err := session.Ask(context.Background(), "  Should I diversify?  ")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdvisor, reply.Role)
		assert.Equal(t, "Consider adding bonds.", reply.Content)
		assert.Equal(t, 1, reply.Position)
		assert.Equal(t, testutil.FixedNow, reply.CreatedAt)
		assert.Equal(t, "Should I diversify?", mock.LastQuestion())

		transcript := session.Transcript()
		require.Len(t, transcript, 2)
		assert.Equal(t, model.RoleUser, transcript[0].Role)
		assert.Equal(t, "Should I diversify?", transcript[0].Content)
		assert.Equal(t, 0, transcript[0].Position)
		assert.NotEqual(t, transcript[0].ID, transcript[1].ID)
		assert.Empty(t, errs.Current())
		assert.Equal(t, service.AdvisoryIdle, session.Phase())
	})

	t.Run("empty questions are ignored", func(t *testing.T) {
		mock := testutil.NewMockGateway()
		session, _ := testutil.NewTestSession(t, mock)

		for _, q := range []string{"", "   ", "\n\t"} {
			_, err := session.Ask(context.Background(), q)
			assert.ErrorIs(t, err, apperrors.ErrEmptyQuestion)
		}

		assert.Empty(t, session.Transcript())
		assert.Equal(t, 0, mock.CallCount(testutil.OpAskAdvisor))
	})

	t.Run("failure keeps the question and adds no answer", func(t *testing.T) {
		// Setup
		apiErr := &gateway.APIError{StatusCode: 500, Message: "Advisor unavailable"}
		mock := testutil.NewMockGateway().WithError(testutil.OpAskAdvisor, apiErr)
		session, errs := testutil.NewTestSession(t, mock)

		// Execute
		_, err := session.Ask(context.Background(), "Is my portfolio risky?")

		// Assert
		assert.Same(t, apiErr, err)
		transcript := session.Transcript()
		require.Len(t, transcript, 1)
		assert.Equal(t, model.RoleUser, transcript[0].Role)
		assert.Equal(t, "Advisor unavailable", session.Err())
		assert.Equal(t, "Advisor unavailable", errs.Current())
		assert.Equal(t, service.AdvisoryIdle, session.Phase())
	})

	t.Run("failure is logged as a failed question", func(t *testing.T) {
		mock := testutil.NewMockGateway().WithError(testutil.OpAskAdvisor, errBackendDown)
		core, logs := observer.New(zap.ErrorLevel)
		session := service.NewAdvisorySession(mock, nil, zap.New(core))
		t.Cleanup(session.Close)

		_, err := session.Ask(context.Background(), "Is my portfolio risky?")

		assert.Same(t, errBackendDown, err)
		logged := loggedError(t, logs, "advisor request failed")
		assert.ErrorIs(t, logged, apperrors.ErrFailedToAskAdvisor)
		assert.ErrorIs(t, logged, errBackendDown)
	})

	t.Run("a later answer clears the error", func(t *testing.T) {
		mock := testutil.NewMockGateway().WithError(testutil.OpAskAdvisor, errors.New("timeout"))
		session, errs := testutil.NewTestSession(t, mock)
		_, _ = session.Ask(context.Background(), "First?")

		mock.WithError(testutil.OpAskAdvisor, nil)
		_, err := session.Ask(context.Background(), "Second?")

		require.NoError(t, err)
		assert.Empty(t, session.Err())
		assert.Empty(t, errs.Current())
		assert.Len(t, session.Transcript(), 3)
	})

	t.Run("second question is rejected while one is pending", func(t *testing.T) {
		// Setup
		mock := testutil.NewMockGateway()
		session, _ := testutil.NewTestSession(t, mock)
		release := mock.Block(testutil.OpAskAdvisor)
		defer release()

		done := make(chan error, 1)
		go func() {
			_, err := session.Ask(context.Background(), "First?")
			done <- err
		}()
		require.Eventually(t, func() bool { return session.Phase() == service.AdvisorySending }, waitFor, pollGap)

		// Execute
		_, err := session.Ask(context.Background(), "Second?")

		// Assert
		assert.ErrorIs(t, err, apperrors.ErrQuestionPending)
		assert.Len(t, session.Transcript(), 1)

		release()
		require.NoError(t, <-done)
		transcript := session.Transcript()
		require.Len(t, transcript, 2)
		assert.Equal(t, "First?", transcript[0].Content)
		assert.Equal(t, model.RoleAdvisor, transcript[1].Role)
	})

	t.Run("answer arriving after close is discarded", func(t *testing.T) {
		mock := testutil.NewMockGateway()
		session, errs := testutil.NewTestSession(t, mock)
		release := mock.Block(testutil.OpAskAdvisor)

		done := make(chan error, 1)
		go func() {
			_, err := session.Ask(context.Background(), "Anyone there?")
			done <- err
		}()
		require.Eventually(t, func() bool { return mock.CallCount(testutil.OpAskAdvisor) == 1 }, waitFor, pollGap)

		session.Close()
		release()

		assert.ErrorIs(t, <-done, apperrors.ErrClosed)
		assert.Len(t, session.Transcript(), 1)
		assert.Empty(t, errs.Current())
	})
}

// TestAdvisorySession_DismissError tests clearing a failed question's error.
func TestAdvisorySession_DismissError(t *testing.T) {
	mock := testutil.NewMockGateway().WithError(testutil.OpAskAdvisor, errors.New("Advisor unavailable"))
	session, errs := testutil.NewTestSession(t, mock)
	_, _ = session.Ask(context.Background(), "Hello?")

	session.DismissError()

	assert.Empty(t, session.Err())
	assert.Empty(t, errs.Current())
	assert.Len(t, session.Transcript(), 1)
}

// TestAdvisorySession_LoadSuggestions tests loading the advisor's suggestions.
//
// WHY: Suggestions are a convenience; when the advisor has none or fails, the user
// should still see something useful and no error.
func TestAdvisorySession_LoadSuggestions(t *testing.T) {
	remote := []model.AdvisorySuggestion{
		{Title: "Rebalance", Description: "Tech is heavy", Recommendation: "Trim AAPL."},
	}

	t.Run("uses the advisor's suggestions", func(t *testing.T) {
		mock := testutil.NewMockGateway().WithSuggestions(remote...)
		session, _ := testutil.NewTestSession(t, mock)

		got := session.LoadSuggestions(context.Background())

		assert.Equal(t, remote, got)
		assert.Equal(t, remote, session.Suggestions())
	})

	t.Run("loads once per session", func(t *testing.T) {
		mock := testutil.NewMockGateway().WithSuggestions(remote...)
		session, _ := testutil.NewTestSession(t, mock)

		session.LoadSuggestions(context.Background())
		session.LoadSuggestions(context.Background())

		assert.Equal(t, 1, mock.CallCount(testutil.OpGetSuggestions))
	})

	t.Run("failure falls back silently", func(t *testing.T) {
		mock := testutil.NewMockGateway().WithError(testutil.OpGetSuggestions, errBackendDown)
		session, errs := testutil.NewTestSession(t, mock)

		got := session.LoadSuggestions(context.Background())

		assert.Equal(t, service.FallbackSuggestions(), got)
		require.Len(t, got, 3)
		assert.Equal(t, "Over-Concentration in Tech Sector", got[0].Title)
		assert.Empty(t, errs.Current())
	})

	t.Run("fallback is logged with the cause", func(t *testing.T) {
		mock := testutil.NewMockGateway().WithError(testutil.OpGetSuggestions, errBackendDown)
		core, logs := observer.New(zap.WarnLevel)
		session := service.NewAdvisorySession(mock, nil, zap.New(core))
		t.Cleanup(session.Close)

		session.LoadSuggestions(context.Background())

		logged := loggedError(t, logs, "using fallback suggestions")
		assert.ErrorIs(t, logged, apperrors.ErrFailedToLoadSuggestions)
		assert.ErrorIs(t, logged, errBackendDown)
	})

	t.Run("cancelled caller still gets the advisor's list", func(t *testing.T) {
		// Setup
		mock := testutil.NewMockGateway().WithSuggestions(remote...)
		session, _ := testutil.NewTestSession(t, mock)
		release := mock.Block(testutil.OpGetSuggestions)
		defer release()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan []model.AdvisorySuggestion, 1)
		go func() { done <- session.LoadSuggestions(ctx) }()
		require.Eventually(t, func() bool { return mock.CallCount(testutil.OpGetSuggestions) == 1 }, waitFor, pollGap)

		// Execute
		cancel()
		release()

		// Assert
		assert.Equal(t, remote, <-done)
		assert.Equal(t, remote, session.Suggestions())
	})

	t.Run("empty list falls back", func(t *testing.T) {
		mock := testutil.NewMockGateway()
		session, _ := testutil.NewTestSession(t, mock)

		got := session.LoadSuggestions(context.Background())

		assert.Equal(t, service.FallbackSuggestions(), got)
	})

	t.Run("concurrent callers share one request", func(t *testing.T) {
		mock := testutil.NewMockGateway().WithSuggestions(remote...)
		session, _ := testutil.NewTestSession(t, mock)

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.Equal(t, remote, session.LoadSuggestions(context.Background()))
			}()
		}
		wg.Wait()

		assert.Equal(t, remote, session.Suggestions())
	})

	t.Run("returned list is a copy", func(t *testing.T) {
		mock := testutil.NewMockGateway().WithSuggestions(remote...)
		session, _ := testutil.NewTestSession(t, mock)

		got := session.LoadSuggestions(context.Background())
		got[0].Title = "Changed"

		assert.Equal(t, "Rebalance", session.Suggestions()[0].Title)
	})
}

func TestAdvisorySession_ID(t *testing.T) {
	a, _ := testutil.NewTestSession(t, testutil.NewMockGateway())
	b, _ := testutil.NewTestSession(t, testutil.NewMockGateway())

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
