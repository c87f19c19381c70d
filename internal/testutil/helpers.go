package testutil

import (
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ndewijer/portfolio-client/internal/service"
)

// FixedNow is the reference "today" used by tests that depend on the date.
var FixedNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

// FixedClock returns a clock that always reports FixedNow.
func FixedClock() func() time.Time {
	return func() time.Time { return FixedNow }
}

// NewTestStore creates a store over mock with a no-op logger and the fixed clock.
// The store is closed when the test ends.
func NewTestStore(t *testing.T, mock *MockGateway, opts ...service.StoreOption) (*service.Store, *service.ErrorChannel) {
	t.Helper()

	errs := service.NewErrorChannel()
	opts = append([]service.StoreOption{service.WithClock(FixedClock())}, opts...)
	store := service.NewStore(mock, errs, zap.NewNop(), opts...)
	t.Cleanup(store.Close)

	return store, errs
}

// NewTestSession creates an advisory session over mock. The session is closed when
// the test ends.
func NewTestSession(t *testing.T, mock *MockGateway) (*service.AdvisorySession, *service.ErrorChannel) {
	t.Helper()

	errs := service.NewErrorChannel()
	session := service.NewAdvisorySession(mock, errs, zap.NewNop(), service.WithSessionClock(FixedClock()))
	t.Cleanup(session.Close)

	return session, errs
}

// MakeTicker generates a unique uppercase ticker symbol for testing.
//
// Example usage:
//
//	ticker := testutil.MakeTicker("AAPL")
//	// Returns: "AAPL1A2B"
func MakeTicker(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
