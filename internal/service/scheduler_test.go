package service_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ndewijer/portfolio-client/internal/service"
	"github.com/ndewijer/portfolio-client/internal/testutil"
)

func newTestScheduler(t *testing.T, mock *testutil.MockGateway) (*service.Scheduler, *service.Store, *service.ErrorChannel, *testutil.ManualTicker) {
	t.Helper()
	store, errs := testutil.NewTestStore(t, mock)
	ticker := testutil.NewManualTicker()
	sched := service.NewScheduler(store, ticker, zap.NewNop())
	t.Cleanup(sched.Stop)
	return sched, store, errs, ticker
}

// TestScheduler_Lifecycle tests starting and stopping the background refresh.
//
// WHY: Starting twice must not double the request rate, and a stopped scheduler
// must not keep polling the service.
func TestScheduler_Lifecycle(t *testing.T) {
	t.Run("start is idempotent", func(t *testing.T) {
		sched, _, _, ticker := newTestScheduler(t, seededMock())

		sched.Start()
		sched.Start()

		assert.True(t, sched.Running())
		assert.True(t, ticker.Running())
		assert.Equal(t, 1, ticker.Starts())
	})

	t.Run("stop halts ticks", func(t *testing.T) {
		mock := seededMock()
		sched, _, _, ticker := newTestScheduler(t, mock)
		sched.Start()

		sched.Stop()
		sched.Stop()
		fired := ticker.Advance(5 * service.RefreshPeriod)

		assert.False(t, sched.Running())
		assert.Equal(t, 0, fired)
		assert.Equal(t, 0, mock.CallCount(testutil.OpRefreshPrices))
	})

	t.Run("restart after stop", func(t *testing.T) {
		sched, _, _, ticker := newTestScheduler(t, seededMock())

		sched.Start()
		sched.Stop()
		sched.Start()

		assert.True(t, sched.Running())
		assert.Equal(t, 2, ticker.Starts())
	})
}

// TestScheduler_Tick tests what each background tick does.
//
// WHY: A tick refreshes prices and, only when that works, reloads sectors and
// history. None of it may surface an error to the user.
func TestScheduler_Tick(t *testing.T) {
	t.Run("no tick before the period elapses", func(t *testing.T) {
		mock := seededMock()
		sched, _, _, ticker := newTestScheduler(t, mock)
		sched.Start()

		fired := ticker.Advance(service.RefreshPeriod - 1)

		assert.Equal(t, 0, fired)
		assert.Equal(t, 0, mock.CallCount(testutil.OpRefreshPrices))
	})

	t.Run("refreshes prices then reloads sectors and history", func(t *testing.T) {
		// Setup
		mock := seededMock().WithRefreshedPrice("AAPL", 175)
		sched, store, _, ticker := newTestScheduler(t, mock)
		sched.Start()

		// Execute
		fired := ticker.Advance(service.RefreshPeriod)

		// Assert
		assert.Equal(t, 1, fired)
		assert.Equal(t, 1, mock.CallCount(testutil.OpRefreshPrices))
		assert.Equal(t, 1, mock.CallCount(testutil.OpGetSectorBreakdown))
		assert.Equal(t, 1, mock.CallCount(testutil.OpGetPortfolioHistory))
		require.Len(t, store.Holdings(), 2)
		assert.Equal(t, 175.0, store.Holdings()[0].CurrentPrice)
		assert.Len(t, store.Sectors(), 2)
		assert.Len(t, store.History(), 3)
	})

	t.Run("fires once per elapsed period", func(t *testing.T) {
		mock := seededMock()
		sched, _, _, ticker := newTestScheduler(t, mock)
		sched.Start()

		fired := ticker.Advance(3*service.RefreshPeriod + service.RefreshPeriod/2)

		assert.Equal(t, 3, fired)
		assert.Equal(t, 3, mock.CallCount(testutil.OpRefreshPrices))
	})

	t.Run("failed refresh skips the reloads and stays silent", func(t *testing.T) {
		// Setup
		mock := seededMock().WithError(testutil.OpRefreshPrices, errBackendDown)
		sched, store, errs, ticker := newTestScheduler(t, mock)
		require.NoError(t, store.LoadInitial(context.Background()))
		sectorCalls := mock.CallCount(testutil.OpGetSectorBreakdown)
		sched.Start()

		// Execute
		ticker.Advance(service.RefreshPeriod)

		// Assert
		assert.Equal(t, 1, mock.CallCount(testutil.OpRefreshPrices))
		assert.Equal(t, sectorCalls, mock.CallCount(testutil.OpGetSectorBreakdown))
		assert.Empty(t, errs.Current())
		assert.Empty(t, store.SyncState().LastError)
	})

	t.Run("next tick retries after a failure", func(t *testing.T) {
		mock := seededMock().WithError(testutil.OpRefreshPrices, errBackendDown)
		sched, _, _, ticker := newTestScheduler(t, mock)
		sched.Start()

		ticker.Advance(service.RefreshPeriod)
		mock.WithError(testutil.OpRefreshPrices, nil)
		ticker.Advance(service.RefreshPeriod)

		assert.Equal(t, 2, mock.CallCount(testutil.OpRefreshPrices))
		assert.Equal(t, 1, mock.CallCount(testutil.OpGetSectorBreakdown))
	})

	t.Run("sector failure during a tick stays silent", func(t *testing.T) {
		mock := seededMock().WithError(testutil.OpGetSectorBreakdown, errBackendDown)
		sched, _, errs, ticker := newTestScheduler(t, mock)
		sched.Start()

		ticker.Advance(service.RefreshPeriod)

		assert.Equal(t, 1, mock.CallCount(testutil.OpGetPortfolioHistory))
		assert.Empty(t, errs.Current())
	})
}

// TestScheduler_RefreshNow tests the user-requested refresh.
//
// WHY: Unlike background ticks, a manual refresh is something the user is waiting
// on, so its failure must be shown.
func TestScheduler_RefreshNow(t *testing.T) {
	t.Run("refreshes prices and sectors", func(t *testing.T) {
		mock := seededMock().WithRefreshedPrice("JNJ", 170)
		sched, store, _, _ := newTestScheduler(t, mock)

		err := sched.RefreshNow(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 170.0, store.Holdings()[1].CurrentPrice)
		assert.Equal(t, 1, mock.CallCount(testutil.OpGetSectorBreakdown))
		assert.Equal(t, 0, mock.CallCount(testutil.OpGetPortfolioHistory))
	})

	t.Run("failure is published and skips sectors", func(t *testing.T) {
		mock := seededMock().WithError(testutil.OpRefreshPrices, errBackendDown)
		sched, _, errs, _ := newTestScheduler(t, mock)

		err := sched.RefreshNow(context.Background())

		assert.Same(t, errBackendDown, err)
		assert.Equal(t, errBackendDown.Message, errs.Current())
		assert.Equal(t, 0, mock.CallCount(testutil.OpGetSectorBreakdown))
	})

	t.Run("works while the scheduler is stopped", func(t *testing.T) {
		mock := seededMock()
		sched, _, _, _ := newTestScheduler(t, mock)

		require.NoError(t, sched.RefreshNow(context.Background()))
		assert.False(t, sched.Running())
	})
}

// TestCronTicker tests the production ticker on a real clock.
//
// WHY: The scheduler tests drive a manual ticker, so this is the only check that the
// cron schedule fires and that Stop really ends it.
func TestCronTicker(t *testing.T) {
	// Setup
	var ticks atomic.Int32
	ticker := service.NewCronTicker()
	t.Cleanup(ticker.Stop)

	// Execute
	ticker.Start(time.Second, func() { ticks.Add(1) })

	// Assert
	require.Eventually(t, func() bool { return ticks.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)

	ticker.Stop()
	time.Sleep(50 * time.Millisecond)
	stopped := ticks.Load()

	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, stopped, ticks.Load(), "no ticks after Stop")
}
