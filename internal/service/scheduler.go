package service

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RefreshPeriod is the interval between background price refreshes.
const RefreshPeriod = 60 * time.Second

// Ticker calls a function at a fixed period until stopped.
type Ticker interface {
	Start(period time.Duration, tick func())
	Stop()
}

// CronTicker is the production Ticker backed by a robfig/cron constant-delay schedule.
type CronTicker struct {
	mu   sync.Mutex
	cron *cron.Cron
}

// NewCronTicker creates a stopped ticker.
func NewCronTicker() *CronTicker {
	return &CronTicker{}
}

// Start schedules tick every period. Calling Start on a running ticker replaces the
// previous schedule.
func (t *CronTicker) Start(period time.Duration, tick func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cron != nil {
		t.cron.Stop()
	}
	c := cron.New()
	c.Schedule(cron.Every(period), cron.FuncJob(tick))
	c.Start()
	t.cron = c
}

// Stop stops scheduling new ticks. A tick already running completes on its own.
func (t *CronTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cron != nil {
		t.cron.Stop()
		t.cron = nil
	}
}

// Scheduler drives the periodic silent refresh of a Store.
//
// Every tick runs a silent price refresh and, when it succeeds, silent reloads of
// the sector breakdown and the history. Failed ticks are not retried; the next
// tick or an explicit RefreshNow is the retry.
type Scheduler struct {
	store  *Store
	ticker Ticker
	logger *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a stopped scheduler for store. A nil ticker uses a CronTicker.
func NewScheduler(store *Store, ticker Ticker, logger *zap.Logger) *Scheduler {
	if ticker == nil {
		ticker = NewCronTicker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:  store,
		ticker: ticker,
		logger: logger,
	}
}

// Start begins periodic refreshing. Calling Start while running does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.ticker.Start(RefreshPeriod, s.tick)
	s.logger.Info("background refresh started", zap.Duration("period", RefreshPeriod))
}

// Stop ends periodic refreshing. Requests already dispatched still complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.ticker.Stop()
	s.logger.Info("background refresh stopped")
}

// Running reports whether the scheduler is started.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RefreshNow runs a visible price refresh followed by a sector reload.
func (s *Scheduler) RefreshNow(ctx context.Context) error {
	if err := s.store.RefreshPrices(ctx, false); err != nil {
		return err
	}
	_ = s.store.ReloadSectors(ctx)
	return nil
}

func (s *Scheduler) tick() {
	if !s.Running() {
		return
	}

	ctx := context.Background()
	if err := s.store.RefreshPrices(ctx, true); err != nil {
		s.logger.Debug("skipping reload cascade after failed refresh", zap.Error(err))
		return
	}

	var g errgroup.Group
	g.Go(func() error { return s.store.ReloadSectors(ctx) })
	g.Go(func() error { return s.store.ReloadHistory(ctx) })
	_ = g.Wait()
}
