package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/portfolio-client/internal/analytics"
	"github.com/ndewijer/portfolio-client/internal/apperrors"
	"github.com/ndewijer/portfolio-client/internal/gateway"
	"github.com/ndewijer/portfolio-client/internal/model"
	"github.com/ndewijer/portfolio-client/internal/validation"
)

// LoadFailedMessage is published when holdings cannot be loaded.
const LoadFailedMessage = "Failed to load portfolio data. Please make sure the portfolio service is running."

// Trigger classes. At most one operation per class is in flight; concurrent
// callers of the same class share its result.
const (
	classInitialLoad    = "initial-load"
	classMutationReload = "mutation-reload"
	classSilentPoll     = "silent-poll"
	classManualRefresh  = "manual-refresh"
)

// entity identifies an independently replaced part of the snapshot.
type entity int

const (
	entityHoldings entity = iota // holdings and metrics, always replaced together
	entitySectors
	entityHistory
	entityCount
)

func (e entity) String() string {
	switch e {
	case entityHoldings:
		return "holdings"
	case entitySectors:
		return "sectors"
	default:
		return "history"
	}
}

// Snapshot is a consistent, deep-copied view of the store.
type Snapshot struct {
	Holdings []model.Holding
	Metrics  model.PortfolioMetrics
	Sectors  []model.SectorSlice
	History  []model.HistoryPoint
	Sync     model.SyncState
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Holdings: append([]model.Holding{}, s.Holdings...),
		Metrics:  s.Metrics.Clone(),
		Sectors:  append([]model.SectorSlice{}, s.Sectors...),
		History:  append([]model.HistoryPoint{}, s.History...),
		Sync:     s.Sync,
	}
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithHistoryDays sets the history window requested from the portfolio service.
func WithHistoryDays(days int) StoreOption {
	return func(s *Store) {
		if days > 0 {
			s.historyDays = days
		}
	}
}

// WithClock replaces the wall clock used for date validation and insights.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// AddOption sets optional fields of a new holding.
type AddOption func(*gateway.AddHoldingRequest)

// WithBuyPrice records a manual buy price instead of letting the portfolio service
// look up the historical price for the purchase date.
func WithBuyPrice(price float64) AddOption {
	return func(req *gateway.AddHoldingRequest) {
		req.BuyPrice = &price
	}
}

// Store is the single authoritative in-memory snapshot of the portfolio.
//
// Every refresh either replaces an entity completely or leaves it untouched.
// Responses are applied under a per-entity sequence guard, so a response issued
// before one that has already been applied is discarded. After Close, all late
// responses are discarded.
type Store struct {
	api         gateway.PortfolioAPI
	errs        *ErrorChannel
	logger      *zap.Logger
	historyDays int
	now         func() time.Time

	flights singleflight.Group

	mu        sync.RWMutex
	snap      Snapshot
	inflight  int
	closed    bool
	issued    [entityCount]uint64
	applied   [entityCount]uint64
	listeners []func(Snapshot)
}

// NewStore creates an empty store reading from api and reporting visible failures to errs.
func NewStore(api gateway.PortfolioAPI, errs *ErrorChannel, logger *zap.Logger, opts ...StoreOption) *Store {
	if errs == nil {
		errs = NewErrorChannel()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		api:         api,
		errs:        errs,
		logger:      logger,
		historyDays: gateway.DefaultHistoryDays,
		now:         time.Now,
		snap: Snapshot{
			Holdings: []model.Holding{},
			Sectors:  []model.SectorSlice{},
			History:  []model.HistoryPoint{},
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// LoadInitial fetches holdings with metrics, the sector breakdown and the history
// as three independent operations.
//
// Only a holdings failure is visible: it is published to the error channel and
// returned. Sector and history failures are logged and leave their previous
// values in place.
//
// Concurrent callers share one load. The shared load ignores cancellation of the
// caller that started it, so a cancelled caller cannot fail the others.
func (s *Store) LoadInitial(ctx context.Context) error {
	_, err, _ := s.flights.Do(classInitialLoad, func() (any, error) {
		return nil, s.loadInitial(context.WithoutCancel(ctx))
	})
	return err
}

func (s *Store) loadInitial(ctx context.Context) error {
	if err := s.begin(model.SyncLoading, false); err != nil {
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		return s.reloadPortfolio(ctx)
	})
	g.Go(func() error {
		_ = s.ReloadSectors(ctx)
		return nil
	})
	g.Go(func() error {
		_ = s.ReloadHistory(ctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load portfolio", zap.Error(err))
		s.fail(LoadFailedMessage)
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToLoadPortfolio, err)
	}

	s.succeed()
	return nil
}

// AddHolding validates and creates a holding, then reloads holdings and sectors.
//
// Validation failures are returned as *validation.Error without contacting the
// portfolio service or touching the error channel. A service failure leaves the
// snapshot unchanged, is published verbatim and is returned unmodified.
func (s *Store) AddHolding(ctx context.Context, ticker string, shares float64, purchaseDate string, opts ...AddOption) (gateway.MutationResult, error) {
	req := gateway.AddHoldingRequest{
		Ticker:       ticker,
		Shares:       shares,
		PurchaseDate: purchaseDate,
	}
	for _, opt := range opts {
		opt(&req)
	}

	if err := validation.ValidateAddHolding(&req, s.now()); err != nil {
		return gateway.MutationResult{}, err
	}

	if err := s.begin(model.SyncLoading, true); err != nil {
		return gateway.MutationResult{}, err
	}

	result, err := s.api.AddHolding(ctx, req)
	if err != nil {
		s.logger.Error("add holding rejected",
			zap.String("ticker", req.Ticker),
			zap.Error(fmt.Errorf("%w: %w", apperrors.ErrFailedToAddHolding, err)))
		s.fail(err.Error())
		return gateway.MutationResult{}, err
	}

	s.logger.Info("holding added", zap.String("ticker", req.Ticker))
	s.reloadAfterMutation(ctx)
	return result, nil
}

// DeleteHolding removes a holding, then reloads holdings and sectors.
// Asking the user for confirmation is the caller's responsibility.
func (s *Store) DeleteHolding(ctx context.Context, id string) (gateway.MutationResult, error) {
	if err := validation.ValidateHoldingID(id); err != nil {
		return gateway.MutationResult{}, err
	}

	if err := s.begin(model.SyncLoading, true); err != nil {
		return gateway.MutationResult{}, err
	}

	result, err := s.api.DeleteHolding(ctx, id)
	if err != nil {
		s.logger.Error("delete holding rejected",
			zap.String("id", id),
			zap.Error(fmt.Errorf("%w: %w", apperrors.ErrFailedToDeleteHolding, err)))
		s.fail(err.Error())
		return gateway.MutationResult{}, err
	}

	s.logger.Info("holding deleted", zap.String("id", id))
	s.reloadAfterMutation(ctx)
	return result, nil
}

// reloadAfterMutation refreshes holdings and sectors after a successful mutation and
// ends the operation started by the mutation. History is left alone.
func (s *Store) reloadAfterMutation(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	_, err, _ := s.flights.Do(classMutationReload, func() (any, error) {
		var g errgroup.Group
		g.Go(func() error {
			return s.reloadPortfolio(ctx)
		})
		g.Go(func() error {
			_ = s.ReloadSectors(ctx)
			return nil
		})
		return nil, g.Wait()
	})

	if err != nil {
		s.logger.Error("failed to reload portfolio after change", zap.Error(err))
		s.fail(LoadFailedMessage)
		return
	}
	s.succeed()
}

// RefreshPrices asks the portfolio service for fresh quotes and replaces the holdings.
//
// A silent refresh never changes the sync phase or the error channel; its failure
// is only logged. A non-silent refresh runs in the Refreshing phase and surfaces
// its failure like any primary operation.
//
// Concurrent callers of the same kind share one request, which ignores cancellation
// of the caller that started it.
func (s *Store) RefreshPrices(ctx context.Context, silent bool) error {
	ctx = context.WithoutCancel(ctx)
	if silent {
		_, err, _ := s.flights.Do(classSilentPoll, func() (any, error) {
			return nil, s.refreshSilently(ctx)
		})
		return err
	}

	_, err, _ := s.flights.Do(classManualRefresh, func() (any, error) {
		return nil, s.refresh(ctx)
	})
	return err
}

func (s *Store) refreshSilently(ctx context.Context) error {
	if s.isClosed() {
		return apperrors.ErrClosed
	}

	seq := s.issue(entityHoldings)
	payload, err := s.api.RefreshPrices(ctx)
	if err != nil {
		s.logger.Warn("background price refresh failed", zap.Error(err))
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToRefreshPrices, err)
	}

	s.applyPortfolio(seq, payload.Holdings, payload.Metrics)
	s.logger.Debug("background price refresh applied", zap.Int("holdings", len(payload.Holdings)))
	return nil
}

func (s *Store) refresh(ctx context.Context) error {
	if err := s.begin(model.SyncRefreshing, false); err != nil {
		return err
	}

	seq := s.issue(entityHoldings)
	payload, err := s.api.RefreshPrices(ctx)
	if err != nil {
		s.logger.Error("price refresh failed", zap.Error(err))
		s.fail(err.Error())
		return err
	}

	s.applyPortfolio(seq, payload.Holdings, payload.Metrics)
	s.succeed()
	return nil
}

// ReloadSectors replaces the sector breakdown. Failures are logged and returned but
// never reach the error channel.
func (s *Store) ReloadSectors(ctx context.Context) error {
	if s.isClosed() {
		return apperrors.ErrClosed
	}

	seq := s.issue(entitySectors)
	sectors, err := s.api.GetSectorBreakdown(ctx)
	if err != nil {
		s.logger.Warn("failed to load sector breakdown", zap.Error(err))
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToLoadSectors, err)
	}

	s.commit(entitySectors, seq, func(snap *Snapshot) {
		snap.Sectors = append([]model.SectorSlice{}, sectors...)
	})
	return nil
}

// ReloadHistory replaces the history series for the configured window. Failures are
// logged and returned but never reach the error channel.
func (s *Store) ReloadHistory(ctx context.Context) error {
	if s.isClosed() {
		return apperrors.ErrClosed
	}

	seq := s.issue(entityHistory)
	history, err := s.api.GetPortfolioHistory(ctx, s.historyDays)
	if err != nil {
		s.logger.Warn("failed to load portfolio history", zap.Error(err))
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToLoadHistory, err)
	}

	s.commit(entityHistory, seq, func(snap *Snapshot) {
		snap.History = append([]model.HistoryPoint{}, history...)
	})
	return nil
}

// reloadPortfolio fetches the holdings with their basic metrics and then the extended
// metrics, one after the other. Nothing is applied unless both succeed.
func (s *Store) reloadPortfolio(ctx context.Context) error {
	seq := s.issue(entityHoldings)

	payload, err := s.api.GetPortfolio(ctx)
	if err != nil {
		return err
	}

	extended, err := s.api.GetPortfolioMetrics(ctx)
	if err != nil {
		return err
	}

	s.applyPortfolio(seq, payload.Holdings, payload.Metrics, extended)
	return nil
}

// applyPortfolio replaces holdings and metrics together. Metrics are recomputed from
// the new holdings and the service's partial metrics are overlaid in order; nothing
// of the previous metrics survives.
func (s *Store) applyPortfolio(seq uint64, holdings []model.Holding, patches ...model.MetricsPatch) {
	metrics := analytics.CalculatePortfolio(holdings)
	for _, p := range patches {
		metrics = metrics.Merge(p)
	}

	s.commit(entityHoldings, seq, func(snap *Snapshot) {
		snap.Holdings = append([]model.Holding{}, holdings...)
		snap.Metrics = metrics
	})
}

// Snapshot returns a deep copy of the whole store state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

// Holdings returns a copy of the current holdings.
func (s *Store) Holdings() []model.Holding {
	return s.Snapshot().Holdings
}

// Metrics returns the current portfolio metrics.
func (s *Store) Metrics() model.PortfolioMetrics {
	return s.Snapshot().Metrics
}

// Sectors returns a copy of the current sector breakdown.
func (s *Store) Sectors() []model.SectorSlice {
	return s.Snapshot().Sectors
}

// History returns a copy of the current history series.
func (s *Store) History() []model.HistoryPoint {
	return s.Snapshot().History
}

// SyncState returns the current synchronization state.
func (s *Store) SyncState() model.SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Sync
}

// Insights computes the derived analytics view of the current holdings as of now.
func (s *Store) Insights(now time.Time) analytics.Insights {
	return analytics.BuildInsights(s.Holdings(), now)
}

// Subscribe registers fn to receive a snapshot after every applied change.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Close tears the store down. Requests already in flight still complete, but their
// results are discarded, and new operations fail with apperrors.ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = nil
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) issue(e entity) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[e]++
	return s.issued[e]
}

// commit applies fn to the snapshot unless the store is closed or a response issued
// later for the same entity has already been applied.
func (s *Store) commit(e entity, seq uint64, fn func(*Snapshot)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if seq <= s.applied[e] {
		s.mu.Unlock()
		s.logger.Debug("discarding stale response",
			zap.Stringer("entity", e),
			zap.Uint64("seq", seq))
		return false
	}
	s.applied[e] = seq
	fn(&s.snap)
	s.notifyLocked()
	return true
}

// begin enters phase for a non-silent operation. Exclusive operations are rejected
// while any other non-silent operation is running.
func (s *Store) begin(phase model.SyncPhase, exclusive bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperrors.ErrClosed
	}
	if exclusive && s.snap.Sync.Busy() {
		s.mu.Unlock()
		return apperrors.ErrSyncInProgress
	}
	s.inflight++
	s.snap.Sync.Phase = phase
	s.notifyLocked()
	return nil
}

// succeed ends a non-silent operation and clears any visible error.
func (s *Store) succeed() {
	s.end("")
	if !s.isClosed() {
		s.errs.Clear()
	}
}

// fail ends a non-silent operation and publishes msg.
func (s *Store) fail(msg string) {
	s.end(msg)
	if !s.isClosed() {
		s.errs.Publish(msg)
	}
}

func (s *Store) end(lastErr string) {
	s.mu.Lock()
	if s.inflight > 0 {
		s.inflight--
	}
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.inflight == 0 {
		s.snap.Sync.Phase = model.SyncIdle
	}
	s.snap.Sync.LastError = lastErr
	s.notifyLocked()
}

// notifyLocked releases s.mu and then calls the listeners with a fresh snapshot.
func (s *Store) notifyLocked() {
	if len(s.listeners) == 0 {
		s.mu.Unlock()
		return
	}
	snap := s.snap.clone()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
