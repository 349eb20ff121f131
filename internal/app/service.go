// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/taixiu/internal/adapters/poller"
	"github.com/okian/taixiu/internal/adapters/provider"
	"github.com/okian/taixiu/internal/adapters/repository"
	"github.com/okian/taixiu/internal/domain/dedupe"
	"github.com/okian/taixiu/internal/domain/ensemble"
	"github.com/okian/taixiu/internal/domain/history"
	"github.com/okian/taixiu/internal/domain/types"
	"github.com/okian/taixiu/pkg/logger"
	"github.com/okian/taixiu/pkg/metrics"
)

const (
	defaultCacheTTL        = 5 * time.Second
	pollerShutdownTimeout  = 5 * time.Second
	defaultHistoryPageSize = 50
	seenSessionsLimit      = 10000
)

// snapshot is the last normalized history and when it was fetched.
type snapshot struct {
	history   history.History
	fetchedAt time.Time
}

// Service implements the API dependencies for the prediction service.
type Service struct {
	mu sync.RWMutex

	// Core components
	provider  provider.Provider
	predictor *ensemble.Predictor
	ledger    repository.Store
	poller    poller.Poller

	// Configuration
	ledgerDriver    string
	ledgerDSN       string
	cacheTTL        time.Duration
	refreshInterval time.Duration
	now             func() time.Time

	// History cache; fetchMu lets one caller refresh at a time.
	fetchMu     sync.Mutex
	snapMu      sync.RWMutex
	snap        *snapshot
	lastRefresh time.Time
	seen        dedupe.Deduper

	// State
	started     bool
	ownsLedger  bool
	startedAt   time.Time
	cancel      context.CancelFunc
	predictions atomic.Int64

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cacheTTL:     defaultCacheTTL,
		ledgerDriver: "memory",
		now:          time.Now,
		seen:         dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(seenSessionsLimit)),
		logger:       nil, // replaced in Start when unset
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the ledger and starts background polling when configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.provider == nil {
		return ErrNoProvider
	}
	if s.predictor == nil {
		s.predictor = ensemble.New()
	}

	s.logger.Info(ctx, "starting prediction service...")

	if s.ledger == nil {
		ledger, err := repository.Open(ctx, s.ledgerDriver, s.ledgerDSN)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		s.ledger = ledger
		s.ownsLedger = true
		s.logger.Info(ctx, "ledger opened", logger.String("driver", s.ledgerDriver))
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	if s.refreshInterval > 0 {
		s.poller = poller.New(refreshFunc(s.Refresh),
			poller.WithName("history"),
			poller.WithInterval(s.refreshInterval),
			poller.WithImmediate(true),
			poller.WithLogger(s.logger.Named("poller")),
		)
		go s.poller.Run(runCtx)
	}

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "prediction service started",
		logger.Any("models", s.predictor.Models()),
		logger.Int("supplementaryVoters", s.predictor.Voters()),
		logger.Duration("cacheTTL", s.cacheTTL),
		logger.Duration("refreshInterval", s.refreshInterval),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping prediction service...")

	if s.poller != nil {
		sctx, cancel := context.WithTimeout(ctx, pollerShutdownTimeout)
		if err := s.poller.Shutdown(sctx); err != nil {
			s.logger.Warn(ctx, "poller shutdown", logger.Error(err))
		}
		cancel()
		s.poller = nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	if s.ownsLedger && s.ledger != nil {
		_ = s.ledger.Close()
		s.ledger = nil
		s.ownsLedger = false
	}

	s.started = false
	s.logger.Info(ctx, "prediction service stopped")
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// openLedger returns the ledger while the service is started. Stop may
// close and clear it concurrently, so callers must not read s.ledger directly.
func (s *Service) openLedger() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.ledger == nil {
		return nil, ErrNotStarted
	}
	return s.ledger, nil
}

// Refresh fetches the upstream history, replaces the cached snapshot and
// settles ledger entries whose sessions have completed.
func (s *Service) Refresh(ctx context.Context) error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Service) refreshLocked(ctx context.Context) error {
	sessions, err := s.provider.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	if ledger, err := s.openLedger(); err == nil {
		if n, err := ledger.Settle(ctx, sessions); err != nil {
			s.logger.Warn(ctx, "ledger settle failed", logger.Error(err))
		} else if n > 0 {
			s.logger.Debug(ctx, "settled predictions", logger.Int("count", n))
		}
	}

	h, err := history.Normalize(sessions)
	if err != nil {
		metrics.RecordEmptyHistory()
		return err
	}

	arrived := 0
	for _, sess := range h.Sessions {
		if !s.seen.SeenAndRecord(sess.ID) {
			arrived++
		}
	}
	if arrived > 0 {
		s.logger.Debug(ctx, "new sessions", logger.Int("count", arrived), logger.Int64("latest", h.Latest().ID))
	}

	now := s.now()
	s.snapMu.Lock()
	s.snap = &snapshot{history: h, fetchedAt: now}
	s.lastRefresh = now
	s.snapMu.Unlock()

	metrics.RecordHistoryRefresh()
	metrics.UpdateHistorySessions(h.Len())
	return nil
}

// current returns a snapshot no older than the cache TTL. When a refresh
// fails but an earlier snapshot exists, the stale snapshot is served.
func (s *Service) current(ctx context.Context) (history.History, error) {
	if h, ok := s.fresh(); ok {
		return h, nil
	}

	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	if h, ok := s.fresh(); ok {
		return h, nil
	}

	err := s.refreshLocked(ctx)
	s.snapMu.RLock()
	snap := s.snap
	s.snapMu.RUnlock()
	if err == nil {
		return snap.history, nil
	}

	if stale := snap; stale != nil && errors.Is(err, ErrUpstream) {
		s.logger.Warn(ctx, "serving stale history", logger.Error(err),
			logger.Duration("age", s.now().Sub(stale.fetchedAt)))
		return stale.history, nil
	}
	return history.History{}, err
}

func (s *Service) fresh() (history.History, bool) {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if s.snap == nil || s.now().Sub(s.snap.fetchedAt) >= s.cacheTTL {
		return history.History{}, false
	}
	return s.snap.history, true
}

// Predict runs the ensemble on the current history and records the
// prediction for the next session.
func (s *Service) Predict(ctx context.Context) (types.PredictionResponse, error) {
	if !s.isStarted() {
		return types.PredictionResponse{}, ErrNotStarted
	}

	start := time.Now()
	defer func() {
		metrics.RecordPredictionLatency(float64(time.Since(start).Milliseconds()))
	}()

	h, err := s.current(ctx)
	if err != nil {
		return types.PredictionResponse{}, err
	}

	result := s.predictor.PredictHistory(h)
	resp := types.NewPredictionResponse(uuid.NewString(), h, result, s.now())

	metrics.RecordPrediction(string(result.Prediction), result.Confidence)
	for _, v := range result.Votes {
		metrics.RecordModelVote(v.Model, v.Prediction.String())
	}
	s.predictions.Add(1)

	recorded := false
	if ledger, err := s.openLedger(); err != nil {
		s.logger.Warn(ctx, "ledger closed, prediction not recorded", logger.Int64("nextSession", resp.NextSession))
	} else {
		recorded, err = ledger.Record(ctx, repository.Entry{
			PredictionID: resp.PredictionID,
			SessionID:    resp.NextSession,
			Prediction:   result.Prediction,
			Confidence:   result.Confidence,
			CreatedAt:    resp.GeneratedAt,
		})
		if err != nil {
			s.logger.Warn(ctx, "ledger record failed", logger.Error(err))
		}
	}

	s.logger.Debug(ctx, "prediction",
		logger.Int64("nextSession", resp.NextSession),
		logger.String("prediction", resp.Prediction),
		logger.String("confidence", resp.ConfidenceText),
		logger.Bool("recorded", recorded),
	)
	return resp, nil
}

// History returns up to limit ledger entries, newest first. A non-positive
// limit falls back to the default page size.
func (s *Service) History(ctx context.Context, limit int) (types.HistoryResponse, error) {
	ledger, err := s.openLedger()
	if err != nil {
		return types.HistoryResponse{}, err
	}
	if limit <= 0 {
		limit = defaultHistoryPageSize
	}

	entries, err := ledger.Recent(ctx, limit)
	if err != nil {
		return types.HistoryResponse{}, err
	}

	out := types.HistoryResponse{Entries: make([]types.LedgerEntry, len(entries)), Count: len(entries)}
	for i, e := range entries {
		le := types.LedgerEntry{
			PredictionID: e.PredictionID,
			Session:      e.SessionID,
			Prediction:   e.Prediction.Label(),
			Confidence:   e.Confidence,
			CreatedAt:    e.CreatedAt,
		}
		if e.Settled() {
			hit := e.Hit()
			le.Actual = e.Actual.Label()
			le.Correct = &hit
		}
		out.Entries[i] = le
	}
	return out, nil
}

// Accuracy summarises how past predictions fared.
func (s *Service) Accuracy(ctx context.Context) (types.AccuracyResponse, error) {
	ledger, err := s.openLedger()
	if err != nil {
		return types.AccuracyResponse{}, err
	}

	a, err := ledger.Accuracy(ctx)
	if err != nil {
		return types.AccuracyResponse{}, err
	}
	return types.AccuracyResponse{
		Recorded:     a.Recorded,
		Settled:      a.Settled,
		Pending:      a.Pending(),
		Correct:      a.Correct,
		AccuracyPct:  a.AccuracyPct,
		AccuracyText: fmt.Sprintf("%.2f%%", a.AccuracyPct),
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"cacheTTLMs":        s.cacheTTL.Milliseconds(),
		"refreshIntervalMs": s.refreshInterval.Milliseconds(),
		"predictions":       s.predictions.Load(),
	}

	if s.predictor != nil {
		stats["models"] = s.predictor.Models()
		stats["supplementaryVoters"] = s.predictor.Voters()
	}

	s.snapMu.RLock()
	if s.snap != nil {
		stats["historySessions"] = s.snap.history.Len()
		stats["latestSession"] = s.snap.history.Latest().ID
		stats["lastRefresh"] = s.lastRefresh.UTC().Format(time.RFC3339)
	}
	stats["sessionsSeen"] = s.seen.Size()
	s.snapMu.RUnlock()

	if s.started {
		stats["uptimeSeconds"] = int64(s.now().Sub(s.startedAt).Seconds())
		if a, err := s.ledger.Accuracy(context.Background()); err == nil {
			stats["ledgerPending"] = a.Pending()
			stats["accuracyPct"] = a.AccuracyPct
			metrics.UpdateLedgerPending(a.Pending())
		}
	}

	return stats
}

// refreshFunc adapts a method value to poller.Refresher.
type refreshFunc func(ctx context.Context) error

func (f refreshFunc) Refresh(ctx context.Context) error { return f(ctx) }
