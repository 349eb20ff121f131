package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/taixiu/internal/domain/model"
	"github.com/okian/taixiu/pkg/metrics"
)

// MemoryStore is an in-process Store keyed by target session id.
type MemoryStore struct {
	settings

	mu      sync.RWMutex
	entries map[int64]Entry
	settled int
	correct int

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs an empty ledger and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		settings: newSettings(opts),
		entries:  make(map[int64]Entry),
		stopChan: make(chan struct{}),
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Record implements Store.Record.
func (s *MemoryStore) Record(_ context.Context, e Entry) (bool, error) {
	if err := validate(e); err != nil {
		return false, err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.Actual, e.SettledAt = "", time.Time{}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.SessionID]; ok {
		return false, nil
	}
	s.entries[e.SessionID] = e
	metrics.RecordLedgerRecorded()
	return true, nil
}

// Settle implements Store.Settle.
func (s *MemoryStore) Settle(_ context.Context, sessions []model.Session) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, sess := range sessions {
		e, ok := s.entries[sess.ID]
		if !ok || e.Settled() {
			continue
		}
		e.Actual, e.SettledAt = sess.Outcome, now
		s.entries[sess.ID] = e
		s.settled++
		if e.Hit() {
			s.correct++
		}
		metrics.RecordLedgerSettled(e.Hit())
		n++
	}
	return n, nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, sessionID int64) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[sessionID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Recent implements Store.Recent.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SessionID > out[j].SessionID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Accuracy implements Store.Accuracy.
func (s *MemoryStore) Accuracy(_ context.Context) (Accuracy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Accuracy{
		Recorded:    len(s.entries),
		Settled:     s.settled,
		Correct:     s.correct,
		AccuracyPct: accuracyPct(s.correct, s.settled),
	}, nil
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// startMetricsUpdater publishes ledger gauges on an interval.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				a, _ := s.Accuracy(ctx)
				publishAccuracy(a)
			}
		}
	}()
}

func publishAccuracy(a Accuracy) {
	metrics.UpdateLedgerPending(a.Pending())
	metrics.UpdateLedgerAccuracy(a.AccuracyPct / 100)
}
