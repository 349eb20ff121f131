// Package repository defines the prediction ledger interface and errors.
package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/taixiu/internal/domain/model"
)

// Entry is one recorded prediction for a target session.
type Entry struct {
	PredictionID string
	SessionID    int64
	Prediction   model.Outcome
	Confidence   float64
	CreatedAt    time.Time

	// Actual stays empty until the session result is known.
	Actual    model.Outcome
	SettledAt time.Time
}

// Settled reports whether the actual outcome is known.
func (e Entry) Settled() bool { return e.Actual != "" }

// Hit reports whether a settled prediction was right.
func (e Entry) Hit() bool { return e.Settled() && e.Actual == e.Prediction }

// Accuracy summarises the ledger.
type Accuracy struct {
	Recorded    int
	Settled     int
	Correct     int
	AccuracyPct float64
}

// Pending returns recorded predictions still awaiting a result.
func (a Accuracy) Pending() int { return a.Recorded - a.Settled }

// Store records predictions and grades them once results arrive.
type Store interface {
	// Record stores e unless its session already has a prediction.
	// Returns true if the entry was stored.
	Record(ctx context.Context, e Entry) (bool, error)

	// Settle grades pending predictions whose session appears in sessions.
	// Returns how many entries were settled.
	Settle(ctx context.Context, sessions []model.Session) (int, error)

	// Get returns the prediction for a session, or ErrNotFound.
	Get(ctx context.Context, sessionID int64) (Entry, error)

	// Recent returns up to limit entries, newest target session first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Accuracy returns aggregate hit statistics.
	Accuracy(ctx context.Context) (Accuracy, error)

	// Close releases background resources.
	Close() error
}

// Open returns the Store for driver: memory, sqlite or postgres.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(ctx, opts...), nil
	case "sqlite", "postgres":
		return OpenSQL(ctx, driver, dsn, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func validate(e Entry) error {
	switch {
	case e.SessionID <= 0:
		return fmt.Errorf("%w: session id %d", ErrInvalidEntry, e.SessionID)
	case e.Prediction != model.High && e.Prediction != model.Low:
		return fmt.Errorf("%w: prediction %q", ErrInvalidEntry, e.Prediction)
	}
	return nil
}

func accuracyPct(correct, settled int) float64 {
	if settled == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(settled)*10000) / 100
}
