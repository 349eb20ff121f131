package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/taixiu/internal/domain/model"
	"github.com/okian/taixiu/pkg/metrics"
)

const schema = `CREATE TABLE IF NOT EXISTS predictions (
	session_id    BIGINT PRIMARY KEY,
	prediction_id TEXT NOT NULL,
	prediction    TEXT NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL,
	created_at    BIGINT NOT NULL,
	actual        TEXT NOT NULL DEFAULT '',
	settled_at    BIGINT NOT NULL DEFAULT 0
)`

const selectColumns = `session_id, prediction_id, prediction, confidence, created_at, actual, settled_at`

// SQLStore is a Store backed by sqlite or postgres.
type SQLStore struct {
	settings

	db     *sql.DB
	driver string

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// OpenSQL connects to the database, creates the schema and starts the
// metrics updater. driver is "sqlite" or "postgres".
func OpenSQL(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	if driver != "sqlite" && driver != "postgres" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", driver, err)
	}
	if driver == "sqlite" {
		// one connection keeps :memory: databases alive and serialises writers
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return NewSQLStore(ctx, db, driver, opts...), nil
}

// NewSQLStore wraps an open database whose schema already exists.
func NewSQLStore(ctx context.Context, db *sql.DB, driver string, opts ...Option) *SQLStore {
	s := &SQLStore{
		settings: newSettings(opts),
		db:       db,
		driver:   driver,
		stopChan: make(chan struct{}),
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Record implements Store.Record.
func (s *SQLStore) Record(ctx context.Context, e Entry) (bool, error) {
	if err := validate(e); err != nil {
		return false, err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO predictions (session_id, prediction_id, prediction, confidence, created_at)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT (session_id) DO NOTHING`),
		e.SessionID, e.PredictionID, string(e.Prediction), e.Confidence, e.CreatedAt.UnixMilli())
	if err != nil {
		metrics.RecordErrorByComponent("repository", "write")
		return false, fmt.Errorf("record prediction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record prediction: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	metrics.RecordLedgerRecorded()
	return true, nil
}

// Settle implements Store.Settle.
func (s *SQLStore) Settle(ctx context.Context, sessions []model.Session) (int, error) {
	if len(sessions) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("settle predictions: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pending, err := pendingPredictions(ctx, tx)
	if err != nil {
		return 0, err
	}

	now := s.now().UnixMilli()
	update := s.rebind(`UPDATE predictions SET actual = ?, settled_at = ? WHERE session_id = ? AND actual = ''`)
	n := 0
	var hits []bool
	for _, sess := range sessions {
		predicted, ok := pending[sess.ID]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, update, string(sess.Outcome), now, sess.ID); err != nil {
			metrics.RecordErrorByComponent("repository", "write")
			return 0, fmt.Errorf("settle prediction %d: %w", sess.ID, err)
		}
		delete(pending, sess.ID)
		hits = append(hits, predicted == sess.Outcome)
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("settle predictions: %w", err)
	}
	for _, hit := range hits {
		metrics.RecordLedgerSettled(hit)
	}
	return n, nil
}

func pendingPredictions(ctx context.Context, tx *sql.Tx) (map[int64]model.Outcome, error) {
	rows, err := tx.QueryContext(ctx, `SELECT session_id, prediction FROM predictions WHERE actual = ''`)
	if err != nil {
		return nil, fmt.Errorf("load pending predictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64]model.Outcome)
	for rows.Next() {
		var (
			id   int64
			pred string
		)
		if err := rows.Scan(&id, &pred); err != nil {
			return nil, fmt.Errorf("scan pending prediction: %w", err)
		}
		out[id] = model.Outcome(pred)
	}
	return out, rows.Err()
}

// Get implements Store.Get.
func (s *SQLStore) Get(ctx context.Context, sessionID int64) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+selectColumns+` FROM predictions WHERE session_id = ?`), sessionID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get prediction %d: %w", sessionID, err)
	}
	return e, nil
}

// Recent implements Store.Recent.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+selectColumns+` FROM predictions ORDER BY session_id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Accuracy implements Store.Accuracy.
func (s *SQLStore) Accuracy(ctx context.Context) (Accuracy, error) {
	var recorded, settled, correct int64
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN actual <> '' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN actual <> '' AND actual = prediction THEN 1 ELSE 0 END), 0)
		FROM predictions`).Scan(&recorded, &settled, &correct)
	if err != nil {
		return Accuracy{}, fmt.Errorf("ledger accuracy: %w", err)
	}
	return Accuracy{
		Recorded:    int(recorded),
		Settled:     int(settled),
		Correct:     int(correct),
		AccuracyPct: accuracyPct(int(correct), int(settled)),
	}, nil
}

// Close stops the metrics updater and closes the database.
func (s *SQLStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return s.db.Close()
}

func (s *SQLStore) startMetricsUpdater(ctx context.Context) {
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
				if a, err := s.Accuracy(ctx); err == nil {
					publishAccuracy(a)
				}
			}
		}
	}()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                   Entry
		pred, actual        string
		createdAt, settleAt int64
	)
	if err := row.Scan(&e.SessionID, &e.PredictionID, &pred, &e.Confidence, &createdAt, &actual, &settleAt); err != nil {
		return Entry{}, err
	}
	e.Prediction = model.Outcome(pred)
	e.Actual = model.Outcome(actual)
	e.CreatedAt = time.UnixMilli(createdAt)
	if settleAt > 0 {
		e.SettledAt = time.UnixMilli(settleAt)
	}
	return e, nil
}
