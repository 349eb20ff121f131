// Package feedsim simulates an upstream session feed for local runs and
// exercises a running prediction service.
package feedsim

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/okian/taixiu/internal/domain/model"
	"github.com/okian/taixiu/internal/domain/random"
	"github.com/okian/taixiu/pkg/logger"
)

// Dice rules.
const (
	diceCount     = 3
	diceFaces     = 6
	highThreshold = 11 // totals of 11 and above are TAI
)

const (
	defaultStartID     = 1
	defaultHistorySize = 100
)

// Item is one session as served on the wire.
type Item struct {
	ID     int64  `json:"id"`
	Result string `json:"result"`
	Dice   []int  `json:"dice"`
	Total  int    `json:"total"`
}

// Feed keeps a bounded, growing list of rolled sessions.
type Feed struct {
	mu       sync.RWMutex
	sessions []model.Session // oldest first
	nextID   int64
	size     int
	rng      random.Source
	log      logger.Logger
}

// Option configures a Feed.
type Option func(*Feed)

// WithStartID sets the id of the first rolled session.
func WithStartID(id int64) Option {
	return func(f *Feed) {
		if id > 0 {
			f.nextID = id
		}
	}
}

// WithHistorySize bounds how many sessions are kept and served.
func WithHistorySize(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.size = n
		}
	}
}

// WithSource sets the dice randomness.
func WithSource(src random.Source) Option {
	return func(f *Feed) {
		if src != nil {
			f.rng = src
		}
	}
}

// WithSeed makes the dice reproducible.
func WithSeed(seed int64) Option {
	return func(f *Feed) { f.rng = random.NewSeeded(seed) }
}

// New creates an empty feed.
func New(opts ...Option) *Feed {
	f := &Feed{
		nextID: defaultStartID,
		size:   defaultHistorySize,
		rng:    random.System(),
		log:    logger.Get().Named("feedsim"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Roll plays one session and returns it.
func (f *Feed) Roll() model.Session {
	dice := make([]int, diceCount)
	total := 0
	for i := range dice {
		dice[i] = 1 + int(f.rng.Float64()*diceFaces)
		if dice[i] > diceFaces {
			dice[i] = diceFaces
		}
		total += dice[i]
	}
	outcome := model.Low
	if total >= highThreshold {
		outcome = model.High
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	s := model.Session{ID: f.nextID, Outcome: outcome, Dice: dice, Total: total}
	f.nextID++
	f.sessions = append(f.sessions, s)
	if len(f.sessions) > f.size {
		f.sessions = append(f.sessions[:0], f.sessions[len(f.sessions)-f.size:]...)
	}
	return s
}

// Seed rolls n sessions at once.
func (f *Feed) Seed(n int) {
	for i := 0; i < n; i++ {
		f.Roll()
	}
}

// Sessions returns the kept sessions, latest first.
func (f *Feed) Sessions() []model.Session {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]model.Session, len(f.sessions))
	for i, s := range f.sessions {
		out[len(out)-1-i] = s
	}
	return out
}

// Items returns Sessions in wire form.
func (f *Feed) Items() []Item {
	sessions := f.Sessions()
	items := make([]Item, len(sessions))
	for i, s := range sessions {
		items[i] = Item{ID: s.ID, Result: s.Outcome.Label(), Dice: s.Dice, Total: s.Total}
	}
	return items
}

// Handler serves the sessions as a JSON array.
func (f *Feed) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(f.Items()); err != nil {
			f.log.Error(r.Context(), "encode sessions", logger.Error(err))
		}
	})
}

// Run rolls a new session every interval until ctx is done.
func (f *Feed) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := f.Roll()
			f.log.Debug(ctx, "rolled session",
				logger.Int64("id", s.ID),
				logger.String("result", s.Outcome.Label()),
				logger.Int("total", s.Total),
			)
		}
	}
}
