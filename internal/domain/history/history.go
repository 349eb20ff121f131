// Package history turns a raw session collection into the normalized view
// the prediction models read: latest-first sessions, the symbol pattern and
// the HIGH/LOW ratios over the whole history.
package history

import (
	"math"
	"sort"

	"github.com/okian/taixiu/internal/domain/dedupe"
	"github.com/okian/taixiu/internal/domain/model"
)

// History is an immutable, request-scoped view of a session collection.
type History struct {
	// Sessions ordered by descending ID.
	Sessions []model.Session
	// Pattern has one symbol per session; Pattern[0] is the latest session.
	Pattern model.Pattern
	// Ratios over all sessions.
	Ratios model.Ratios
}

// Normalize orders sessions latest-first and derives the pattern and ratios.
// Sessions repeating an earlier id are dropped; the first occurrence wins.
// The input slice is not modified. An empty input yields ErrEmptyHistory.
func Normalize(sessions []model.Session) (History, error) {
	if len(sessions) == 0 {
		return History{}, ErrEmptyHistory
	}

	ordered, _ := dedupe.Sessions(sessions)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID > ordered[j].ID })

	pattern := make(model.Pattern, len(ordered))
	highs := 0
	for i, s := range ordered {
		pattern[i] = s.Outcome.Symbol()
		if s.Outcome == model.High {
			highs++
		}
	}

	n := float64(len(ordered))
	return History{
		Sessions: ordered,
		Pattern:  pattern,
		Ratios: model.Ratios{
			HighPct: round2(float64(highs) / n * 100),
			LowPct:  round2(float64(len(ordered)-highs) / n * 100),
		},
	}, nil
}

// Latest returns the most recent session.
func (h History) Latest() model.Session {
	return h.Sessions[0]
}

// Len returns the number of sessions.
func (h History) Len() int { return len(h.Sessions) }

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
