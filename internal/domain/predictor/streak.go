package predictor

import (
	"fmt"

	"github.com/okian/taixiu/internal/domain/history"
	"github.com/okian/taixiu/internal/domain/model"
	"github.com/okian/taixiu/internal/domain/random"
)

// Streak/shape rule parameters.
const (
	streakMinRun        = 4
	alternationLen      = 5
	shapeWindow         = 8
	pairShapeLen        = 4
	runBreakLen         = 5
	streakConfidence    = 0.8
	alternateConfidence = 0.7
	pairConfidence      = 0.75
	reversionConfidence = 0.65
	coinFlipConfidence  = 0.5
)

// StreakModel detects structural shapes in the most recent symbols:
// streaks, strict alternation, paired runs and run-then-break shapes.
type StreakModel struct {
	rng random.Source
}

// NewStreakModel creates a streak/shape model. src drives the coin flip used
// when no shape matches.
func NewStreakModel(src random.Source) *StreakModel {
	if src == nil {
		src = random.System()
	}
	return &StreakModel{rng: src}
}

// Name implements Model.
func (m *StreakModel) Name() string { return "streak" }

// Predict implements Model. Rules are checked in priority order; the first
// match wins.
func (m *StreakModel) Predict(h history.History) model.Vote {
	p := h.Pattern
	if len(p) == 0 {
		return m.coinFlip()
	}
	last := p[0]

	if run := p.Streak(); run >= streakMinRun {
		return vote(m, last, streakConfidence,
			fmt.Sprintf("Streak: %d x %s at the head, riding the streak -> %s", run, last, last))
	}

	if isAlternating(p.Head(alternationLen)) {
		next := last.Opposite()
		return vote(m, next, alternateConfidence,
			fmt.Sprintf("Streak: alternating %s at the head -> %s", p.Head(alternationLen), next))
	}

	head := p.Head(shapeWindow)
	if i := findPairShape(head); i >= 0 {
		next := head[i].Opposite()
		return vote(m, next, pairConfidence,
			fmt.Sprintf("Streak: paired shape %s near the head, next pair starts with %s", head[i:i+pairShapeLen], next))
	}

	if i := findRunBreak(head); i >= 0 {
		run := head[i]
		return vote(m, run, reversionConfidence,
			fmt.Sprintf("Streak: 3-1 shape %s in the head, reverting to %s", head[i:i+runBreakLen], run))
	}

	return m.coinFlip()
}

func (m *StreakModel) coinFlip() model.Vote {
	s := model.SymbolLow
	if m.rng.Bool() {
		s = model.SymbolHigh
	}
	return vote(m, s, coinFlipConfidence, fmt.Sprintf("Streak: no shape matched, coin flip -> %s", s))
}

// isAlternating reports whether p holds exactly alternationLen symbols that
// strictly alternate (TXTXT / XTXTX).
func isAlternating(p model.Pattern) bool {
	if len(p) < alternationLen {
		return false
	}
	for i := 1; i < len(p); i++ {
		if p[i] == p[i-1] {
			return false
		}
	}
	return true
}

// findPairShape returns the index of the nearest TTXX or XXTT shape in p,
// or -1.
func findPairShape(p model.Pattern) int {
	for i := 0; i+pairShapeLen <= len(p); i++ {
		if p[i] == p[i+1] && p[i+2] == p[i+3] && p[i] != p[i+2] {
			return i
		}
	}
	return -1
}

// findRunBreak returns the index of the nearest four-run immediately followed
// by the opposite symbol (TTTTX / XXXXT), or -1.
func findRunBreak(p model.Pattern) int {
	for i := 0; i+runBreakLen <= len(p); i++ {
		s := p[i]
		if p[i+1] == s && p[i+2] == s && p[i+3] == s && p[i+4] == s.Opposite() {
			return i
		}
	}
	return -1
}
