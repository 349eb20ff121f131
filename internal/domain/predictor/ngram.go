package predictor

import (
	"fmt"

	"github.com/okian/taixiu/internal/domain/history"
	"github.com/okian/taixiu/internal/domain/model"
)

// N-gram parameters.
const (
	gramLength        = 4
	noMatchConfidence = 0.5
)

// NGramModel looks up what followed earlier occurrences of the most recent
// gram in the history.
type NGramModel struct {
	n int
}

// NewNGramModel creates an n-gram continuation model with n = 4.
func NewNGramModel() *NGramModel { return &NGramModel{n: gramLength} }

// Name implements Model.
func (m *NGramModel) Name() string { return "ngram" }

// Predict implements Model.
func (m *NGramModel) Predict(h history.History) model.Vote {
	p := h.Pattern
	if len(p) < m.n {
		return vote(m, model.SymbolHigh, noMatchConfidence,
			fmt.Sprintf("N-gram: history shorter than %d, no match -> T", m.n))
	}
	key := p[:m.n]

	// An occurrence at i spans p[i:i+n]; in time it was followed by p[i-1].
	// i = 0 is the key itself and has no successor yet.
	matches, followedByHigh := 0, 0
	for i := 1; i+m.n <= len(p); i++ {
		if !equal(p[i:i+m.n], key) {
			continue
		}
		matches++
		if p[i-1] == model.SymbolHigh {
			followedByHigh++
		}
	}

	if matches == 0 {
		return vote(m, model.SymbolHigh, noMatchConfidence,
			fmt.Sprintf("N-gram: no earlier match for %s -> T", key))
	}
	pHigh := float64(followedByHigh) / float64(matches)
	s, confidence := leaning(pHigh)
	return vote(m, s, confidence,
		fmt.Sprintf("N-gram: %s seen %d times, followed by T %d times (P(T)=%.2f) -> %s",
			key, matches, followedByHigh, pHigh, s))
}

func equal(a, b model.Pattern) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
