package predictor

import (
	"fmt"

	"github.com/okian/taixiu/internal/domain/history"
	"github.com/okian/taixiu/internal/domain/model"
)

// MarkovModel estimates first-order transition probabilities over the whole
// history and predicts the likeliest successor of the latest symbol.
type MarkovModel struct{}

// NewMarkovModel creates a first-order Markov transition model.
func NewMarkovModel() *MarkovModel { return &MarkovModel{} }

// Name implements Model.
func (m *MarkovModel) Name() string { return "markov" }

// Predict implements Model.
func (m *MarkovModel) Predict(h history.History) model.Vote {
	p := h.Pattern
	// counts[from][to]; index 0 is T, 1 is X
	var counts [2][2]int
	// the pattern is latest-first, so p[i+1] is older than p[i]
	for i := 0; i+1 < len(p); i++ {
		counts[index(p[i+1])][index(p[i])]++
	}

	last := model.SymbolHigh
	if len(p) > 0 {
		last = p[0]
	}
	toHigh := counts[index(last)][0]
	total := toHigh + counts[index(last)][1]

	pHigh := 0.5
	if total > 0 {
		pHigh = float64(toHigh) / float64(total)
	}
	s, confidence := leaning(pHigh)
	return vote(m, s, confidence,
		fmt.Sprintf("Markov: P(T|%s)=%.2f over %d transitions -> %s", last, pHigh, total, s))
}

func index(s model.Symbol) int {
	if s == model.SymbolHigh {
		return 0
	}
	return 1
}
