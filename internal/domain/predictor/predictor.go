// Package predictor implements the independent heuristics that vote on the
// next session outcome. Every model is a pure function of the normalized
// history (plus an injected random source where documented) and never fails:
// degenerate inputs fall back to explicit default votes.
package predictor

import (
	"github.com/okian/taixiu/internal/domain/history"
	"github.com/okian/taixiu/internal/domain/model"
	"github.com/okian/taixiu/internal/domain/random"
)

// Model votes on the next outcome of a history.
type Model interface {
	// Name identifies the model in votes, logs and metrics.
	Name() string
	// Predict returns the model's vote. h must be non-empty.
	Predict(h history.History) model.Vote
}

// Defaults returns the five models in their canonical voting order.
func Defaults(src random.Source) []Model {
	return []Model{
		NewStreakModel(src),
		NewFrequencyModel(),
		NewMarkovModel(),
		NewNGramModel(),
		NewRuleModel(),
	}
}

func vote(m Model, s model.Symbol, confidence float64, explanation string) model.Vote {
	return model.Vote{
		Model:       m.Name(),
		Prediction:  s,
		Confidence:  confidence,
		Explanation: explanation,
	}
}

// majority returns T when highs strictly outnumber lows, X otherwise.
func majority(highs, lows int) model.Symbol {
	if highs > lows {
		return model.SymbolHigh
	}
	return model.SymbolLow
}

// leaning picks T when p(T) is strictly above one half and reports the
// confidence as the larger of p and 1-p.
func leaning(pHigh float64) (model.Symbol, float64) {
	if pHigh > 0.5 {
		return model.SymbolHigh, pHigh
	}
	return model.SymbolLow, 1 - pHigh
}
