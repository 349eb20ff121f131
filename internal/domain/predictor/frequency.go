package predictor

import (
	"fmt"

	"github.com/okian/taixiu/internal/domain/history"
	"github.com/okian/taixiu/internal/domain/model"
)

// Rolling-window parameters.
const (
	frequencyWindow      = 20
	frequencyUpperBound  = 0.70
	frequencyLowerBound  = 0.30
	meanRevertConfidence = 0.75
	majorityConfidence   = 0.6
)

// FrequencyModel is a mean-reversion heuristic over the most recent window.
type FrequencyModel struct{}

// NewFrequencyModel creates a rolling-window frequency model.
func NewFrequencyModel() *FrequencyModel { return &FrequencyModel{} }

// Name implements Model.
func (m *FrequencyModel) Name() string { return "frequency" }

// Predict implements Model.
func (m *FrequencyModel) Predict(h history.History) model.Vote {
	window := h.Pattern.Head(frequencyWindow)
	highs := 0
	for _, s := range window {
		if s == model.SymbolHigh {
			highs++
		}
	}
	lows := len(window) - highs

	ratio := 0.5
	if len(window) > 0 {
		ratio = float64(highs) / float64(len(window))
	}

	switch {
	case ratio > frequencyUpperBound:
		return vote(m, model.SymbolLow, meanRevertConfidence,
			fmt.Sprintf("Frequency: T ratio %.2f over last %d is high, expecting X", ratio, len(window)))
	case ratio < frequencyLowerBound:
		return vote(m, model.SymbolHigh, meanRevertConfidence,
			fmt.Sprintf("Frequency: T ratio %.2f over last %d is low, expecting T", ratio, len(window)))
	default:
		s := majority(highs, lows)
		return vote(m, s, majorityConfidence,
			fmt.Sprintf("Frequency: T ratio %.2f over last %d, following majority %s", ratio, len(window), s))
	}
}
