// Package ensemble combines the model votes into one final prediction.
//
// The five real models are joined by a configurable number of synthetic
// supplementary voters that draw a random symbol and a confidence from a
// fixed range. With a seeded random source the whole pipeline is
// reproducible byte for byte.
package ensemble

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/taixiu/internal/domain/history"
	"github.com/okian/taixiu/internal/domain/model"
	"github.com/okian/taixiu/internal/domain/predictor"
	"github.com/okian/taixiu/internal/domain/random"
)

// DefaultSupplementaryVoters is the number of random voters added to the
// model votes when none is configured.
const DefaultSupplementaryVoters = 5

// Default ensemble configuration constants.
const (
	defaultMinConfidence = 0.6
	defaultMaxConfidence = 0.8
	explanationSeparator = " | "
)

// Predictor runs the models over a session history and aggregates their votes.
// It holds no per-call state and is safe for concurrent use as long as its
// random source is.
type Predictor struct {
	models        []predictor.Model
	rng           random.Source
	voters        int
	minConfidence float64
	maxConfidence float64
}

// New creates a Predictor with the five default models.
func New(opts ...Option) *Predictor {
	p := &Predictor{
		rng:           random.System(),
		voters:        DefaultSupplementaryVoters,
		minConfidence: defaultMinConfidence,
		maxConfidence: defaultMaxConfidence,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.models == nil {
		p.models = predictor.Defaults(p.rng)
	}
	return p
}

// Predict normalizes sessions and returns the ensemble result. It fails only
// with history.ErrEmptyHistory, in which case no model runs.
func (p *Predictor) Predict(sessions []model.Session) (model.Result, error) {
	h, err := history.Normalize(sessions)
	if err != nil {
		return model.Result{}, err
	}
	return p.PredictHistory(h), nil
}

// PredictHistory runs every model over an already normalized history.
func (p *Predictor) PredictHistory(h history.History) model.Result {
	votes := make([]model.Vote, 0, len(p.models))
	for _, m := range p.models {
		votes = append(votes, m.Predict(h))
	}
	return p.Aggregate(votes)
}

// Aggregate combines the model votes with the supplementary voters.
// votes[T] > votes[X] yields HIGH; an exact tie yields LOW.
func (p *Predictor) Aggregate(votes []model.Vote) model.Result {
	var high, low, total float64
	rationale := make([]string, 0, len(votes)+p.voters+1)

	add := func(s model.Symbol, confidence float64, explanation string) {
		if s == model.SymbolHigh {
			high += confidence
		} else {
			low += confidence
		}
		total += confidence
		rationale = append(rationale, explanation)
	}

	for _, v := range votes {
		add(v.Prediction, v.Confidence, v.Explanation)
	}

	for i := 0; i < p.voters; i++ {
		s := model.SymbolLow
		if p.rng.Bool() {
			s = model.SymbolHigh
		}
		confidence := random.Between(p.rng, p.minConfidence, p.maxConfidence)
		add(s, confidence, fmt.Sprintf("Voter %d: %s (%.2f)", len(votes)+i+1, s, confidence))
	}

	prediction := model.Low
	if high > low {
		prediction = model.High
	}

	confidence := 0.0
	if total > 0 {
		confidence = math.Round(math.Max(high, low)/total*100*100) / 100
	}
	pct := fmt.Sprintf("%.2f%%", confidence)

	rationale = append(rationale,
		fmt.Sprintf("Final prediction: %s (%s) with %s confidence", prediction, prediction.Label(), pct))

	return model.Result{
		Prediction:    prediction,
		Confidence:    confidence,
		ConfidencePct: pct,
		Explanation:   strings.Join(rationale, explanationSeparator),
		Votes:         votes,
	}
}

// Voters returns the number of supplementary voters.
func (p *Predictor) Voters() int { return p.voters }

// Models returns the model names in voting order.
func (p *Predictor) Models() []string {
	names := make([]string, len(p.models))
	for i, m := range p.models {
		names[i] = m.Name()
	}
	return names
}
