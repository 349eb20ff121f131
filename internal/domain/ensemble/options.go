package ensemble

import (
	"github.com/okian/taixiu/internal/domain/predictor"
	"github.com/okian/taixiu/internal/domain/random"
)

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithRandomSource sets the random stream shared by the streak model's coin
// flip and the supplementary voters.
func WithRandomSource(src random.Source) Option {
	return func(p *Predictor) {
		if src != nil {
			p.rng = src
		}
	}
}

// WithSeed makes the predictor deterministic for the given seed.
func WithSeed(seed int64) Option {
	return func(p *Predictor) {
		p.rng = random.NewSeeded(seed)
	}
}

// WithSupplementaryVoters sets how many synthetic voters join the ensemble.
// Zero disables them.
func WithSupplementaryVoters(count int) Option {
	return func(p *Predictor) {
		if count >= 0 {
			p.voters = count
		}
	}
}

// WithSupplementaryConfidence sets the [minConf, maxConf) range synthetic
// voters draw their confidence from.
func WithSupplementaryConfidence(minConf, maxConf float64) Option {
	return func(p *Predictor) {
		if minConf >= 0 && maxConf > minConf && maxConf <= 1 {
			p.minConfidence = minConf
			p.maxConfidence = maxConf
		}
	}
}

// WithModels replaces the default model set.
func WithModels(models ...predictor.Model) Option {
	return func(p *Predictor) {
		if len(models) > 0 {
			p.models = models
		}
	}
}
