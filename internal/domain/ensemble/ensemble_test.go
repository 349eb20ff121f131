package ensemble_test

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/taixiu/internal/domain/ensemble"
	"github.com/okian/taixiu/internal/domain/history"
	"github.com/okian/taixiu/internal/domain/model"
	"github.com/okian/taixiu/internal/domain/random"
	. "github.com/smartystreets/goconvey/convey"
)

type fixedSource struct {
	f float64
	b bool
}

func (s fixedSource) Float64() float64 { return s.f }
func (s fixedSource) Bool() bool       { return s.b }

// countingModel votes T and counts how often it ran.
type countingModel struct {
	calls atomic.Int32
}

func (m *countingModel) Name() string { return "counting" }

func (m *countingModel) Predict(history.History) model.Vote {
	m.calls.Add(1)
	return model.Vote{Model: m.Name(), Prediction: model.SymbolHigh, Confidence: 0.5, Explanation: "counting"}
}

// sessionsOf builds sessions from a latest-first pattern string.
func sessionsOf(pattern string) []model.Session {
	n := len(pattern)
	out := make([]model.Session, n)
	for i := 0; i < n; i++ {
		o := model.Low
		if pattern[i] == 'T' {
			o = model.High
		}
		out[i] = model.Session{ID: int64(1000 + n - i), Outcome: o, Dice: []int{1, 2, 3}, Total: 6}
	}
	return out
}

func TestPredict(t *testing.T) {
	Convey("Given an ensemble predictor", t, func() {
		p := ensemble.New(ensemble.WithSeed(42))

		Convey("When the history is empty", func() {
			counter := &countingModel{}
			guarded := ensemble.New(ensemble.WithSeed(42), ensemble.WithModels(counter))
			res, err := guarded.Predict(nil)

			Convey("Then it fails with ErrEmptyHistory before any model runs", func() {
				So(err, ShouldEqual, history.ErrEmptyHistory)
				So(res.Votes, ShouldBeEmpty)
				So(counter.calls.Load(), ShouldEqual, int32(0))
			})

			Convey("Then the same ensemble runs the model once for a non-empty history", func() {
				_, err := guarded.Predict(sessionsOf("TX"))
				So(err, ShouldBeNil)
				So(counter.calls.Load(), ShouldEqual, int32(1))
			})
		})

		Convey("When the latest four sessions are HIGH", func() {
			sessions := []model.Session{
				{ID: 5, Outcome: model.High},
				{ID: 4, Outcome: model.High},
				{ID: 3, Outcome: model.High},
				{ID: 2, Outcome: model.High},
				{ID: 1, Outcome: model.Low},
			}
			res, err := p.Predict(sessions)

			Convey("Then the streak model votes T with 0.8", func() {
				So(err, ShouldBeNil)
				So(res.Votes, ShouldHaveLength, 5)
				So(res.Votes[0].Model, ShouldEqual, "streak")
				So(res.Votes[0].Prediction, ShouldEqual, model.SymbolHigh)
				So(res.Votes[0].Confidence, ShouldEqual, 0.8)
			})

			Convey("And the explanation holds every rationale plus a summary", func() {
				parts := strings.Split(res.Explanation, " | ")
				So(parts, ShouldHaveLength, 11)
				So(parts[10], ShouldStartWith, "Final prediction: ")
				So(parts[10], ShouldContainSubstring, string(res.Prediction))
			})
		})

		Convey("When a single session is supplied", func() {
			res, err := p.Predict(sessionsOf("X"))

			Convey("Then every model falls back and a result is still produced", func() {
				So(err, ShouldBeNil)
				So(res.Prediction == model.High || res.Prediction == model.Low, ShouldBeTrue)
				So(res.Confidence, ShouldBeBetweenOrEqual, 0.0, 100.0)
			})
		})
	})

	Convey("Given two predictors with the same seed", t, func() {
		a := ensemble.New(ensemble.WithSeed(7))
		b := ensemble.New(ensemble.WithSeed(7))
		sessions := sessionsOf("TXTTXTXXTTTXXTXTXXXTTXTX")

		Convey("Then identical input yields identical output", func() {
			for i := 0; i < 5; i++ {
				ra, errA := a.Predict(sessions)
				rb, errB := b.Predict(sessions)
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(ra, ShouldResemble, rb)
			}
		})
	})

	Convey("Given many histories", t, func() {
		p := ensemble.New(ensemble.WithSeed(99))
		src := random.NewSeeded(3)

		Convey("Then every prediction is HIGH or LOW with confidence in [0, 100]", func() {
			for n := 1; n <= 80; n++ {
				b := make([]byte, n)
				for i := range b {
					if src.Bool() {
						b[i] = 'T'
					} else {
						b[i] = 'X'
					}
				}
				res, err := p.Predict(sessionsOf(string(b)))
				So(err, ShouldBeNil)
				So(res.Prediction == model.High || res.Prediction == model.Low, ShouldBeTrue)
				So(res.Confidence, ShouldBeBetweenOrEqual, 0.0, 100.0)
				So(res.ConfidencePct, ShouldEndWith, "%")
			}
		})
	})

	Convey("Given a predictor shared between goroutines", t, func() {
		p := ensemble.New()
		sessions := sessionsOf("TTXXTXTXTTTX")

		Convey("Then concurrent predictions do not interfere", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 20)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := p.Predict(sessions); err != nil {
						errs <- err
					}
				}()
			}
			wg.Wait()
			close(errs)
			So(len(errs), ShouldEqual, 0)
		})
	})
}

func TestAggregate(t *testing.T) {
	Convey("Given an aggregator without supplementary voters", t, func() {
		p := ensemble.New(ensemble.WithSupplementaryVoters(0), ensemble.WithRandomSource(fixedSource{}))

		Convey("When T outweighs X", func() {
			res := p.Aggregate([]model.Vote{
				{Prediction: model.SymbolHigh, Confidence: 0.8, Explanation: "a"},
				{Prediction: model.SymbolLow, Confidence: 0.75, Explanation: "b"},
				{Prediction: model.SymbolHigh, Confidence: 0.6, Explanation: "c"},
			})

			Convey("Then the result is HIGH with the weighted share as confidence", func() {
				So(res.Prediction, ShouldEqual, model.High)
				So(res.Confidence, ShouldEqual, 65.12)
				So(res.ConfidencePct, ShouldEqual, "65.12%")
				So(res.Explanation, ShouldEqual, "a | b | c | Final prediction: HIGH (TAI) with 65.12% confidence")
			})
		})

		Convey("When the votes tie exactly", func() {
			res := p.Aggregate([]model.Vote{
				{Prediction: model.SymbolHigh, Confidence: 0.5, Explanation: "a"},
				{Prediction: model.SymbolLow, Confidence: 0.5, Explanation: "b"},
			})

			Convey("Then the tie resolves to LOW", func() {
				So(res.Prediction, ShouldEqual, model.Low)
				So(res.ConfidencePct, ShouldEqual, "50.00%")
			})
		})

		Convey("When there is no weight at all", func() {
			res := p.Aggregate(nil)

			Convey("Then confidence is zero instead of a division error", func() {
				So(res.Prediction, ShouldEqual, model.Low)
				So(res.Confidence, ShouldEqual, 0.0)
				So(res.ConfidencePct, ShouldEqual, "0.00%")
			})
		})
	})

	Convey("Given five supplementary voters that always say T at the range floor", t, func() {
		p := ensemble.New(ensemble.WithRandomSource(fixedSource{f: 0, b: true}))

		Convey("When five real votes say X with full confidence", func() {
			votes := make([]model.Vote, 5)
			for i := range votes {
				votes[i] = model.Vote{Prediction: model.SymbolLow, Confidence: 1, Explanation: "x"}
			}
			res := p.Aggregate(votes)

			Convey("Then X wins with 5 out of 8 weight", func() {
				So(res.Prediction, ShouldEqual, model.Low)
				So(res.ConfidencePct, ShouldEqual, "62.50%")
			})

			Convey("And each voter is named in the rationale", func() {
				So(res.Explanation, ShouldContainSubstring, "Voter 6: T (0.60)")
				So(res.Explanation, ShouldContainSubstring, "Voter 10: T (0.60)")
				So(strings.Count(res.Explanation, "Voter "), ShouldEqual, 5)
			})

			Convey("And synthetic voters are not reported as model votes", func() {
				So(res.Votes, ShouldHaveLength, 5)
			})
		})
	})

	Convey("Given custom supplementary settings", t, func() {
		p := ensemble.New(
			ensemble.WithSupplementaryVoters(3),
			ensemble.WithSupplementaryConfidence(0.2, 0.4),
			ensemble.WithRandomSource(fixedSource{f: 0.5, b: false}),
		)

		Convey("Then the voter count and range are honored", func() {
			So(p.Voters(), ShouldEqual, 3)
			res := p.Aggregate(nil)
			So(strings.Count(res.Explanation, "Voter "), ShouldEqual, 3)
			So(res.Explanation, ShouldContainSubstring, "Voter 1: X (0.30)")
			So(res.Prediction, ShouldEqual, model.Low)
			So(res.ConfidencePct, ShouldEqual, "100.00%")
		})

		Convey("And an invalid range is ignored", func() {
			q := ensemble.New(ensemble.WithSupplementaryConfidence(0.9, 0.1), ensemble.WithRandomSource(fixedSource{}))
			res := q.Aggregate(nil)
			So(res.Explanation, ShouldContainSubstring, "Voter 1: X (0.60)")
		})
	})

	Convey("Given the default predictor", t, func() {
		p := ensemble.New()

		Convey("Then it runs the five models", func() {
			So(p.Models(), ShouldResemble, []string{"streak", "frequency", "markov", "ngram", "rule"})
			So(p.Voters(), ShouldEqual, 5)
		})
	})
}
