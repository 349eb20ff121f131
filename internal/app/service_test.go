package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/okian/taixiu/internal/app"
	"github.com/okian/taixiu/internal/domain/ensemble"
	"github.com/okian/taixiu/internal/domain/model"
	"github.com/okian/taixiu/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// fakeProvider serves a mutable session list.
type fakeProvider struct {
	mu       sync.Mutex
	sessions []model.Session
	err      error
	calls    int
}

func (f *fakeProvider) Fetch(context.Context) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Session, len(f.sessions))
	copy(out, f.sessions)
	return out, nil
}

func (f *fakeProvider) set(sessions []model.Session, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions, f.err = sessions, err
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// streakSessions returns ids 1..n, all HIGH.
func streakSessions(n int) []model.Session {
	out := make([]model.Session, n)
	for i := range out {
		out[i] = model.Session{ID: int64(i + 1), Outcome: model.High, Dice: []int{6, 5, 4}, Total: 15}
	}
	return out
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a service without a provider", t, func() {
		svc := service.New()

		Convey("Then Start fails", func() {
			So(errors.Is(svc.Start(context.Background()), service.ErrNoProvider), ShouldBeTrue)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service with a provider", t, func() {
		svc := service.New(service.WithProvider(&fakeProvider{sessions: streakSessions(5)}))
		ctx := context.Background()

		Convey("When it is not started", func() {
			_, err := svc.Predict(ctx)

			Convey("Then calls are rejected", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When started and stopped twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			svc.Stop()
			svc.Stop()

			Convey("Then it ends stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When the ledger driver is unknown", func() {
			bad := service.New(
				service.WithProvider(&fakeProvider{}),
				service.WithLedgerDriver("redis", ""),
			)

			Convey("Then Start fails", func() {
				So(bad.Start(ctx), ShouldNotBeNil)
			})
		})
	})
}

func TestService_Predict(t *testing.T) {
	Convey("Given a started service over a 5-long HIGH streak", t, func() {
		ctx := context.Background()
		src := &fakeProvider{sessions: streakSessions(5)}
		clk := &clock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
		svc := service.New(
			service.WithProvider(src),
			service.WithPredictor(ensemble.New(ensemble.WithSeed(7), ensemble.WithSupplementaryVoters(0))),
			service.WithCacheTTL(time.Minute),
			service.WithClock(clk.now),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When predicting", func() {
			resp, err := svc.Predict(ctx)

			Convey("Then the response targets the next session", func() {
				So(err, ShouldBeNil)
				So(resp.Session, ShouldEqual, 5)
				So(resp.NextSession, ShouldEqual, 6)
				So(resp.Result, ShouldEqual, model.LabelHigh)
				So(resp.Pattern, ShouldEqual, "TTTTT")
				So(len(resp.Votes), ShouldEqual, 5)
				So(resp.PredictionID, ShouldNotBeEmpty)
				So(resp.GeneratedAt, ShouldEqual, clk.now())
			})

			Convey("Then the prediction is recorded in the ledger", func() {
				hist, err := svc.History(ctx, 10)
				So(err, ShouldBeNil)
				So(hist.Count, ShouldEqual, 1)
				So(hist.Entries[0].Session, ShouldEqual, 6)
				So(hist.Entries[0].PredictionID, ShouldEqual, resp.PredictionID)
				So(hist.Entries[0].Correct, ShouldBeNil)
			})

			Convey("Then a second prediction reuses the cached history", func() {
				_, err := svc.Predict(ctx)
				So(err, ShouldBeNil)
				So(src.callCount(), ShouldEqual, 1)

				hist, _ := svc.History(ctx, 10)
				So(hist.Count, ShouldEqual, 1)
			})

			Convey("Then the next session's result settles the prediction", func() {
				next := append(streakSessions(5), model.Session{ID: 6, Outcome: model.Outcome(resp.Outcome)})
				src.set(next, nil)
				clk.advance(2 * time.Minute)

				So(svc.Refresh(ctx), ShouldBeNil)

				acc, err := svc.Accuracy(ctx)
				So(err, ShouldBeNil)
				So(acc.Recorded, ShouldEqual, 1)
				So(acc.Settled, ShouldEqual, 1)
				So(acc.Correct, ShouldEqual, 1)
				So(acc.AccuracyText, ShouldEqual, "100.00%")

				hist, _ := svc.History(ctx, 10)
				So(*hist.Entries[0].Correct, ShouldBeTrue)
			})
		})

		Convey("When the cache expires and the upstream fails", func() {
			_, err := svc.Predict(ctx)
			So(err, ShouldBeNil)

			src.set(nil, errors.New("connection refused"))
			clk.advance(2 * time.Minute)

			resp, err := svc.Predict(ctx)

			Convey("Then the stale history is served", func() {
				So(err, ShouldBeNil)
				So(resp.Session, ShouldEqual, 5)
				So(src.callCount(), ShouldEqual, 2)
			})
		})

		Convey("When the stats are read after a prediction", func() {
			_, _ = svc.Predict(ctx)
			stats := svc.GetStats()

			Convey("Then they describe the snapshot and ledger", func() {
				So(stats["historySessions"], ShouldEqual, 5)
				So(stats["latestSession"], ShouldEqual, int64(5))
				So(stats["predictions"], ShouldEqual, int64(1))
				So(stats["ledgerPending"], ShouldEqual, 1)
				So(stats["sessionsSeen"], ShouldEqual, 5)
			})
		})
	})

	Convey("Given a started service whose upstream always fails", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithProvider(&fakeProvider{err: errors.New("boom")}))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then Predict reports an upstream error", func() {
			_, err := svc.Predict(ctx)
			So(errors.Is(err, service.ErrUpstream), ShouldBeTrue)
		})
	})

	Convey("Given a started service whose upstream is empty", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithProvider(&fakeProvider{}))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then Predict reports an empty history", func() {
			_, err := svc.Predict(ctx)
			So(errors.Is(err, service.ErrEmptyHistory), ShouldBeTrue)
		})
	})
}

func TestService_History(t *testing.T) {
	Convey("Given a started service with no predictions", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithProvider(&fakeProvider{sessions: streakSessions(1)}))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then history is empty and a zero limit uses the default page", func() {
			hist, err := svc.History(ctx, 0)
			So(err, ShouldBeNil)
			So(hist.Count, ShouldEqual, 0)
			So(hist.Entries, ShouldNotBeNil)
		})

		Convey("Then accuracy is zero", func() {
			acc, err := svc.Accuracy(ctx)
			So(err, ShouldBeNil)
			So(acc.AccuracyText, ShouldEqual, "0.00%")
		})
	})
}

func TestService_StopDuringRequests(t *testing.T) {
	Convey("Given a started service serving predictions", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithProvider(&fakeProvider{sessions: streakSessions(8)}),
			service.WithPredictor(ensemble.New(ensemble.WithSeed(3))),
			service.WithCacheTTL(0),
		)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When Stop runs while requests are in flight", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 200)
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 25; i++ {
						if _, err := svc.Predict(ctx); err != nil {
							errs <- err
						}
						if _, err := svc.Accuracy(ctx); err != nil {
							errs <- err
						}
					}
				}()
			}
			svc.Stop()
			wg.Wait()
			close(errs)

			Convey("Then requests either succeed or report the service stopped", func() {
				for err := range errs {
					So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				}
			})

			Convey("Then ledger reads after Stop are rejected", func() {
				_, err := svc.History(ctx, 5)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				_, err = svc.Accuracy(ctx)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(svc.Refresh(ctx), service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_SessionsSeen(t *testing.T) {
	Convey("Given a started service whose upstream grows", t, func() {
		ctx := context.Background()
		src := &fakeProvider{sessions: streakSessions(3)}
		svc := service.New(service.WithProvider(src))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		So(svc.Refresh(ctx), ShouldBeNil)
		src.set(streakSessions(5), nil)
		So(svc.Refresh(ctx), ShouldBeNil)
		So(svc.Refresh(ctx), ShouldBeNil)

		Convey("Then each session id is counted once across refreshes", func() {
			So(svc.GetStats()["sessionsSeen"], ShouldEqual, 5)
		})
	})
}
