package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	app "github.com/okian/taixiu/internal/app"
	"github.com/okian/taixiu/internal/config"
	"github.com/okian/taixiu/internal/feedsim"
	"github.com/okian/taixiu/pkg/logger"
	"github.com/okian/taixiu/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("TAIXIU_ADDR", ":8080")
			_ = os.Setenv("TAIXIU_SUPPLEMENTARY_VOTERS", "3")
			defer func() {
				_ = os.Unsetenv("TAIXIU_ADDR")
				_ = os.Unsetenv("TAIXIU_SUPPLEMENTARY_VOTERS")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SupplementaryVoters, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When building the service from defaults", func() {
			svc := newService(config.New())

			convey.Convey("Then it is created but not started", func() {
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(svc.GetStats()["started"], convey.ShouldEqual, false)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a simulated upstream and a configured service", t, func() {
		feed := feedsim.New(feedsim.WithSeed(4), feedsim.WithStartID(100))
		feed.Seed(25)
		upstream := httptest.NewServer(feed.Handler())
		defer upstream.Close()

		cfg := config.New()
		cfg.HistoryURL = upstream.URL
		cfg.RandomSeed = 99
		cfg.RefreshIntervalMS = 0

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc := newService(cfg)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newMux(ctx, cfg, svc))
		defer srv.Close()

		convey.Convey("When the CLI client asks for a prediction", func() {
			client := feedsim.NewClient(srv.URL, 5*time.Second)
			resp, err := client.Predict(ctx)

			convey.Convey("Then the full stack answers", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(resp.Session, convey.ShouldEqual, 124)
				convey.So(resp.NextSession, convey.ShouldEqual, 125)
				convey.So(len(resp.Votes), convey.ShouldEqual, 5)
				convey.So(client.Health(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the documentation routes are requested", func() {
			for _, path := range []string{"/api-docs", "/openapi.yaml", "/docs/"} {
				r, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = r.Body.Close()
				convey.So(r.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When running the system metrics updater until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("When running the service metrics updater until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startServiceMetricsUpdater(ctx, app.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("When updating metrics directly", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(app.New()) }, convey.ShouldNotPanic)
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When the config file sets an empty address", func() {
			f, err := os.CreateTemp("", "taixiu-config-*.yaml")
			convey.So(err, convey.ShouldBeNil)
			_, _ = f.WriteString("addr: \"\"\n")
			_ = f.Close()
			defer func() { _ = os.Remove(f.Name()) }()

			_ = os.Setenv("TAIXIU_CONFIG", f.Name())
			defer func() { _ = os.Unsetenv("TAIXIU_CONFIG") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the ledger driver cannot be opened", func() {
			cfg := config.New()
			cfg.LedgerDriver = "redis"

			convey.Convey("Then run fails before serving", func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				convey.So(run(ctx, cfg), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When an invalid log format is configured", func() {
			cfg := config.New()
			cfg.LogFormat = "xml"
			cfg.LogLevel = "chatty"

			convey.Convey("Then logging falls back without panicking", func() {
				convey.So(func() { configureLogging(context.Background(), cfg) }, convey.ShouldNotPanic)
			})
		})
	})
}
