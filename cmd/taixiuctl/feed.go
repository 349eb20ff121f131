package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/okian/taixiu/internal/feedsim"
	"github.com/okian/taixiu/pkg/logger"
	"github.com/spf13/cobra"
)

const feedShutdownTimeout = 5 * time.Second

func newFeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Serve a simulated session feed",
		Long:  "Rolls three dice every interval and serves the latest sessions as a JSON array, the shape the server's history_url expects.",
		RunE:  runFeed,
	}
	cmd.Flags().String("addr", ":9090", "Listen address")
	cmd.Flags().String("route", "/sessions", "Route serving the sessions")
	cmd.Flags().Duration("interval", 30*time.Second, "Time between rolled sessions")
	cmd.Flags().Int("history", 100, "Number of sessions kept and served")
	cmd.Flags().Int("seed-sessions", 30, "Sessions rolled before serving")
	cmd.Flags().Int64("start", 1, "Id of the first session")
	cmd.Flags().Int64("seed", 0, "Dice seed, 0 uses system randomness")
	return cmd
}

func runFeed(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	route, _ := cmd.Flags().GetString("route")
	interval, _ := cmd.Flags().GetDuration("interval")
	size, _ := cmd.Flags().GetInt("history")
	initial, _ := cmd.Flags().GetInt("seed-sessions")
	start, _ := cmd.Flags().GetInt64("start")
	seed, _ := cmd.Flags().GetInt64("seed")

	opts := []feedsim.Option{feedsim.WithHistorySize(size), feedsim.WithStartID(start)}
	if seed != 0 {
		opts = append(opts, feedsim.WithSeed(seed))
	}
	feed := feedsim.New(opts...)
	feed.Seed(initial)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serveFeed(cmd.Context(), ln, route, interval, feed)
}

// serveFeed serves feed on ln until ctx ends.
func serveFeed(ctx context.Context, ln net.Listener, route string, interval time.Duration, feed *feedsim.Feed) error {
	log := logger.Get().Named("feed")

	mux := http.NewServeMux()
	mux.Handle(route, feed.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: feedShutdownTimeout}

	if interval > 0 {
		go feed.Run(ctx, interval)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "serving simulated feed",
			logger.String("addr", ln.Addr().String()),
			logger.String("route", route),
			logger.Duration("interval", interval),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), feedShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
