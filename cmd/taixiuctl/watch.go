package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/taixiu/internal/feedsim"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll a running server for predictions and accuracy",
		RunE:  runWatch,
	}
	cmd.Flags().String("url", "http://localhost:9080", "Base URL of the prediction server")
	cmd.Flags().Int("count", 1, "Number of predictions to fetch, 0 runs until interrupted")
	cmd.Flags().Duration("interval", 10*time.Second, "Time between predictions")
	cmd.Flags().Duration("timeout", 10*time.Second, "HTTP request timeout")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	url, _ := cmd.Flags().GetString("url")
	count, _ := cmd.Flags().GetInt("count")
	interval, _ := cmd.Flags().GetDuration("interval")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx := cmd.Context()
	client := feedsim.NewClient(url, timeout)
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("server not healthy: %w", err)
	}

	out := cmd.OutOrStdout()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; count == 0 || i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
		if err := watchOnce(ctx, client, out); err != nil {
			return err
		}
	}
	return nil
}

func watchOnce(ctx context.Context, client *feedsim.Client, out io.Writer) error {
	pred, err := client.Predict(ctx)
	if err != nil {
		return err
	}
	acc, err := client.Accuracy(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "session %d %s -> next %d: %s (%s) | pattern %s | accuracy %s over %d settled\n",
		pred.Session, pred.Result, pred.NextSession, pred.Prediction, pred.ConfidenceText,
		pred.Pattern, acc.AccuracyText, acc.Settled)
	return err
}
