// Command taixiuctl runs offline predictions, a simulated session feed and
// a watcher against a running prediction server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/taixiu/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}
