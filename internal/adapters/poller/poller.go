// Package poller drives periodic history refreshes in the background.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/taixiu/pkg/logger"
	"github.com/okian/taixiu/pkg/metrics"
)

const defaultInterval = 10 * time.Second

// Refresher is refreshed on every tick.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Poller runs a refresh loop.
type Poller interface {
	// Run starts the loop until ctx is canceled or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the loop and waits for an in-flight refresh.
	Shutdown(ctx context.Context) error
}

var _ Poller = (*TickerPoller)(nil)

// TickerPoller calls a Refresher on a fixed interval.
type TickerPoller struct {
	target    Refresher
	name      string
	interval  time.Duration
	immediate bool

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// New creates a poller for target.
func New(target Refresher, opts ...Option) *TickerPoller {
	p := &TickerPoller{
		target:   target,
		name:     "poller",
		interval: defaultInterval,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("poller"),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.name != "poller" {
		p.logger = p.logger.Named(p.name)
	}

	return p
}

// Run starts the refresh loop.
func (p *TickerPoller) Run(ctx context.Context) {
	defer close(p.done)

	if p.immediate {
		p.refresh(ctx)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

// Shutdown gracefully stops the poller.
func (p *TickerPoller) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() { close(p.shutdown) })

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (p *TickerPoller) refresh(ctx context.Context) {
	start := time.Now()
	err := p.target.Refresh(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("poller", "refresh_error")
		metrics.RecordErrorLatency("poller", "refresh_error", float64(time.Since(start).Milliseconds()))
		p.logger.Error(ctx, "refresh failed", logger.Error(err))
		return
	}
	p.logger.Debug(ctx, "refreshed", logger.Duration("took", time.Since(start)))
}
