package poller

import (
	"time"

	"github.com/okian/taixiu/pkg/logger"
)

// Option applies a configuration option to the TickerPoller.
type Option func(*TickerPoller)

// WithName sets the poller name for identification and logging.
func WithName(name string) Option {
	return func(p *TickerPoller) {
		if name != "" {
			p.name = name
		}
	}
}

// WithLogger sets a custom logger for the poller.
func WithLogger(l logger.Logger) Option {
	return func(p *TickerPoller) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithInterval sets the delay between refreshes.
func WithInterval(d time.Duration) Option {
	return func(p *TickerPoller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithImmediate refreshes once as soon as Run starts.
func WithImmediate(on bool) Option {
	return func(p *TickerPoller) {
		p.immediate = on
	}
}
