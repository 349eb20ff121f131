package provider

import (
	"net/http"
	"time"

	"github.com/okian/taixiu/pkg/logger"
)

// Option configures an HTTPProvider.
type Option func(*HTTPProvider)

// WithPath sets the gjson path of the session array inside the body.
func WithPath(path string) Option {
	return func(p *HTTPProvider) { p.path = path }
}

// WithTimeout bounds a single HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(p *HTTPProvider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithRequestsPerSecond caps upstream request rate.
func WithRequestsPerSecond(n int) Option {
	return func(p *HTTPProvider) {
		if n > 0 {
			p.rps = n
		}
	}
}

// WithMaxElapsed bounds the total time spent retrying one fetch.
func WithMaxElapsed(d time.Duration) Option {
	return func(p *HTTPProvider) {
		if d > 0 {
			p.maxElapsed = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *HTTPProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *HTTPProvider) {
		if l != nil {
			p.log = l
		}
	}
}
