// Package provider fetches completed sessions from the upstream history feed.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/okian/taixiu/internal/domain/model"
	"github.com/okian/taixiu/pkg/logger"
	"github.com/okian/taixiu/pkg/metrics"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultRPS        = 5
	defaultMaxElapsed = 15 * time.Second
	maxBodyBytes      = 8 << 20
)

// Provider returns completed sessions in whatever order the upstream uses.
type Provider interface {
	Fetch(ctx context.Context) ([]model.Session, error)
}

// HTTPProvider reads sessions from an HTTP JSON endpoint with rate limiting
// and exponential backoff.
type HTTPProvider struct {
	url        string
	path       string
	timeout    time.Duration
	rps        int
	maxElapsed time.Duration
	client     *http.Client
	limiter    *rate.Limiter
	log        logger.Logger
}

// NewHTTP creates a provider for url.
func NewHTTP(url string, opts ...Option) *HTTPProvider {
	p := &HTTPProvider{
		url:        url,
		timeout:    defaultTimeout,
		rps:        defaultRPS,
		maxElapsed: defaultMaxElapsed,
		log:        logger.Get().Named("provider"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: p.timeout}
	}
	p.log = p.log.With(logger.String("url", url))
	p.limiter = rate.NewLimiter(rate.Every(time.Second/time.Duration(p.rps)), p.rps)
	return p
}

// Fetch performs one rate-limited, retried GET and decodes the body.
func (p *HTTPProvider) Fetch(ctx context.Context) ([]model.Session, error) {
	start := time.Now()
	defer func() { metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds())) }()

	var body []byte
	operation := func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		b, err := p.get(ctx)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = p.maxElapsed

	notify := func(err error, wait time.Duration) {
		metrics.RecordFetchRetry()
		p.log.Warn(ctx, "history fetch retry",
			logger.Error(err),
			logger.Duration("wait", wait),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(strategy, ctx), notify); err != nil {
		metrics.RecordFetchError(fetchReason(err))
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	decoded, err := Decode(body, p.path)
	if err != nil {
		metrics.RecordFetchError("decode")
		return nil, err
	}
	if decoded.Skipped > 0 {
		metrics.RecordSkippedSessions(decoded.Skipped)
		p.log.Warn(ctx, "skipped unrecognised history items", logger.Int("count", decoded.Skipped))
	}
	if decoded.Duplicates > 0 {
		metrics.RecordSkippedSessions(decoded.Duplicates)
		p.log.Warn(ctx, "dropped repeated history sessions", logger.Int("count", decoded.Duplicates))
	}
	return decoded.Sessions, nil
}

func (p *HTTPProvider) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func fetchReason(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return "status"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	default:
		return "transport"
	}
}

// Static serves a fixed session list; useful for offline runs and tests.
type Static []model.Session

// Fetch returns a copy of the list.
func (s Static) Fetch(_ context.Context) ([]model.Session, error) {
	out := make([]model.Session, len(s))
	copy(out, s)
	return out, nil
}
