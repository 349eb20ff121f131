package service

import (
	"time"

	"github.com/okian/taixiu/internal/adapters/provider"
	"github.com/okian/taixiu/internal/adapters/repository"
	"github.com/okian/taixiu/internal/domain/ensemble"
	"github.com/okian/taixiu/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProvider sets the history source.
func WithProvider(p provider.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithPredictor sets the ensemble used for predictions.
func WithPredictor(p *ensemble.Predictor) Option {
	return func(s *Service) {
		if p != nil {
			s.predictor = p
		}
	}
}

// WithLedger sets an already opened ledger. The caller keeps ownership.
func WithLedger(l repository.Store) Option {
	return func(s *Service) {
		if l != nil {
			s.ledger = l
		}
	}
}

// WithLedgerDriver makes Start open a ledger with repository.Open.
func WithLedgerDriver(driver, dsn string) Option {
	return func(s *Service) {
		s.ledgerDriver = driver
		s.ledgerDSN = dsn
	}
}

// WithCacheTTL sets how long a fetched history is reused.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.cacheTTL = d
		}
	}
}

// WithRefreshInterval enables background polling; zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
