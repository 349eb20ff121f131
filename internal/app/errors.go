package service

import (
	"errors"

	"github.com/okian/taixiu/internal/domain/history"
)

// Sentinel error kinds for the service.
var (
	ErrNotStarted = errors.New("service not started")
	ErrNoProvider = errors.New("no history provider configured")
	ErrUpstream   = errors.New("history upstream unavailable")

	// ErrEmptyHistory is returned when the upstream has no usable sessions.
	ErrEmptyHistory = history.ErrEmptyHistory
)
