package history

import "errors"

// Sentinel kinds for history normalization.
var (
	ErrEmptyHistory = errors.New("empty session history")
)
