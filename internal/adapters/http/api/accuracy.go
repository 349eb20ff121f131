package api

import (
	"context"
	"net/http"

	"github.com/okian/taixiu/internal/domain/types"
)

// AccuracyDependencies defines the interface for accuracy reporting.
type AccuracyDependencies interface {
	Accuracy(ctx context.Context) (types.AccuracyResponse, error)
}

// AccuracyHandler handles accuracy requests.
type AccuracyHandler struct {
	deps AccuracyDependencies
}

// NewAccuracyHandler creates a new accuracy handler.
func NewAccuracyHandler(deps AccuracyDependencies) *AccuracyHandler {
	return &AccuracyHandler{deps: deps}
}

// HandleAccuracy handles GET /accuracy requests.
func (h *AccuracyHandler) HandleAccuracy(w http.ResponseWriter, r *http.Request) {
	const op = "api.accuracy"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	resp, err := h.deps.Accuracy(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
