// Package types contains the response shapes shared by the service and API.
package types

import (
	"time"

	"github.com/okian/taixiu/internal/domain/history"
	"github.com/okian/taixiu/internal/domain/model"
)

// PatternPreviewLen is how many pattern symbols a prediction response shows.
const PatternPreviewLen = 20

// VoteView is one model's vote.
type VoteView struct {
	Model       string  `json:"model"`
	Prediction  string  `json:"prediction"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// PredictionResponse merges the ensemble result with the latest session's
// display fields.
type PredictionResponse struct {
	PredictionID string `json:"prediction_id"`

	Session int64  `json:"session"`
	Dice    []int  `json:"dice,omitempty"`
	Total   int    `json:"total"`
	Result  string `json:"result"`

	NextSession    int64        `json:"next_session"`
	Prediction     string       `json:"prediction"`
	Outcome        string       `json:"outcome"`
	Confidence     float64      `json:"confidence"`
	ConfidenceText string       `json:"confidence_text"`
	Explanation    string       `json:"explanation"`
	Pattern        string       `json:"pattern"`
	HistorySize    int          `json:"history_size"`
	Ratios         model.Ratios `json:"ratios"`
	Votes          []VoteView   `json:"votes"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

// NewPredictionResponse shapes a result for callers.
func NewPredictionResponse(id string, h history.History, r model.Result, now time.Time) PredictionResponse {
	latest := h.Latest()
	votes := make([]VoteView, len(r.Votes))
	for i, v := range r.Votes {
		votes[i] = VoteView{
			Model:       v.Model,
			Prediction:  v.Prediction.String(),
			Confidence:  v.Confidence,
			Explanation: v.Explanation,
		}
	}
	return PredictionResponse{
		PredictionID:   id,
		Session:        latest.ID,
		Dice:           latest.Dice,
		Total:          latest.Total,
		Result:         latest.Outcome.Label(),
		NextSession:    latest.ID + 1,
		Prediction:     r.Prediction.Label(),
		Outcome:        string(r.Prediction),
		Confidence:     r.Confidence,
		ConfidenceText: r.ConfidencePct,
		Explanation:    r.Explanation,
		Pattern:        h.Pattern.Head(PatternPreviewLen).String(),
		HistorySize:    h.Len(),
		Ratios:         h.Ratios,
		Votes:          votes,
		GeneratedAt:    now,
	}
}

// LedgerEntry is one recorded prediction and, once known, its result.
type LedgerEntry struct {
	PredictionID string    `json:"prediction_id"`
	Session      int64     `json:"session"`
	Prediction   string    `json:"prediction"`
	Confidence   float64   `json:"confidence"`
	Actual       string    `json:"actual,omitempty"`
	Correct      *bool     `json:"correct,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryResponse lists recent ledger entries, newest first.
type HistoryResponse struct {
	Entries []LedgerEntry `json:"entries"`
	Count   int           `json:"count"`
}

// AccuracyResponse summarises graded predictions.
type AccuracyResponse struct {
	Recorded     int     `json:"recorded"`
	Settled      int     `json:"settled"`
	Pending      int     `json:"pending"`
	Correct      int     `json:"correct"`
	AccuracyPct  float64 `json:"accuracy_pct"`
	AccuracyText string  `json:"accuracy_text"`
}
