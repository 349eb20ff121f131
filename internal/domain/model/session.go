// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"strings"
)

// ErrUnknownOutcome is returned when a source label maps to neither outcome.
var ErrUnknownOutcome = errors.New("unknown outcome label")

// Outcome is the result of one game session.
type Outcome string

// Outcomes of a session.
const (
	High Outcome = "HIGH"
	Low  Outcome = "LOW"
)

// Source labels used by the upstream feed.
const (
	LabelHigh = "TAI"
	LabelLow  = "XIU"
)

// ParseOutcome maps a source label to an Outcome. Accepts TAI/XIU,
// HIGH/LOW and T/X in any case.
func ParseOutcome(label string) (Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "TAI", "TÀI", "HIGH", "T":
		return High, nil
	case "XIU", "XỈU", "LOW", "X":
		return Low, nil
	default:
		return "", ErrUnknownOutcome
	}
}

// Symbol returns the pattern symbol for the outcome.
func (o Outcome) Symbol() Symbol {
	if o == High {
		return SymbolHigh
	}
	return SymbolLow
}

// Label returns the upstream display label (TAI/XIU).
func (o Outcome) Label() string {
	if o == High {
		return LabelHigh
	}
	return LabelLow
}

// Session is one completed game round as delivered by the data provider.
type Session struct {
	ID      int64   // strictly increasing over time
	Outcome Outcome // HIGH or LOW
	Dice    []int   // display only
	Total   int     // display only
}

// Symbol is a single pattern character: 'T' for HIGH, 'X' for LOW.
type Symbol byte

// Pattern symbols.
const (
	SymbolHigh Symbol = 'T'
	SymbolLow  Symbol = 'X'
)

// Opposite returns the other symbol.
func (s Symbol) Opposite() Symbol {
	if s == SymbolHigh {
		return SymbolLow
	}
	return SymbolHigh
}

// Outcome converts the symbol back to an Outcome.
func (s Symbol) Outcome() Outcome {
	if s == SymbolHigh {
		return High
	}
	return Low
}

func (s Symbol) String() string { return string(rune(s)) }

// Pattern is the most-recent-first symbol sequence of a history.
type Pattern []Symbol

func (p Pattern) String() string {
	b := make([]byte, len(p))
	for i, s := range p {
		b[i] = byte(s)
	}
	return string(b)
}

// Head returns at most n leading symbols without copying.
func (p Pattern) Head(n int) Pattern {
	if n > len(p) {
		n = len(p)
	}
	return p[:n]
}

// Streak returns the length of the run of identical symbols at the head.
func (p Pattern) Streak() int {
	if len(p) == 0 {
		return 0
	}
	n := 1
	for n < len(p) && p[n] == p[0] {
		n++
	}
	return n
}

// Ratios is the HIGH/LOW split over a whole history, in percent rounded to
// two decimals independently (the sum may be off by 0.01).
type Ratios struct {
	HighPct float64 `json:"high_pct"`
	LowPct  float64 `json:"low_pct"`
}

// Vote is the output of a single model.
type Vote struct {
	Model       string
	Prediction  Symbol
	Confidence  float64
	Explanation string
}

// Result is the ensemble decision.
type Result struct {
	Prediction    Outcome
	Confidence    float64 // percent, rounded to two decimals
	ConfidencePct string  // e.g. "63.21%"
	Explanation   string
	Votes         []Vote // the real model votes, synthetic voters excluded
}
