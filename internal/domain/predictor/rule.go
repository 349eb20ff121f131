package predictor

import (
	"fmt"

	"github.com/okian/taixiu/internal/domain/history"
	"github.com/okian/taixiu/internal/domain/model"
)

// Rule parameters.
const (
	ruleStreakBreak      = 4
	ruleHighPctThreshold = 60
	ruleBreakConfidence  = 0.7
	ruleRatioConfidence  = 0.65
	ruleFollowConfidence = 0.6
)

// RuleModel breaks long streaks, fades a HIGH-heavy history and otherwise
// follows the latest outcome.
type RuleModel struct{}

// NewRuleModel creates the rule-based heuristic model.
func NewRuleModel() *RuleModel { return &RuleModel{} }

// Name implements Model.
func (m *RuleModel) Name() string { return "rule" }

// Predict implements Model.
func (m *RuleModel) Predict(h history.History) model.Vote {
	p := h.Pattern
	last := model.SymbolHigh
	if len(p) > 0 {
		last = p[0]
	}

	if streak := p.Streak(); streak >= ruleStreakBreak {
		next := last.Opposite()
		return vote(m, next, ruleBreakConfidence,
			fmt.Sprintf("Rule: streak of %d %s, breaking it -> %s", streak, last, next))
	}
	if h.Ratios.HighPct > ruleHighPctThreshold {
		return vote(m, model.SymbolLow, ruleRatioConfidence,
			fmt.Sprintf("Rule: T share %.2f%% above %d%% -> X", h.Ratios.HighPct, ruleHighPctThreshold))
	}
	return vote(m, last, ruleFollowConfidence,
		fmt.Sprintf("Rule: following the latest outcome -> %s", last))
}
