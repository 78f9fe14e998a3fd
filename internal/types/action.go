package types

import "fmt"

// ActionKind classifies a verified manager action recorded in the effort
// ledger. Each kind carries a fixed weight configured at startup.
type ActionKind string

const (
	ActionTradeExecution ActionKind = "TRADE_EXECUTION"
	ActionRebalance      ActionKind = "REBALANCE"
	ActionRiskReview     ActionKind = "RISK_REVIEW"
	ActionReport         ActionKind = "REPORT"
)

func (a ActionKind) String() string {
	return string(a)
}

// AllActionKinds lists every kind a weight must be configured for.
func AllActionKinds() []ActionKind {
	return []ActionKind{
		ActionTradeExecution,
		ActionRebalance,
		ActionRiskReview,
		ActionReport,
	}
}

func ParseActionKind(s string) (ActionKind, error) {
	switch ActionKind(s) {
	case ActionTradeExecution, ActionRebalance, ActionRiskReview, ActionReport:
		return ActionKind(s), nil
	default:
		return "", fmt.Errorf("unknown action kind: %s", s)
	}
}
