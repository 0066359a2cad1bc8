package lint

import (
	"fmt"

	"github.com/leapstack-labs/leaplint/pkg/source"
)

// RulePhase names where a rule failed.
type RulePhase string

// Rule phases.
const (
	PhaseCreate RulePhase = "create"
	PhaseEnter  RulePhase = "enter"
	PhaseExit   RulePhase = "exit"
)

// RuleError reports a rule that failed while being created or while one of
// its listeners ran. It aborts analysis of the file it occurred in.
type RuleError struct {
	RuleID   string
	Phase    RulePhase
	Selector string
	NodeKind string
	Range    source.Range
	Start    source.Position
	Err      error
}

func (e *RuleError) Error() string {
	if e.Phase == PhaseCreate {
		return fmt.Sprintf("rule %q failed to initialize: %v", e.RuleID, e.Err)
	}
	return fmt.Sprintf("rule %q crashed on %s at %s (selector %q): %v",
		e.RuleID, e.NodeKind, e.Start, e.Selector, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}
