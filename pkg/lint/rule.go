package lint

import (
	"fmt"

	"github.com/leapstack-labs/leaplint/pkg/tree"
)

// RuleType classifies what a rule reports. Fix filters select rules by type.
type RuleType string

// Rule types.
const (
	TypeProblem    RuleType = "problem"
	TypeSuggestion RuleType = "suggestion"
	TypeLayout     RuleType = "layout"
)

// ParseRuleType validates a rule type name.
func ParseRuleType(s string) (RuleType, error) {
	switch t := RuleType(s); t {
	case TypeProblem, TypeSuggestion, TypeLayout:
		return t, nil
	}
	return "", fmt.Errorf("invalid rule type %q (expected problem, suggestion or layout)", s)
}

// FixKind declares whether and how a rule may fix what it reports.
type FixKind int

// Fix kinds.
const (
	FixNone FixKind = iota
	FixCode
	FixWhitespace
)

func (k FixKind) String() string {
	switch k {
	case FixCode:
		return "code"
	case FixWhitespace:
		return "whitespace"
	default:
		return "none"
	}
}

// MarshalText encodes the fix kind by name.
func (k FixKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a fix kind name.
func (k *FixKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none", "":
		*k = FixNone
	case "code":
		*k = FixCode
	case "whitespace":
		*k = FixWhitespace
	default:
		return fmt.Errorf("invalid fix kind %q", b)
	}
	return nil
}

// Handler is called with the node a listener's selector matched.
type Handler func(n *tree.Node)

// Listener binds a selector string to a handler.
type Listener struct {
	Selector string
	Handler  Handler
}

// Listeners is the ordered listener set a rule returns from Create. Order
// matters: listeners matching the same node fire in slice order.
type Listeners []Listener

// On is shorthand for a Listener literal.
func On(selector string, h Handler) Listener {
	return Listener{Selector: selector, Handler: h}
}

// Rule is the interface all lint rules implement.
type Rule interface {
	// ID returns the unique identifier, e.g., "quotes"
	ID() string

	// Name returns the human-readable name, e.g., "Enforce quote style"
	Name() string

	// Type returns the rule's category
	Type() RuleType

	// Description returns a human-readable description
	Description() string

	// DefaultSeverity returns the default severity for this rule
	DefaultSeverity() Severity

	// Fixable reports whether the rule produces fixes
	Fixable() FixKind

	// ConfigKeys returns configuration keys this rule accepts
	ConfigKeys() []string

	// Documentation methods
	Rationale() string
	BadExample() string
	GoodExample() string
	HowToFix() string

	// Create instantiates the rule for one pass over one file and returns its
	// listeners. It is called again for every pass.
	Create(ctx *Context) (Listeners, error)
}

// CreateFunc builds a rule's listeners for one pass.
type CreateFunc func(ctx *Context) (Listeners, error)

// RuleDef is a data-driven rule definition. Rules keep no state between
// passes; anything a rule needs to remember lives in the closures Create
// returns.
type RuleDef struct {
	ID          string     // Unique identifier, e.g., "quotes"
	Name        string     // Human-readable name
	Type        RuleType   // problem, suggestion or layout
	Description string     // Human-readable description
	Severity    Severity   // Default severity
	Fixable     FixKind    // Whether the rule may attach fixes
	Create      CreateFunc // Listener factory
	ConfigKeys  []string   // Configuration keys this rule accepts

	Rationale   string // Why this rule exists
	BadExample  string // Code showing the anti-pattern
	GoodExample string // Code showing the correct pattern
	HowToFix    string // How to fix violations (when not obvious)
}

// RuleInfo provides metadata about a rule for documentation/tooling.
type RuleInfo struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Type             RuleType `json:"type"`
	Description      string   `json:"description"`
	DefaultSeverity  Severity `json:"default_severity"`
	Fixable          FixKind  `json:"fixable"`
	ConfigKeys       []string `json:"config_keys,omitempty"`
	Rationale        string   `json:"rationale,omitempty"`
	BadExample       string   `json:"bad_example,omitempty"`
	GoodExample      string   `json:"good_example,omitempty"`
	HowToFix         string   `json:"how_to_fix,omitempty"`
	DocumentationURL string   `json:"documentation_url"`
}

// GetRuleInfo extracts metadata from a Rule for documentation/tooling.
func GetRuleInfo(r Rule) RuleInfo {
	return RuleInfo{
		ID:               r.ID(),
		Name:             r.Name(),
		Type:             r.Type(),
		Description:      r.Description(),
		DefaultSeverity:  r.DefaultSeverity(),
		Fixable:          r.Fixable(),
		ConfigKeys:       r.ConfigKeys(),
		Rationale:        r.Rationale(),
		BadExample:       r.BadExample(),
		GoodExample:      r.GoodExample(),
		HowToFix:         r.HowToFix(),
		DocumentationURL: BuildDocURL(r.ID()),
	}
}

// wrappedRuleDef wraps a RuleDef to implement Rule.
type wrappedRuleDef struct {
	def RuleDef
}

// WrapRuleDef wraps a RuleDef to implement the Rule interface.
func WrapRuleDef(def RuleDef) Rule {
	return &wrappedRuleDef{def: def}
}

func (w *wrappedRuleDef) ID() string                { return w.def.ID }
func (w *wrappedRuleDef) Type() RuleType            { return w.def.Type }
func (w *wrappedRuleDef) Description() string       { return w.def.Description }
func (w *wrappedRuleDef) DefaultSeverity() Severity { return w.def.Severity }
func (w *wrappedRuleDef) Fixable() FixKind          { return w.def.Fixable }
func (w *wrappedRuleDef) ConfigKeys() []string      { return w.def.ConfigKeys }

func (w *wrappedRuleDef) Name() string {
	if w.def.Name == "" {
		return w.def.ID
	}
	return w.def.Name
}

// Documentation methods
func (w *wrappedRuleDef) Rationale() string   { return w.def.Rationale }
func (w *wrappedRuleDef) BadExample() string  { return w.def.BadExample }
func (w *wrappedRuleDef) GoodExample() string { return w.def.GoodExample }
func (w *wrappedRuleDef) HowToFix() string    { return w.def.HowToFix }

func (w *wrappedRuleDef) Create(ctx *Context) (Listeners, error) {
	if w.def.Create == nil {
		return nil, fmt.Errorf("rule %q has no Create function", w.def.ID)
	}
	return w.def.Create(ctx)
}

// Unwrap returns the underlying RuleDef.
func (w *wrappedRuleDef) Unwrap() RuleDef {
	return w.def
}
