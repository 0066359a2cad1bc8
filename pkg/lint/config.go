package lint

import "fmt"

// Config controls which rules run, in which order, and with which severity
// and options.
type Config struct {
	// EnabledRules lists rule IDs in run order. Nil means every registered
	// rule, ordered by ID.
	EnabledRules []string

	// DisabledRules contains rule IDs to skip
	DisabledRules map[string]bool

	// SeverityOverrides changes the default severity of rules
	SeverityOverrides map[string]Severity

	// RuleOptions holds rule-specific options keyed by rule ID
	RuleOptions map[string]map[string]any
}

// NewConfig creates a default configuration with all rules enabled.
func NewConfig() *Config {
	return &Config{
		DisabledRules:     make(map[string]bool),
		SeverityOverrides: make(map[string]Severity),
		RuleOptions:       make(map[string]map[string]any),
	}
}

// IsDisabled returns true if the rule should be skipped.
func (c *Config) IsDisabled(ruleID string) bool {
	if c == nil {
		return false
	}
	return c.DisabledRules[ruleID]
}

// GetSeverity returns the severity for a rule, applying any override.
func (c *Config) GetSeverity(ruleID string, defaultSeverity Severity) Severity {
	if c != nil {
		if sev, ok := c.SeverityOverrides[ruleID]; ok {
			return sev
		}
	}
	return defaultSeverity
}

// GetRuleOptions returns the options configured for a rule, or nil.
func (c *Config) GetRuleOptions(ruleID string) map[string]any {
	if c == nil {
		return nil
	}
	return c.RuleOptions[ruleID]
}

// Enable appends rules to the run order. Rules already enabled keep their
// original position.
func (c *Config) Enable(ruleIDs ...string) *Config {
	for _, id := range ruleIDs {
		if !contains(c.EnabledRules, id) {
			c.EnabledRules = append(c.EnabledRules, id)
		}
	}
	return c
}

// Disable disables a rule by ID.
func (c *Config) Disable(ruleID string) *Config {
	c.DisabledRules[ruleID] = true
	return c
}

// SetSeverity overrides the severity for a rule.
func (c *Config) SetSeverity(ruleID string, severity Severity) *Config {
	c.SeverityOverrides[ruleID] = severity
	return c
}

// SetRuleOptions sets the options passed to a rule.
func (c *Config) SetRuleOptions(ruleID string, opts map[string]any) *Config {
	c.RuleOptions[ruleID] = opts
	return c
}

// ActiveRule is a rule resolved for a run: the rule, its effective severity
// and its options.
type ActiveRule struct {
	Rule     Rule
	Severity Severity
	Options  map[string]any
}

// Activate resolves a rule with its defaults.
func Activate(r Rule) ActiveRule {
	return ActiveRule{Rule: r, Severity: r.DefaultSeverity()}
}

// Resolve turns the configuration into the ordered list of rules to run,
// using the global registry.
func (c *Config) Resolve() ([]ActiveRule, error) {
	return c.ResolveWith(GetRule, GetAll)
}

// ResolveWith is Resolve over an arbitrary rule catalogue.
func (c *Config) ResolveWith(lookup func(id string) (Rule, bool), all func() []Rule) ([]ActiveRule, error) {
	var rules []Rule
	if c == nil || c.EnabledRules == nil {
		rules = all()
	} else {
		for _, id := range c.EnabledRules {
			r, ok := lookup(id)
			if !ok {
				return nil, fmt.Errorf("unknown rule %q", id)
			}
			rules = append(rules, r)
		}
	}

	active := make([]ActiveRule, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if seen[r.ID()] || c.IsDisabled(r.ID()) {
			continue
		}
		seen[r.ID()] = true
		active = append(active, ActiveRule{
			Rule:     r,
			Severity: c.GetSeverity(r.ID(), r.DefaultSeverity()),
			Options:  c.GetRuleOptions(r.ID()),
		})
	}
	return active, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
