package config

import (
	"fmt"

	"github.com/leapstack-labs/leaplint/pkg/lint"
)

// LintConfig converts the rules section into a lint.Config. An empty rules
// list enables every registered rule. only, when non-empty, keeps just the
// named rules.
func (c *Config) LintConfig(only ...string) (*lint.Config, error) {
	lc := lint.NewConfig()
	for _, r := range c.Rules {
		lc.Enable(r.ID)
		if r.Severity != "" {
			if lint.IsOff(r.Severity) {
				lc.Disable(r.ID)
				continue
			}
			sev, ok := lint.ParseSeverity(r.Severity)
			if !ok {
				return nil, fmt.Errorf("rule %q: invalid severity %q", r.ID, r.Severity)
			}
			lc.SetSeverity(r.ID, sev)
		}
		if len(r.Options) > 0 {
			lc.SetRuleOptions(r.ID, r.Options)
		}
	}

	if len(only) > 0 {
		for _, id := range only {
			if _, ok := lint.GetRule(id); !ok {
				return nil, fmt.Errorf("unknown rule %q", id)
			}
		}
		if lc.EnabledRules == nil {
			lc.Enable(only...)
		}
		for _, id := range lc.EnabledRules {
			if !contains(only, id) {
				lc.Disable(id)
			}
		}
		for _, id := range only {
			delete(lc.DisabledRules, id)
			lc.Enable(id)
		}
	}
	return lc, nil
}

// ActiveRules resolves the enabled rules in run order.
func (c *Config) ActiveRules(only ...string) ([]lint.ActiveRule, error) {
	lc, err := c.LintConfig(only...)
	if err != nil {
		return nil, err
	}
	return lc.Resolve()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
