package lint

import "strings"

// DocsBaseURL is where the rule reference is published. scripts/gendocs
// writes one page per rule, named by its lowercased ID, so every rule's
// page lives at DocsBaseURL/<id>.
const DocsBaseURL = "https://leaplint.dev/rules"

// BuildDocURL returns the reference page of a rule, or "" for rules
// without an ID such as the syntax error pseudo-rule.
func BuildDocURL(ruleID string) string {
	if ruleID == "" {
		return ""
	}
	return DocsBaseURL + "/" + strings.ToLower(ruleID)
}
