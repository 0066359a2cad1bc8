// Package rules contains the built-in JavaScript lint rules.
//
// Rules register themselves with the global lint registry from init()
// functions, so importing the package for its side effects is enough:
//
//	import _ "github.com/leapstack-labs/leaplint/pkg/lint/rules"
//
// Rule types:
//   - problem: code that is likely wrong (no-debugger)
//   - suggestion: a better way to write the same thing (no-var, eqeqeq, no-console)
//   - layout: formatting only (quotes, semi, no-trailing-spaces)
package rules
