package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/lint/linter"
	_ "github.com/leapstack-labs/leaplint/pkg/lint/rules" // register built-in rules
)

var ruleTypeOrder = []lint.RuleType{lint.TypeProblem, lint.TypeSuggestion, lint.TypeLayout}

// generateRuleDocs writes an index of all registered rules plus one page per
// rule, named so that each page sits at the rule's documentation URL.
func generateRuleDocs(outDir string) error {
	log.Printf("Generating rule docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	infos := lint.AllRules()
	if err := writeFile(outDir, "index.md", ruleIndex(infos)); err != nil {
		return err
	}
	log.Printf("  Generated index.md")

	for _, info := range infos {
		name := strings.ToLower(info.ID) + ".md"
		if err := writeFile(outDir, name, rulePage(info)); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", info.ID, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

func ruleIndex(infos []lint.RuleInfo) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("Rules", "Built-in leaplint rules")
	w.GeneratedMarker()

	w.Header(1, "Rules")
	w.Paragraph(fmt.Sprintf("leaplint ships %d built-in rules. Rules marked fixable can be corrected automatically with %s.",
		len(infos), InlineCode("leaplint lint --fix")))

	title := cases.Title(language.English)
	for _, t := range ruleTypeOrder {
		var rows [][]string
		for _, info := range infos {
			if info.Type != t {
				continue
			}
			link := fmt.Sprintf("[%s](/rules/%s)", InlineCode(info.ID), strings.ToLower(info.ID))
			rows = append(rows, []string{link, cleanDescription(info.Description), info.DefaultSeverity.String(), fixableLabel(info.Fixable)})
		}
		if len(rows) == 0 {
			continue
		}
		w.Header(2, title.String(string(t)))
		w.Table([]string{"Rule", "Description", "Severity", "Fixable"}, rows)
	}
	return w.Bytes()
}

func rulePage(info lint.RuleInfo) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(info.ID, cleanDescription(info.Description))
	w.GeneratedMarker()

	w.Header(1, info.ID)
	w.Paragraph(info.Description)

	w.BulletList([]string{
		Bold("Type:") + " " + string(info.Type),
		Bold("Default severity:") + " " + info.DefaultSeverity.String(),
		Bold("Fixable:") + " " + fixableLabel(info.Fixable),
	})

	if info.Rationale != "" {
		w.Header(2, "Rationale")
		w.Paragraph(info.Rationale)
	}
	if info.BadExample != "" {
		w.Header(2, "Incorrect")
		w.CodeBlock("js", info.BadExample)
	}
	if info.GoodExample != "" {
		w.Header(2, "Correct")
		w.CodeBlock("js", info.GoodExample)
	}
	if info.HowToFix != "" {
		w.Header(2, "How to Fix")
		w.Paragraph(info.HowToFix)
	}
	if len(info.ConfigKeys) > 0 {
		w.Header(2, "Options")
		keys := make([]string, len(info.ConfigKeys))
		for i, k := range info.ConfigKeys {
			keys[i] = InlineCode(k)
		}
		w.BulletList(keys)
		w.CodeBlock("yaml", fmt.Sprintf("rules:\n  - id: %s\n    options:\n      %s: ...", info.ID, info.ConfigKeys[0]))
	}

	w.Header(2, "Disabling")
	w.CodeBlock("js", "// "+linter.DirectivePrefix+"disable-next-line "+info.ID)
	return w.Bytes()
}

func fixableLabel(k lint.FixKind) string {
	if k == lint.FixNone {
		return "no"
	}
	return k.String()
}

func writeFile(dir, name string, content []byte) error {
	return os.WriteFile(filepath.Join(dir, name), content, 0600)
}
