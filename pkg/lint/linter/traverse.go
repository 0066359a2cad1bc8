package linter

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/lint/selector"
	"github.com/leapstack-labs/leaplint/pkg/tree"
)

// binding ties a registered listener back to the rule that owns it.
type binding struct {
	rule     string
	selector string
	handler  lint.Handler
}

// instantiate creates every active rule against tr, in order, and indexes
// their listeners. Each call yields fresh rule state.
func instantiate(rules []lint.ActiveRule, tr *tree.Tree, filename string, sink func(lint.Violation)) (ix *selector.Index[*binding], err error) {
	ix = selector.NewIndex[*binding]()
	for _, active := range rules {
		ruleID := active.Rule.ID()
		ctx := lint.NewContext(active, tr, filename, sink)

		listeners, err := create(active.Rule, ctx)
		if err != nil {
			return nil, &lint.RuleError{RuleID: ruleID, Phase: lint.PhaseCreate, Err: err}
		}
		for _, l := range listeners {
			if l.Handler == nil {
				continue
			}
			sels, err := selector.Compile(l.Selector)
			if err != nil {
				return nil, &lint.RuleError{RuleID: ruleID, Phase: lint.PhaseCreate, Selector: l.Selector, Err: err}
			}
			ix.Add(sels, &binding{rule: ruleID, selector: l.Selector, handler: l.Handler})
		}
	}
	return ix, nil
}

func create(rule lint.Rule, ctx *lint.Context) (listeners lint.Listeners, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return rule.Create(ctx)
}

// dispatcher walks a tree and fires matching listeners.
type dispatcher struct {
	tree *tree.Tree
	ix   *selector.Index[*binding]
}

// run performs the depth-first traversal: Program enter, then for each
// named node its enter listeners, its named children and its exit
// listeners, then Program exit. The first listener failure aborts the walk.
func (d *dispatcher) run() error {
	root := d.tree.Root()
	if err := d.virtual(root, false); err != nil {
		return err
	}
	if err := d.visit(root); err != nil {
		return err
	}
	return d.virtual(root, true)
}

func (d *dispatcher) visit(n *tree.Node) error {
	if err := d.fire(n, false); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if !c.Named() {
			continue
		}
		if err := d.visit(c); err != nil {
			return err
		}
	}
	return d.fire(n, true)
}

func (d *dispatcher) virtual(root *tree.Node, exit bool) error {
	var err error
	d.ix.Exact(selector.ProgramKind, exit, func(e *selector.Entry[*binding]) {
		if err == nil && e.Selector.Match(d.tree, root) {
			err = call(e.Value, root, exit)
		}
	})
	return err
}

func (d *dispatcher) fire(n *tree.Node, exit bool) error {
	var err error
	fired := -1
	d.ix.Candidates(n.Kind(), exit, func(e *selector.Entry[*binding]) {
		if err != nil || e.Group == fired {
			return
		}
		if e.Selector.Match(d.tree, n) {
			fired = e.Group
			err = call(e.Value, n, exit)
		}
	})
	return err
}

// call runs one handler and converts a panic into a RuleError that names
// the rule and the node it was visiting.
func call(b *binding, n *tree.Node, exit bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			phase := lint.PhaseEnter
			if exit {
				phase = lint.PhaseExit
			}
			err = &lint.RuleError{
				RuleID:   b.rule,
				Phase:    phase,
				Selector: b.selector,
				NodeKind: n.Kind(),
				Range:    n.Range(),
				Err:      panicError(r),
			}
		}
	}()
	b.handler(n)
	return nil
}

// panicStack holds the stack of a recovered rule panic.
type panicStack struct {
	value any
	stack []byte
}

func (p *panicStack) Error() string {
	return fmt.Sprint(p.value)
}

func (p *panicStack) Unwrap() error {
	if err, ok := p.value.(error); ok {
		return err
	}
	return nil
}

func panicError(r any) error {
	return &panicStack{value: r, stack: debug.Stack()}
}

// Stack returns the goroutine stack captured when a rule panicked, if err
// came from one.
func Stack(err error) []byte {
	var p *panicStack
	if errors.As(err, &p) {
		return p.stack
	}
	return nil
}
