package packrat

import (
	"errors"
	"fmt"
	"sort"
)

// StartRule is the rule a Session applies to the whole input.
const StartRule = "start"

var (
	ErrMissingStart = errors.New("grammar has no start rule")
	ErrMissingRule  = errors.New("missing rule")
	ErrNilRule      = errors.New("rule has no expression")
)

// Grammar maps rule names to expressions. It is immutable once built and
// may be shared by any number of Sessions.
type Grammar struct {
	rules map[string]Expression
	names []string
}

// NewGrammar builds a grammar from rules, which must include StartRule. Every
// RuleApplication reachable from a rule must name a rule in rules. The map is
// copied; expressions are not, and must not be modified afterwards.
func NewGrammar(rules map[string]Expression) (*Grammar, error) {
	g := &Grammar{
		rules: make(map[string]Expression, len(rules)),
		names: make([]string, 0, len(rules)),
	}
	for name, expr := range rules {
		g.rules[name] = expr
		g.names = append(g.names, name)
	}
	sort.Strings(g.names)

	var errs []error
	if _, ok := g.rules[StartRule]; !ok {
		errs = append(errs, ErrMissingStart)
	}
	for _, name := range g.names {
		if isNil(g.rules[name]) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrNilRule, name))
			continue
		}
		walk(g.rules[name], func(e Expression) {
			if isNil(e) {
				errs = append(errs, fmt.Errorf("%w: nil expression inside %q", ErrNilRule, name))
				return
			}
			switch e := e.(type) {
			case *RuleApplication:
				if _, ok := g.rules[e.Name]; !ok {
					errs = append(errs, fmt.Errorf("%w %q (applied in %q)", ErrMissingRule, e.Name, name))
				}
			}
		})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g, nil
}

// MustGrammar is NewGrammar that panics on error, for grammars declared as
// package variables.
func MustGrammar(rules map[string]Expression) *Grammar {
	g, err := NewGrammar(rules)
	if err != nil {
		panic(err)
	}
	return g
}

// Rule returns the expression of the named rule.
func (g *Grammar) Rule(name string) (Expression, bool) {
	e, ok := g.rules[name]
	return e, ok
}

// RuleNames returns the names of all rules, sorted.
func (g *Grammar) RuleNames() []string {
	return append([]string(nil), g.names...)
}

// walk calls fn for e and every expression below it, stopping at rule
// applications.
func walk(e Expression, fn func(Expression)) {
	fn(e)
	if isNil(e) {
		return
	}
	switch e := e.(type) {
	case *Sequence:
		for _, p := range e.Parts {
			walk(p, fn)
		}
	case *Choice:
		for _, a := range e.Alternatives {
			walk(a, fn)
		}
	case *Repetition:
		walk(e.Expr, fn)
	case *Not:
		walk(e.Expr, fn)
	}
}

// isNil reports whether e is nil, either as an interface or as a nil pointer
// to one of the expression types.
func isNil(e Expression) bool {
	switch e := e.(type) {
	case nil:
		return true
	case *Terminal:
		return e == nil
	case *RuleApplication:
		return e == nil
	case *Sequence:
		return e == nil
	case *Choice:
		return e == nil
	case *Repetition:
		return e == nil
	case *Not:
		return e == nil
	}
	return false
}
