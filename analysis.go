package packrat

import (
	"fmt"
	"sort"
)

// IssueKind classifies a problem found by Check.
type IssueKind int

const (
	// LeftRecursion marks a rule that can apply itself before consuming
	// input. Matching such a rule never returns.
	LeftRecursion IssueKind = iota
	// EmptyRepetition marks a Repetition whose expression can succeed
	// without consuming input. Once it does, the repetition loops forever.
	EmptyRepetition
)

func (k IssueKind) String() string {
	switch k {
	case LeftRecursion:
		return "left recursion"
	case EmptyRepetition:
		return "empty repetition"
	default:
		return fmt.Sprintf("IssueKind(%d)", int(k))
	}
}

// Issue is a problem Check found in one rule.
type Issue struct {
	Kind IssueKind
	Rule string
	Expr Expression
}

func (i Issue) String() string {
	switch i.Kind {
	case LeftRecursion:
		return fmt.Sprintf("rule %q is left recursive", i.Rule)
	default:
		return fmt.Sprintf("rule %q: %v in %v", i.Rule, i.Kind, i.Expr)
	}
}

// Check looks for grammar shapes that make matching run forever. It reports
// them and changes nothing: a Session still evaluates such a grammar as
// written.
func (g *Grammar) Check() []Issue {
	nullable := g.nullableRules()

	var issues []Issue
	for _, name := range g.names {
		if g.leftRecursive(name, nullable) {
			issues = append(issues, Issue{Kind: LeftRecursion, Rule: name})
		}
	}
	for _, name := range g.names {
		walk(g.rules[name], func(e Expression) {
			if rep, ok := e.(*Repetition); ok && isNullable(rep.Expr, nullable) {
				issues = append(issues, Issue{Kind: EmptyRepetition, Rule: name, Expr: rep})
			}
		})
	}
	return issues
}

// Nullable reports whether the named rule can succeed without consuming
// input.
func (g *Grammar) Nullable(rule string) bool {
	return g.nullableRules()[rule]
}

// nullableRules computes which rules can succeed on empty input, iterating
// until no rule changes.
func (g *Grammar) nullableRules() map[string]bool {
	nullable := make(map[string]bool, len(g.names))
	for changed := true; changed; {
		changed = false
		for _, name := range g.names {
			if !nullable[name] && isNullable(g.rules[name], nullable) {
				nullable[name] = true
				changed = true
			}
		}
	}
	return nullable
}

func isNullable(e Expression, rules map[string]bool) bool {
	switch e := e.(type) {
	case *Terminal:
		return e.Literal == ""
	case *RuleApplication:
		return rules[e.Name]
	case *Sequence:
		for _, p := range e.Parts {
			if !isNullable(p, rules) {
				return false
			}
		}
		return true
	case *Choice:
		for _, a := range e.Alternatives {
			if isNullable(a, rules) {
				return true
			}
		}
		return false
	case *Repetition, *Not:
		return true
	default:
		panic(fmt.Sprintf("packrat: unknown expression %T", e))
	}
}

// leftCalls adds to out the rules e may apply at the position it starts at.
func leftCalls(e Expression, nullable map[string]bool, out map[string]bool) {
	switch e := e.(type) {
	case *Terminal:
	case *RuleApplication:
		out[e.Name] = true
	case *Sequence:
		for _, p := range e.Parts {
			leftCalls(p, nullable, out)
			if !isNullable(p, nullable) {
				return
			}
		}
	case *Choice:
		for _, a := range e.Alternatives {
			leftCalls(a, nullable, out)
		}
	case *Repetition:
		leftCalls(e.Expr, nullable, out)
	case *Not:
		leftCalls(e.Expr, nullable, out)
	default:
		panic(fmt.Sprintf("packrat: unknown expression %T", e))
	}
}

func (g *Grammar) leftRecursive(rule string, nullable map[string]bool) bool {
	seen := map[string]bool{}
	stack := []string{rule}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		calls := map[string]bool{}
		leftCalls(g.rules[name], nullable, calls)
		next := make([]string, 0, len(calls))
		for c := range calls {
			next = append(next, c)
		}
		sort.Strings(next)
		for _, c := range next {
			if c == rule {
				return true
			}
			if !seen[c] {
				seen[c] = true
				stack = append(stack, c)
			}
		}
	}
	return false
}
