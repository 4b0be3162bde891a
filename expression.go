package packrat

import (
	"strconv"
	"strings"
)

// Expression is a node of a parsing expression. The set of expressions is
// closed: Terminal, RuleApplication, Sequence, Choice, Repetition and Not.
type Expression interface {
	// eval matches the expression at the session's cursor. On failure the
	// cursor may be left anywhere; restoring it is up to the caller.
	eval(s *Session) (CST, bool)

	String() string
}

var (
	_ Expression = (*Terminal)(nil)
	_ Expression = (*RuleApplication)(nil)
	_ Expression = (*Sequence)(nil)
	_ Expression = (*Choice)(nil)
	_ Expression = (*Repetition)(nil)
	_ Expression = (*Not)(nil)
)

// Terminal matches a literal string.
type Terminal struct {
	Literal string
}

func NewTerminal(literal string) *Terminal {
	return &Terminal{Literal: literal}
}

func (e *Terminal) eval(s *Session) (CST, bool) {
	for i := 0; i < len(e.Literal); {
		r, size := decodeChar(e.Literal[i:])
		if !s.consume(r) {
			return nil, false
		}
		i += size
	}
	return e.Literal, true
}

func (e *Terminal) String() string {
	return strconv.Quote(e.Literal)
}

// RuleApplication applies a named rule of the session's grammar. It is the
// only expression that reads or writes the memo table: a rule is evaluated at
// most once per input position, later applications reuse the stored result.
//
// A rule that can reach itself without consuming input (left recursion)
// recurses until the goroutine stack is exhausted.
type RuleApplication struct {
	Name string
}

func NewRuleApplication(name string) *RuleApplication {
	return &RuleApplication{Name: name}
}

func (e *RuleApplication) eval(s *Session) (CST, bool) {
	if s.hasMemoizedResult(e.Name) {
		return s.useMemoizedResult(e.Name)
	}

	origin := s.pos
	s.enterRule(e.Name, origin)
	cst, ok := s.grammar.rules[e.Name].eval(s)
	s.memoizeResult(origin, e.Name, cst, ok)
	s.exitRule(e.Name, origin, ok)
	return cst, ok
}

func (e *RuleApplication) String() string {
	return e.Name
}

// Sequence matches each part in order. Its value lists the value of every
// part except those that are Not.
type Sequence struct {
	Parts []Expression
}

func NewSequence(parts ...Expression) *Sequence {
	return &Sequence{Parts: parts}
}

func (e *Sequence) eval(s *Session) (CST, bool) {
	ans := make([]CST, 0, len(e.Parts))
	for _, part := range e.Parts {
		cst, ok := part.eval(s)
		if !ok {
			return nil, false
		}
		if _, lookahead := part.(*Not); !lookahead {
			ans = append(ans, cst)
		}
	}
	return ans, true
}

func (e *Sequence) String() string {
	return "(" + join(e.Parts, " ") + ")"
}

// Choice tries each alternative from the same position and takes the first
// that matches.
type Choice struct {
	Alternatives []Expression
}

func NewChoice(alternatives ...Expression) *Choice {
	return &Choice{Alternatives: alternatives}
}

func (e *Choice) eval(s *Session) (CST, bool) {
	origin := s.pos
	for _, alt := range e.Alternatives {
		s.pos = origin
		if cst, ok := alt.eval(s); ok {
			return cst, true
		}
	}
	return nil, false
}

func (e *Choice) String() string {
	return "(" + join(e.Alternatives, " / ") + ")"
}

// Repetition matches its expression zero or more times, greedily. It never
// fails. An expression that can match without consuming input repeats
// forever.
type Repetition struct {
	Expr Expression
}

func NewRepetition(expr Expression) *Repetition {
	return &Repetition{Expr: expr}
}

func (e *Repetition) eval(s *Session) (CST, bool) {
	ans := []CST{}
	for {
		origin := s.pos
		cst, ok := e.Expr.eval(s)
		if !ok {
			s.pos = origin
			break
		}
		ans = append(ans, cst)
	}
	return ans, true
}

func (e *Repetition) String() string {
	return e.Expr.String() + "*"
}

// Not is negative lookahead. It succeeds, consuming nothing, when its
// expression fails. When the expression matches, Not fails and leaves the
// cursor where the expression stopped; an enclosing Choice or the next Match
// puts it back.
type Not struct {
	Expr Expression
}

func NewNot(expr Expression) *Not {
	return &Not{Expr: expr}
}

func (e *Not) eval(s *Session) (CST, bool) {
	origin := s.pos
	if _, ok := e.Expr.eval(s); !ok {
		s.pos = origin
		return Lookahead{}, true
	}
	return nil, false
}

func (e *Not) String() string {
	return "!" + e.Expr.String()
}

func join(exprs []Expression, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}
