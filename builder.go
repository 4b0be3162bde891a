package packrat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
)

const (
	inGrammar   = "inside-grammar"
	inDef       = "inside-definition"
	inChoice    = "inside-choice"
	inOptional  = "inside-optional"
	inRepeat    = "inside-repeat"
	inReject    = "inside-reject"
	inLookahead = "inside-lookahead"
)

type nodeBuilder struct {
	rule    *int
	context string
	args    []Expression
}

// buildNode turns the operations recorded in one stub into an expression:
// a single operation stands for itself, anything else is a sequence.
func (b *nodeBuilder) buildNode() Expression {
	if len(b.args) == 1 {
		return b.args[0]
	}
	return NewSequence(b.args...)
}

func (b *nodeBuilder) append(e Expression) {
	b.args = append(b.args, e)
}

func (b *nodeBuilder) inRule() bool {
	return b != nil && b.context != inGrammar
}

type position struct {
	file string
	line int
	rule *int
}

func (p position) String() string {
	return fmt.Sprintf("%v:%v", p.file, p.line)
}

// GrammarError reports a mistake in a grammar built with BuildGrammar, at the
// Go source line of the builder call that caused it.
type GrammarError struct {
	File    string
	Line    int
	Rule    string // enclosing rule, empty outside Define
	RuleAt  string // file:line of the enclosing Define
	Message string

	err error
}

func (e *GrammarError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%v:%v: %v (inside %q at %v)", e.File, e.Line, e.Message, e.Rule, e.RuleAt)
	}
	return fmt.Sprintf("%v:%v: %v", e.File, e.Line, e.Message)
}

func (e *GrammarError) Unwrap() error {
	return e.err
}

// Builder assembles a Grammar from Go code:
//
//	g, err := packrat.BuildGrammar(func(g *packrat.Builder) {
//		g.Define("start", func() {
//			g.Repeat(func() {
//				g.Literal("a")
//			})
//			g.Literal("b")
//		})
//	})
//
// Operations called one after another inside a stub form a Sequence.
type Builder struct {
	// Start names the rule matched against the whole input. It defaults to
	// StartRule; any other name is applied through a generated StartRule.
	Start string

	rules   []Expression
	names   []string
	nameIdx map[string]int

	// list of pos for each called name
	callPos map[string][]int

	// list of pos for each numbered rule
	rulePos []int
	// list of positions
	posInfo []position

	nb *nodeBuilder

	pos      int // grammar position
	errors   []error
	warnings []error
	err      error
	checked  bool
}

// Err returns the first error recorded while building.
func (g *Builder) Err() error {
	return g.err
}

// Errors returns every error recorded while building.
func (g *Builder) Errors() []error {
	if g.errors == nil {
		return []error{}
	}
	return g.errors
}

// Warnings returns problems that do not stop the grammar from being built,
// such as rules that are never called.
func (g *Builder) Warnings() []error {
	if g.warnings == nil {
		return []error{}
	}
	return g.warnings
}

func (g *Builder) newError(pos int, cause error, msg string) *GrammarError {
	p := g.posInfo[pos]
	err := &GrammarError{File: p.file, Line: p.line, Message: msg, err: cause}
	if p.rule != nil {
		err.Rule = g.names[*p.rule]
		err.RuleAt = g.posInfo[g.rulePos[*p.rule]].String()
	}
	return err
}

func (g *Builder) errorf(pos int, cause error, s string, args ...any) {
	err := g.newError(pos, cause, fmt.Sprintf(s, args...))
	if g.err == nil {
		g.err = err
	}
	g.errors = append(g.errors, err)
}

func (g *Builder) warnf(pos int, s string, args ...any) {
	g.warnings = append(g.warnings, g.newError(pos, nil, fmt.Sprintf(s, args...)))
}

func (g *Builder) markPosition() int {
	_, file, no, ok := runtime.Caller(2)
	if !ok {
		file, no = "unknown", 0
	}
	if base, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(base, file); err == nil {
			file = rel
		}
	}
	var rule *int
	if g.nb != nil {
		rule = g.nb.rule
	}
	p := len(g.posInfo)
	g.posInfo = append(g.posInfo, position{file: file, line: no, rule: rule})
	return p
}

func (g *Builder) shouldExit(pos int) bool {
	if g.err != nil {
		return true
	}
	if g.nb == nil {
		g.errorf(pos, nil, "must call builder methods inside builder")
		return true
	}
	if !g.nb.inRule() {
		g.errorf(pos, nil, "must call builder methods inside Define()")
		return true
	}
	return false
}

func (g *Builder) buildStub(context string, stub func()) *nodeBuilder {
	var rule *int
	oldNb := g.nb
	if oldNb != nil {
		rule = oldNb.rule
	}
	newNb := &nodeBuilder{context: context, rule: rule}
	g.nb = newNb
	stub()
	g.nb = oldNb
	return newNb
}

func (g *Builder) buildRule(rule int, stub func()) *nodeBuilder {
	oldNb := g.nb
	newNb := &nodeBuilder{context: inDef, rule: &rule}
	g.nb = newNb
	stub()
	g.nb = oldNb
	return newNb
}

func (g *Builder) buildGrammar(stub func(*Builder)) error {
	if g.nb != nil || g.names != nil {
		return errors.New("use empty builder")
	}
	g.nameIdx = make(map[string]int)
	g.callPos = make(map[string][]int)
	g.nb = &nodeBuilder{context: inGrammar}

	stub(g)
	g.nb = nil

	return g.Check()
}

// Define adds a rule. The operations called inside stub form its body.
func (g *Builder) Define(name string, stub func()) {
	p := g.markPosition()
	if g.err != nil {
		return
	} else if g.nb == nil {
		g.errorf(p, nil, "must call define inside grammar")
		return
	} else if g.nb.inRule() {
		g.errorf(p, nil, "cant call define inside define")
		return
	}

	if old, ok := g.nameIdx[name]; ok {
		oldPos := g.posInfo[g.rulePos[old]]
		g.errorf(p, nil, "cant redefine %q, already defined at %v", name, oldPos)
		return
	}

	ruleNum := len(g.names)
	g.names = append(g.names, name)
	g.nameIdx[name] = ruleNum
	g.rulePos = append(g.rulePos, p)

	r := g.buildRule(ruleNum, stub)
	g.rules = append(g.rules, r.buildNode())
}

// Call applies the named rule.
func (g *Builder) Call(name string) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	g.callPos[name] = append(g.callPos[name], p)
	g.nb.append(NewRuleApplication(name))
}

// Literal matches a string. Given several, it matches the first of them that
// fits, in order.
func (g *Builder) Literal(s ...string) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	if len(s) == 0 {
		g.errorf(p, nil, "missing operand")
		return
	}

	if len(s) == 1 {
		g.nb.append(NewTerminal(s[0]))
		return
	}
	args := make([]Expression, len(s))
	for i, v := range s {
		args[i] = NewTerminal(v)
	}
	g.nb.append(NewChoice(args...))
}

// maxRange bounds how many characters one Range call may expand to.
const maxRange = 1024

// Range matches one character from the given ranges. Each range is either a
// single character or two characters around a dash, "a-z". The ranges become
// a choice of one terminal per character.
func (g *Builder) Range(ranges ...string) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	if len(ranges) == 0 {
		g.errorf(p, nil, "missing operand")
		return
	}

	var args []Expression
	for _, rng := range ranges {
		r := []rune(rng)
		switch {
		case len(r) == 1:
			args = append(args, NewTerminal(rng))
		case len(r) == 3 && r[1] == '-' && r[0] <= r[2]:
			if len(args)+int(r[2]-r[0]) >= maxRange {
				g.errorf(p, nil, "range %q is too wide", rng)
				return
			}
			for c := r[0]; c <= r[2]; c++ {
				args = append(args, NewTerminal(string(c)))
			}
		default:
			g.errorf(p, nil, "invalid range %q", rng)
			return
		}
	}

	if len(args) == 1 {
		g.nb.append(args[0])
		return
	}
	g.nb.append(NewChoice(args...))
}

// Choice matches the first of the options that fits.
func (g *Builder) Choice(options ...func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	if len(options) == 0 {
		g.errorf(p, nil, "missing operand")
		return
	}

	args := make([]Expression, len(options))
	for i, stub := range options {
		r := g.buildStub(inChoice, stub)

		if g.err != nil {
			return
		}

		args[i] = r.buildNode()
	}
	g.nb.append(NewChoice(args...))
}

// Optional matches stub, or nothing. An absent match has an empty list as
// its value.
func (g *Builder) Optional(stub func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	r := g.buildStub(inOptional, stub)
	if g.err != nil {
		return
	}

	g.nb.append(NewChoice(r.buildNode(), NewSequence()))
}

// Repeat matches stub zero or more times.
func (g *Builder) Repeat(stub func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}

	r := g.buildStub(inRepeat, stub)

	if g.err != nil {
		return
	}
	if len(r.args) == 0 {
		g.errorf(p, nil, "empty repeat never stops")
		return
	}

	g.nb.append(NewRepetition(r.buildNode()))
}

// Reject succeeds, consuming nothing, only if stub does not match here.
func (g *Builder) Reject(stub func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}

	r := g.buildStub(inReject, stub)

	if g.err != nil {
		return
	}

	g.nb.append(NewNot(r.buildNode()))
}

// Lookahead succeeds, consuming nothing, only if stub matches here.
func (g *Builder) Lookahead(stub func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}

	r := g.buildStub(inLookahead, stub)

	if g.err != nil {
		return
	}

	g.nb.append(NewNot(NewNot(r.buildNode())))
}

// Check validates the rules defined so far.
func (g *Builder) Check() error {
	if g.err != nil || g.checked {
		return g.err
	}
	g.checked = true
	if g.Start == "" {
		g.Start = StartRule
	}

	called := make([]string, 0, len(g.callPos))
	for name := range g.callPos {
		called = append(called, name)
	}
	sort.Strings(called)
	for _, name := range called {
		if _, ok := g.nameIdx[name]; !ok {
			for _, p := range g.callPos[name] {
				g.errorf(p, ErrMissingRule, "missing rule %q", name)
			}
		}
	}

	for n, name := range g.names {
		if name != g.Start && g.callPos[name] == nil {
			g.warnf(g.rulePos[n], "unused rule %q", name)
		}
	}

	if _, ok := g.nameIdx[g.Start]; !ok {
		g.errorf(g.pos, ErrMissingStart, "starting rule %q is missing", g.Start)
	} else if _, ok := g.nameIdx[StartRule]; ok && g.Start != StartRule {
		g.errorf(g.pos, nil, "rule %q is reserved when Start is %q", StartRule, g.Start)
	}

	return g.err
}

// Grammar returns the built grammar.
func (g *Builder) Grammar() (*Grammar, error) {
	if g.Check() != nil {
		return nil, g.err
	}

	rules := make(map[string]Expression, len(g.rules)+1)
	for k, v := range g.rules {
		rules[g.names[k]] = v
	}
	if g.Start != StartRule {
		rules[StartRule] = NewRuleApplication(g.Start)
	}
	return NewGrammar(rules)
}

// Build runs stub against g and returns the grammar it defines. A Builder
// builds one grammar; Warnings stay available afterwards.
func (g *Builder) Build(stub func(*Builder)) (*Grammar, error) {
	g.pos = g.markPosition()
	err := g.buildGrammar(stub)
	if err != nil {
		return nil, err
	}
	return g.Grammar()
}

// BuildGrammar runs stub against a new Builder and returns the grammar it
// defines.
func BuildGrammar(stub func(*Builder)) (*Grammar, error) {
	g := &Builder{}
	g.pos = g.markPosition()
	if err := g.buildGrammar(stub); err != nil {
		return nil, err
	}
	return g.Grammar()
}

// MustBuildGrammar is BuildGrammar that panics on error, for grammars
// declared as package variables.
func MustBuildGrammar(stub func(*Builder)) *Grammar {
	g := &Builder{}
	g.pos = g.markPosition()
	if err := g.buildGrammar(stub); err != nil {
		panic(err)
	}
	grammar, err := g.Grammar()
	if err != nil {
		panic(err)
	}
	return grammar
}

// BuildSession builds a grammar and returns a Session for it.
func BuildSession(stub func(*Builder), opts ...SessionOption) (*Session, error) {
	g := &Builder{}
	g.pos = g.markPosition()
	if err := g.buildGrammar(stub); err != nil {
		return nil, err
	}
	grammar, err := g.Grammar()
	if err != nil {
		return nil, err
	}
	return NewSession(grammar, opts...), nil
}
