package packrat

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRule(t *testing.T, g *Grammar, name string, accept []string, reject []string) {
	t.Helper()

	// same grammar, entered at the rule under test
	rules := make(map[string]Expression, len(g.rules))
	for k, v := range g.rules {
		rules[k] = v
	}
	rules[StartRule] = NewRuleApplication(name)

	s := NewSession(MustGrammar(rules))
	for _, input := range accept {
		_, err := s.Match(input)
		assert.NoError(t, err, "rule %q should accept %q", name, input)
	}
	for _, input := range reject {
		_, err := s.Match(input)
		assert.ErrorIs(t, err, ErrNoMatch, "rule %q should reject %q", name, input)
	}
}

func TestBuilderErrors(t *testing.T) {
	var err error
	var g *Builder

	// grammars need a start rule
	_, err = BuildGrammar(func(g *Builder) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingStart)
	t.Logf("test grammar raised error:\n %v", err)

	// start rule must exist
	_, err = BuildGrammar(func(g *Builder) {
		g.Start = "missing"
	})
	assert.ErrorIs(t, err, ErrMissingStart)

	// all called rules must be defined
	_, err = BuildGrammar(func(g *Builder) {
		g.Define("start", func() {
			g.Call("missing")
		})
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRule)

	var gerr *GrammarError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, "start", gerr.Rule)
	assert.True(t, strings.HasSuffix(gerr.File, "builder_test.go"), "error points at the call site, got %q", gerr.File)
	assert.NotZero(t, gerr.Line)

	// nested defines should fail
	_, err = BuildGrammar(func(g *Builder) {
		g.Define("start", func() {
			g.Define("expr2", func() {
			})
		})
	})
	assert.Error(t, err)

	// operators outside defines should fail
	_, err = BuildGrammar(func(g *Builder) {
		g.Define("start", func() {})
		g.Literal("true")
	})
	assert.Error(t, err)

	// redefinition should fail
	_, err = BuildGrammar(func(g *Builder) {
		g.Define("start", func() {})
		g.Define("start", func() {})
	})
	assert.ErrorContains(t, err, "cant redefine")

	// calling builders outside should fail
	g = &Builder{}
	g.Define("expr2", func() {})
	assert.Error(t, g.Err())

	// empty operands
	_, err = BuildGrammar(func(g *Builder) {
		g.Define("start", func() {
			g.Literal()
		})
	})
	assert.ErrorContains(t, err, "missing operand")

	_, err = BuildGrammar(func(g *Builder) {
		g.Define("start", func() {
			g.Repeat(func() {})
		})
	})
	assert.ErrorContains(t, err, "empty repeat")

	// start is reserved when another rule is the entry point
	_, err = BuildGrammar(func(g *Builder) {
		g.Start = "expr"
		g.Define("expr", func() {
			g.Call("start")
		})
		g.Define("start", func() {
			g.Literal("x")
		})
	})
	assert.ErrorContains(t, err, "reserved")
}

func TestBuilderMissingRulesInOrder(t *testing.T) {
	for i := 0; i < 20; i++ {
		b := &Builder{}
		_, err := b.Build(func(g *Builder) {
			g.Define("start", func() {
				g.Call("zeta")
				g.Call("alpha")
				g.Call("mu")
			})
		})
		require.ErrorIs(t, err, ErrMissingRule)
		assert.Contains(t, b.Err().Error(), `missing rule "alpha"`)

		var msgs []string
		for _, e := range b.Errors() {
			msgs = append(msgs, e.(*GrammarError).Message)
		}
		assert.Equal(t, []string{`missing rule "alpha"`, `missing rule "mu"`, `missing rule "zeta"`}, msgs)
	}
}

func TestBuildSessionErrorPosition(t *testing.T) {
	_, err := BuildSession(func(g *Builder) {
		g.Define("expr", func() {
			g.Literal("x")
		})
	})
	require.ErrorIs(t, err, ErrMissingStart)

	var gerr *GrammarError
	require.True(t, errors.As(err, &gerr))
	assert.True(t, strings.HasSuffix(gerr.File, "builder_test.go"), "error points at the call site, got %q", gerr.File)

	s, err := BuildSession(func(g *Builder) {
		g.Define("start", func() {
			g.Literal("x")
		})
	})
	require.NoError(t, err)
	_, err = s.Match("x")
	assert.NoError(t, err)
}

func TestBuilderWarnings(t *testing.T) {
	b := &Builder{}
	_, err := b.Build(func(g *Builder) {
		g.Define("start", func() {
			g.Literal("a")
		})
		g.Define("unused", func() {
			g.Literal("b")
		})
	})
	require.NoError(t, err)
	require.Len(t, b.Warnings(), 1)
	assert.Contains(t, b.Warnings()[0].Error(), `unused rule "unused"`)
	assert.Empty(t, b.Errors())
}

func TestBuilderRules(t *testing.T) {
	g, err := BuildGrammar(func(g *Builder) {
		g.Define("start", func() {
			g.Call("test_literal")
			g.Call("test_optional")
			g.Call("test_repeat")
			g.Call("test_reject")
			g.Call("test_lookahead")
		})

		g.Define("test_literal", func() {
			g.Literal("example")
		})
		g.Define("test_optional", func() {
			g.Optional(func() {
				g.Literal("1")
			})
			g.Literal("2")
			g.Optional(func() {
				g.Literal("3")
			})
			g.Literal("4")
		})
		g.Define("test_repeat", func() {
			g.Literal("<")
			g.Repeat(func() {
				g.Literal("0", "1")
			})
			g.Literal(">")
		})
		g.Define("test_reject", func() {
			g.Reject(func() {
				g.Literal("0")
			})
			g.Literal("0", "1", "2")
		})
		g.Define("test_lookahead", func() {
			g.Lookahead(func() {
				g.Literal("x")
			})
			g.Literal("xy", "x")
		})
	})
	require.NoError(t, err)

	testRule(t, g, "test_literal",
		[]string{"example"},
		[]string{"", "bad", "longer example", "example bad"},
	)
	testRule(t, g, "test_optional",
		[]string{"24", "124", "234", "1234"},
		[]string{"", "1", "34", "23", "123"},
	)
	testRule(t, g, "test_repeat",
		[]string{"<>", "<0>", "<0110>"},
		[]string{"", "<", "<2>", "<01"},
	)
	testRule(t, g, "test_reject",
		[]string{"1", "2"},
		[]string{"", "0", "12"},
	)
	testRule(t, g, "test_lookahead",
		[]string{"x", "xy"},
		[]string{"", "y", "xx"},
	)
}

func TestBuilderShapes(t *testing.T) {
	g, err := BuildGrammar(func(g *Builder) {
		g.Define("start", func() {
			g.Optional(func() {
				g.Literal("-")
			})
			g.Reject(func() {
				g.Literal("0")
			})
			g.Repeat(func() {
				g.Call("digit")
			})
		})
		g.Define("digit", func() {
			g.Literal("0", "1", "2")
		})
	})
	require.NoError(t, err)

	want := NewSequence(
		NewChoice(NewTerminal("-"), NewSequence()),
		NewNot(NewTerminal("0")),
		NewRepetition(NewRuleApplication("digit")),
	)
	got, ok := g.Rule("start")
	require.True(t, ok)
	if diff := cmp.Diff(want.String(), got.String()); diff != "" {
		t.Errorf("start rule mismatch (-want +got):\n%s", diff)
	}

	s := NewSession(g)
	cst, err := s.Match("-12")
	require.NoError(t, err)
	if diff := cmp.Diff([]CST{"-", []CST{"1", "2"}}, cst); diff != "" {
		t.Errorf("cst mismatch (-want +got):\n%s", diff)
	}
	cst, err = s.Match("21")
	require.NoError(t, err)
	if diff := cmp.Diff([]CST{[]CST{}, []CST{"2", "1"}}, cst); diff != "" {
		t.Errorf("cst mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilderStart(t *testing.T) {
	s, err := BuildSession(func(g *Builder) {
		g.Start = "expr"

		g.Define("expr", func() {
			g.Choice(func() {
				g.Call("truerule")
			}, func() {
				g.Call("falserule")
			})
		})

		g.Define("truerule", func() {
			g.Literal("true")
		})

		g.Define("falserule", func() {
			g.Literal("false")
		})
	})
	require.NoError(t, err)

	for _, input := range []string{"true", "false"} {
		cst, err := s.Match(input)
		require.NoError(t, err)
		assert.Equal(t, input, cst)
	}
	for _, input := range []string{"", "true1", "0false", "null"} {
		_, err := s.Match(input)
		assert.ErrorIs(t, err, ErrNoMatch, input)
	}
	assert.Equal(t, []string{"expr", "falserule", "start", "truerule"}, s.Grammar().RuleNames())
}

func TestBuilderRange(t *testing.T) {
	g, err := BuildGrammar(func(g *Builder) {
		g.Define("start", func() {
			g.Range("a-c", "_")
			g.Repeat(func() {
				g.Range("0-9")
			})
		})
	})
	require.NoError(t, err)

	s := NewSession(g)
	for _, input := range []string{"a", "c09", "_123"} {
		_, err := s.Match(input)
		assert.NoError(t, err, input)
	}
	for _, input := range []string{"", "d", "-", "a-", "9"} {
		_, err := s.Match(input)
		assert.ErrorIs(t, err, ErrNoMatch, input)
	}

	_, err = BuildGrammar(func(g *Builder) {
		g.Define("start", func() {
			g.Range("z-a")
		})
	})
	assert.ErrorContains(t, err, `invalid range "z-a"`)

	_, err = BuildGrammar(func(g *Builder) {
		g.Define("start", func() {
			g.Range("\u0000-\uffff")
		})
	})
	assert.ErrorContains(t, err, "too wide")
}
