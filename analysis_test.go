package packrat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckLeftRecursion(t *testing.T) {
	testCases := []struct {
		name  string
		rules map[string]Expression
		want  []string
	}{
		{
			name: "self",
			rules: map[string]Expression{
				"start": NewRuleApplication("start"),
			},
			want: []string{"start"},
		},
		{
			name: "direct",
			rules: map[string]Expression{
				"start": NewChoice(
					NewSequence(NewRuleApplication("start"), NewTerminal("+"), NewTerminal("1")),
					NewTerminal("1"),
				),
			},
			want: []string{"start"},
		},
		{
			name: "indirect",
			rules: map[string]Expression{
				"start": NewRuleApplication("a"),
				"a":     NewSequence(NewRuleApplication("b"), NewTerminal("x")),
				"b":     NewChoice(NewRuleApplication("a"), NewTerminal("y")),
			},
			want: []string{"a", "b"},
		},
		{
			name: "behind nullable prefix",
			rules: map[string]Expression{
				"start": NewSequence(NewRuleApplication("ws"), NewRuleApplication("start"), NewTerminal("x")),
				"ws":    NewRepetition(NewTerminal(" ")),
			},
			want: []string{"start"},
		},
		{
			name: "behind lookahead",
			rules: map[string]Expression{
				"start": NewSequence(NewNot(NewRuleApplication("start")), NewTerminal("x")),
			},
			want: []string{"start"},
		},
		{
			name: "guarded by input",
			rules: map[string]Expression{
				"start": NewChoice(
					NewSequence(NewTerminal("("), NewRuleApplication("start"), NewTerminal(")")),
					NewTerminal("x"),
				),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := MustGrammar(tc.rules)
			var got []string
			for _, issue := range g.Check() {
				if issue.Kind == LeftRecursion {
					got = append(got, issue.Rule)
				}
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCheckEmptyRepetition(t *testing.T) {
	g := MustGrammar(map[string]Expression{
		"start": NewSequence(
			NewRepetition(NewNot(NewTerminal("x"))),
			NewRepetition(NewTerminal("y")),
			NewRepetition(NewRuleApplication("maybe")),
		),
		"maybe": NewChoice(NewTerminal("z"), NewTerminal("")),
	})

	issues := g.Check()
	if assert.Len(t, issues, 2) {
		assert.Equal(t, EmptyRepetition, issues[0].Kind)
		assert.Equal(t, "start", issues[0].Rule)
		assert.Equal(t, `!"x"*`, issues[0].Expr.String())
		assert.Equal(t, `rule "start": empty repetition in !"x"*`, issues[0].String())
		assert.Equal(t, `maybe*`, issues[1].Expr.String())
	}
}

func TestCheckClean(t *testing.T) {
	g := MustGrammar(map[string]Expression{
		"start": NewSequence(NewRuleApplication("ws"), NewRepetition(NewRuleApplication("item"))),
		"item":  NewSequence(NewTerminal("i"), NewRuleApplication("ws")),
		"ws":    NewRepetition(NewTerminal(" ")),
	})
	assert.Empty(t, g.Check())
}

func TestNullable(t *testing.T) {
	g := MustGrammar(map[string]Expression{
		"start": NewSequence(NewRuleApplication("opt"), NewRuleApplication("word")),
		"opt":   NewChoice(NewTerminal("a"), NewSequence()),
		"word":  NewTerminal("w"),
		"empty": NewTerminal(""),
		"chain": NewSequence(NewRuleApplication("opt"), NewRuleApplication("empty")),
		"guard": NewNot(NewRuleApplication("word")),
	})

	assert.True(t, g.Nullable("opt"))
	assert.True(t, g.Nullable("empty"))
	assert.True(t, g.Nullable("chain"))
	assert.True(t, g.Nullable("guard"))
	assert.False(t, g.Nullable("word"))
	assert.False(t, g.Nullable("start"))
	assert.False(t, g.Nullable("missing"))
}

func TestIssueKindString(t *testing.T) {
	assert.Equal(t, "left recursion", LeftRecursion.String())
	assert.Equal(t, "empty repetition", EmptyRepetition.String())
	assert.Equal(t, "IssueKind(7)", IssueKind(7).String())
	assert.Equal(t, `rule "expr" is left recursive`, Issue{Kind: LeftRecursion, Rule: "expr"}.String())
}
