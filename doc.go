// Package packrat matches text against parsing expression grammars (PEGs)
// by memoized recursive descent.
//
// A Grammar maps rule names to Expressions built from six kinds of node:
// Terminal, RuleApplication, Sequence, Choice, Repetition and Not. A Session
// matches one input at a time against a Grammar, applying the rule named
// "start" and accepting the input only if that rule consumes all of it:
//
//	g := packrat.MustGrammar(map[string]packrat.Expression{
//		"start": packrat.NewSequence(
//			packrat.NewRepetition(packrat.NewTerminal("a")),
//			packrat.NewTerminal("b"),
//		),
//	})
//	cst, err := packrat.NewSession(g).Match("aab")
//	// cst == []packrat.CST{[]packrat.CST{"a", "a"}, "b"}
//
// Each rule's result at each input position is stored in the session's memo
// table, so a rule is evaluated at most once per position and matching takes
// time linear in the input length.
//
// Left-recursive rules are not supported: a rule that applies itself before
// consuming input recurses until the stack is exhausted. Grammar.Check
// reports such rules, and repetitions that could loop without consuming,
// before matching.
//
// Grammars can also be written as Go code with BuildGrammar.
package packrat
