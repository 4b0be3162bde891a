// Package infix evaluates arithmetic statements such as "x = (1 + 2) * -3"
// with a packrat grammar.
//
// Operators are the usual + - * / with * and / binding tighter, all left
// associative. Operator chains are written as repetitions rather than left
// recursion, and folded left to right when evaluating.
package infix

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tef/packrat"
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrUndefined      = errors.New("undefined variable")
	ErrUnexpectedCST  = errors.New("unexpected cst")
)

var Grammar = packrat.MustBuildGrammar(func(g *packrat.Builder) {
	g.Start = "statement"

	g.Define("statement", func() {
		g.Call("ws")
		g.Optional(func() {
			g.Call("name")
			g.Call("ws")
			g.Literal("=")
			g.Reject(func() {
				g.Literal("=")
			})
			g.Call("ws")
		})
		g.Call("expression")
		g.Call("ws")
	})

	g.Define("expression", func() {
		g.Call("term")
		g.Repeat(func() {
			g.Call("ws")
			g.Literal("+", "-")
			g.Call("ws")
			g.Call("term")
		})
	})

	g.Define("term", func() {
		g.Call("factor")
		g.Repeat(func() {
			g.Call("ws")
			g.Literal("*", "/")
			g.Call("ws")
			g.Call("factor")
		})
	})

	g.Define("factor", func() {
		g.Choice(func() {
			g.Call("number")
		}, func() {
			g.Literal("(")
			g.Call("ws")
			g.Call("expression")
			g.Call("ws")
			g.Literal(")")
		}, func() {
			g.Literal("-")
			g.Call("ws")
			g.Call("factor")
		}, func() {
			g.Call("name")
		})
	})

	g.Define("number", func() {
		g.Range("0-9")
		g.Repeat(func() {
			g.Range("0-9")
		})
		g.Optional(func() {
			g.Literal(".")
			g.Range("0-9")
			g.Repeat(func() {
				g.Range("0-9")
			})
		})
	})

	g.Define("name", func() {
		g.Range("a-z", "A-Z", "_")
		g.Repeat(func() {
			g.Range("a-z", "A-Z", "0-9", "_")
		})
	})

	g.Define("ws", func() {
		g.Repeat(func() {
			g.Literal(" ", "\t")
		})
	})
})

// Env holds variables set by assignments.
type Env map[string]float64

// Evaluator evaluates statements against its Env. It is not safe for
// concurrent use.
type Evaluator struct {
	Env Env

	session *packrat.Session
}

func NewEvaluator(opts ...packrat.SessionOption) *Evaluator {
	return &Evaluator{
		Env:     Env{},
		session: packrat.NewSession(Grammar, opts...),
	}
}

// Eval evaluates one statement. An assignment stores its value and returns
// it.
func (e *Evaluator) Eval(input string) (float64, error) {
	cst, err := e.session.Match(input)
	if err != nil {
		return 0, fmt.Errorf("infix: %w", err)
	}
	return e.statement(cst)
}

// Eval evaluates input with a new Evaluator.
func Eval(input string) (float64, error) {
	return NewEvaluator().Eval(input)
}

func unexpected(what string, cst packrat.CST) error {
	return fmt.Errorf("infix: %w for %s: %v", ErrUnexpectedCST, what, cst)
}

func (e *Evaluator) statement(cst packrat.CST) (float64, error) {
	v, ok := cst.([]packrat.CST)
	if !ok || len(v) != 4 {
		return 0, unexpected("statement", cst)
	}
	value, err := e.expression(v[2])
	if err != nil {
		return 0, err
	}
	if assign, ok := v[1].([]packrat.CST); ok && len(assign) > 0 {
		e.Env[packrat.Flatten(assign[0])] = value
	}
	return value, nil
}

func (e *Evaluator) expression(cst packrat.CST) (float64, error) {
	return e.fold(cst, e.term)
}

func (e *Evaluator) term(cst packrat.CST) (float64, error) {
	return e.fold(cst, e.factor)
}

// fold evaluates "operand (ws op ws operand)*" from left to right.
func (e *Evaluator) fold(cst packrat.CST, operand func(packrat.CST) (float64, error)) (float64, error) {
	v, ok := cst.([]packrat.CST)
	if !ok || len(v) != 2 {
		return 0, unexpected("operator chain", cst)
	}
	acc, err := operand(v[0])
	if err != nil {
		return 0, err
	}
	rest, ok := v[1].([]packrat.CST)
	if !ok {
		return 0, unexpected("operator chain", cst)
	}
	for _, r := range rest {
		step, ok := r.([]packrat.CST)
		if !ok || len(step) != 4 {
			return 0, unexpected("operation", r)
		}
		rhs, err := operand(step[3])
		if err != nil {
			return 0, err
		}
		switch step[1] {
		case "+":
			acc += rhs
		case "-":
			acc -= rhs
		case "*":
			acc *= rhs
		case "/":
			if rhs == 0 {
				return 0, ErrDivisionByZero
			}
			acc /= rhs
		default:
			return 0, unexpected("operator", step[1])
		}
	}
	return acc, nil
}

func (e *Evaluator) factor(cst packrat.CST) (float64, error) {
	v, ok := cst.([]packrat.CST)
	if !ok || len(v) == 0 {
		return 0, unexpected("factor", cst)
	}
	switch v[0] {
	case "(":
		if len(v) != 5 {
			return 0, unexpected("group", cst)
		}
		return e.expression(v[2])
	case "-":
		if len(v) != 3 {
			return 0, unexpected("negation", cst)
		}
		x, err := e.factor(v[2])
		return -x, err
	}

	text := packrat.Flatten(v)
	if text == "" {
		return 0, unexpected("factor", cst)
	}
	if text[0] >= '0' && text[0] <= '9' {
		return strconv.ParseFloat(text, 64)
	}
	x, ok := e.Env[text]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUndefined, text)
	}
	return x, nil
}
