// Package json is a JSON grammar for packrat, with a decoder from its
// concrete syntax trees to Go values.
//
// Decoded values use the same types as encoding/json does when decoding into
// an interface value: map[string]any, []any, string, float64, bool and nil.
// Unescaped string contents are limited to printable ASCII; anything else is
// written with \u escapes.
package json

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf16"

	"github.com/tef/packrat"
)

// ErrUnexpectedCST is returned by Decode for trees this grammar does not
// produce.
var ErrUnexpectedCST = errors.New("unexpected cst")

var Grammar = packrat.MustBuildGrammar(func(g *packrat.Builder) {
	g.Start = "document"

	g.Define("document", func() {
		g.Call("ws")
		g.Call("value")
		g.Call("ws")
	})

	g.Define("ws", func() {
		g.Repeat(func() {
			g.Literal(" ", "\t", "\n", "\r")
		})
	})

	g.Define("value", func() {
		g.Choice(func() {
			g.Call("object")
		}, func() {
			g.Call("array")
		}, func() {
			g.Call("string")
		}, func() {
			g.Call("number")
		}, func() {
			g.Literal("true", "false", "null")
		})
	})

	g.Define("object", func() {
		g.Literal("{")
		g.Call("ws")
		g.Optional(func() {
			g.Call("member")
			g.Repeat(func() {
				g.Literal(",")
				g.Call("member")
			})
		})
		g.Literal("}")
	})

	g.Define("member", func() {
		g.Call("ws")
		g.Call("string")
		g.Call("ws")
		g.Literal(":")
		g.Call("element")
	})

	g.Define("array", func() {
		g.Literal("[")
		g.Call("ws")
		g.Optional(func() {
			g.Call("element")
			g.Repeat(func() {
				g.Literal(",")
				g.Call("element")
			})
		})
		g.Literal("]")
	})

	g.Define("element", func() {
		g.Call("ws")
		g.Call("value")
		g.Call("ws")
	})

	g.Define("string", func() {
		g.Literal(`"`)
		g.Repeat(func() {
			g.Call("character")
		})
		g.Literal(`"`)
	})

	g.Define("character", func() {
		g.Choice(func() {
			g.Reject(func() {
				g.Literal(`"`, `\`)
			})
			g.Range(" -~")
		}, func() {
			g.Literal(`\`)
			g.Choice(func() {
				g.Literal(`"`, `\`, "/", "b", "f", "n", "r", "t")
			}, func() {
				g.Literal("u")
				g.Call("hex")
				g.Call("hex")
				g.Call("hex")
				g.Call("hex")
			})
		})
	})

	g.Define("hex", func() {
		g.Range("0-9", "a-f", "A-F")
	})

	g.Define("number", func() {
		g.Optional(func() {
			g.Literal("-")
		})
		g.Choice(func() {
			g.Literal("0")
		}, func() {
			g.Range("1-9")
			g.Call("digits")
		})
		g.Optional(func() {
			g.Literal(".")
			g.Range("0-9")
			g.Call("digits")
		})
		g.Optional(func() {
			g.Literal("e", "E")
			g.Optional(func() {
				g.Literal("+", "-")
			})
			g.Range("0-9")
			g.Call("digits")
		})
	})

	g.Define("digits", func() {
		g.Repeat(func() {
			g.Range("0-9")
		})
	})
})

// Parser matches JSON documents. It is not safe for concurrent use.
type Parser struct {
	session *packrat.Session
}

func NewParser(opts ...packrat.SessionOption) *Parser {
	return &Parser{session: packrat.NewSession(Grammar, opts...)}
}

// Parse matches doc and decodes it.
func (p *Parser) Parse(doc string) (any, error) {
	cst, err := p.session.Match(doc)
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return Decode(cst)
}

// Stats returns the counters of the most recent Parse.
func (p *Parser) Stats() packrat.Stats {
	return p.session.Stats()
}

// Parse matches and decodes doc with a new Parser.
func Parse(doc string) (any, error) {
	return NewParser().Parse(doc)
}

func unexpected(what string, cst packrat.CST) error {
	return fmt.Errorf("json: %w for %s: %v", ErrUnexpectedCST, what, cst)
}

// Decode turns a tree matched by Grammar into a Go value.
func Decode(cst packrat.CST) (any, error) {
	doc, ok := cst.([]packrat.CST)
	if !ok || len(doc) != 3 {
		return nil, unexpected("document", cst)
	}
	return decodeValue(doc[1])
}

func decodeValue(cst packrat.CST) (any, error) {
	switch v := cst.(type) {
	case string:
		switch v {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
	case []packrat.CST:
		if len(v) == 0 {
			break
		}
		switch v[0] {
		case "{":
			return decodeObject(v)
		case "[":
			return decodeArray(v)
		case `"`:
			return decodeString(v)
		default:
			return decodeNumber(v)
		}
	}
	return nil, unexpected("value", cst)
}

// items unpacks an optional "x (, x)*" list into its x trees.
func items(cst packrat.CST) ([]packrat.CST, bool) {
	v, ok := cst.([]packrat.CST)
	if !ok {
		return nil, false
	}
	if len(v) == 0 {
		return nil, true
	}
	if len(v) != 2 {
		return nil, false
	}
	rest, ok := v[1].([]packrat.CST)
	if !ok {
		return nil, false
	}
	out := []packrat.CST{v[0]}
	for _, r := range rest {
		pair, ok := r.([]packrat.CST)
		if !ok || len(pair) != 2 {
			return nil, false
		}
		out = append(out, pair[1])
	}
	return out, true
}

func element(cst packrat.CST) (any, error) {
	v, ok := cst.([]packrat.CST)
	if !ok || len(v) != 3 {
		return nil, unexpected("element", cst)
	}
	return decodeValue(v[1])
}

func decodeObject(v []packrat.CST) (any, error) {
	if len(v) != 4 {
		return nil, unexpected("object", v)
	}
	members, ok := items(v[2])
	if !ok {
		return nil, unexpected("object members", v[2])
	}

	out := make(map[string]any, len(members))
	for _, m := range members {
		member, ok := m.([]packrat.CST)
		if !ok || len(member) != 5 {
			return nil, unexpected("member", m)
		}
		key, ok := member[1].([]packrat.CST)
		if !ok {
			return nil, unexpected("member key", member[1])
		}
		k, err := decodeString(key)
		if err != nil {
			return nil, err
		}
		value, err := element(member[4])
		if err != nil {
			return nil, err
		}
		out[k.(string)] = value
	}
	return out, nil
}

func decodeArray(v []packrat.CST) (any, error) {
	if len(v) != 4 {
		return nil, unexpected("array", v)
	}
	elements, ok := items(v[2])
	if !ok {
		return nil, unexpected("array elements", v[2])
	}

	out := make([]any, 0, len(elements))
	for _, e := range elements {
		value, err := element(e)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

var escapes = map[string]uint16{
	`"`: '"',
	`\`: '\\',
	"/": '/',
	"b": '\b',
	"f": '\f',
	"n": '\n',
	"r": '\r',
	"t": '\t',
}

func decodeString(v []packrat.CST) (any, error) {
	if len(v) != 3 {
		return nil, unexpected("string", v)
	}
	chars, ok := v[1].([]packrat.CST)
	if !ok {
		return nil, unexpected("string contents", v[1])
	}

	units := make([]uint16, 0, len(chars))
	for _, c := range chars {
		char, ok := c.([]packrat.CST)
		if !ok {
			return nil, unexpected("character", c)
		}
		switch len(char) {
		case 1:
			s, _ := char[0].(string)
			if len(s) != 1 {
				return nil, unexpected("character", c)
			}
			units = append(units, uint16(s[0]))
		case 2:
			switch esc := char[1].(type) {
			case string:
				u, ok := escapes[esc]
				if !ok {
					return nil, unexpected("escape", c)
				}
				units = append(units, u)
			case []packrat.CST:
				hex := packrat.Flatten(esc)
				if len(hex) != 5 {
					return nil, unexpected("escape", c)
				}
				u, err := strconv.ParseUint(hex[1:], 16, 16)
				if err != nil {
					return nil, fmt.Errorf("json: bad escape %q: %w", hex, err)
				}
				units = append(units, uint16(u))
			default:
				return nil, unexpected("escape", c)
			}
		default:
			return nil, unexpected("character", c)
		}
	}
	return string(utf16.Decode(units)), nil
}

func decodeNumber(v []packrat.CST) (any, error) {
	text := packrat.Flatten(v)
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("json: number %q: %w", text, err)
	}
	return f, nil
}
