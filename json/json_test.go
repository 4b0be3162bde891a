package json

import (
	stdjson "encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tef/packrat"
)

func TestJson(t *testing.T) {
	assert.Empty(t, Grammar.Check())

	p := NewParser()
	out, err := p.Parse("[1,2,3]")
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, out)
	assert.Positive(t, p.Stats().MemoHits)

	out, err = Parse(`{"A":1}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"A": 1.0}, out)
}

func TestAgreesWithEncodingJSON(t *testing.T) {
	docs := []string{
		`null`,
		`true`,
		` false `,
		`0`,
		`-0.5e+10`,
		`12.25E-3`,
		`""`,
		`"a\"b\\c\/d\b\f\n\r\t"`,
		`"\u00e9A"`,
		`"\ud83d\ude00"`,
		`"\ud800"`,
		`[]`,
		`[ ]`,
		`[1 , [2,[ ]], {"x" : null}]`,
		`{}`,
		`{ "a": 1, "b": [true, false], "a": "dup" }`,
		"{\n\t\"nested\": {\"deep\": [\"\"]}\r\n}",
	}

	p := NewParser()
	for _, doc := range docs {
		var want any
		require.NoError(t, stdjson.Unmarshal([]byte(doc), &want), doc)

		got, err := p.Parse(doc)
		if assert.NoError(t, err, doc) {
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("%s: mismatch (-encoding/json +packrat):\n%s", doc, diff)
			}
		}
	}
}

func TestRejects(t *testing.T) {
	docs := []string{
		``,
		`   `,
		`[1,]`,
		`[1 2]`,
		`{`,
		`{"a"}`,
		`{"a":1,}`,
		`{a:1}`,
		`01`,
		`1.`,
		`.5`,
		`1e`,
		`+1`,
		`tru`,
		`nulls`,
		`"\x"`,
		`"\u12"`,
		"\"\t\"",
		`"é"`,
		`"unterminated`,
	}

	p := NewParser()
	for _, doc := range docs {
		_, err := p.Parse(doc)
		assert.ErrorIs(t, err, packrat.ErrNoMatch, doc)
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, cst := range []packrat.CST{
		nil,
		"true",
		[]packrat.CST{[]packrat.CST{}, "maybe", []packrat.CST{}},
		[]packrat.CST{[]packrat.CST{}, []packrat.CST{"[", []packrat.CST{}, "oops", "]"}, []packrat.CST{}},
	} {
		_, err := Decode(cst)
		assert.True(t, errors.Is(err, ErrUnexpectedCST), "%v: %v", cst, err)
	}

	_, err := Parse("1e999")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnexpectedCST))
}

func drawValue(t *rapid.T, depth int) any {
	maxKind := 5
	if depth == 0 {
		maxKind = 3
	}
	switch rapid.IntRange(0, maxKind).Draw(t, "kind").(int) {
	case 0:
		return nil
	case 1:
		return rapid.Bool().Draw(t, "bool").(bool)
	case 2:
		return rapid.Float64Range(-1e9, 1e9).Draw(t, "number").(float64)
	case 3:
		return rapid.StringMatching(`[ -~]{0,8}`).Draw(t, "string").(string)
	case 4:
		n := rapid.IntRange(0, 3).Draw(t, "len").(int)
		out := make([]any, n)
		for i := range out {
			out[i] = drawValue(t, depth-1)
		}
		return out
	default:
		n := rapid.IntRange(0, 3).Draw(t, "len").(int)
		out := make(map[string]any, n)
		for i := 0; i < n; i++ {
			key := rapid.StringMatching(`[a-z<>&]{0,4}`).Draw(t, "key").(string)
			out[key] = drawValue(t, depth-1)
		}
		return out
	}
}

func TestRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := drawValue(t, 3)

		var doc []byte
		var err error
		if rapid.Bool().Draw(t, "indent").(bool) {
			doc, err = stdjson.MarshalIndent(v, " ", "\t")
		} else {
			doc, err = stdjson.Marshal(v)
		}
		if err != nil {
			t.Fatalf("marshal %v: %v", v, err)
		}

		var want any
		if err := stdjson.Unmarshal(doc, &want); err != nil {
			t.Fatalf("unmarshal %s: %v", doc, err)
		}
		got, err := Parse(string(doc))
		if err != nil {
			t.Fatalf("parse %s: %v", doc, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s: mismatch (-encoding/json +packrat):\n%s", doc, diff)
		}
	})
}
