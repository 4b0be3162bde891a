package packrat

import (
	"encoding/json"
	"strings"
)

// CST is the value a successful match produces. Its shape follows the
// expression that produced it:
//
//	Terminal                 the matched literal, a string
//	Sequence, Repetition     a []CST (Not parts are left out of a Sequence)
//	Choice, RuleApplication  the CST of the chosen or applied expression
//	Not                      Lookahead{}
type CST = any

// Lookahead is the value of a successful Not. It consumes nothing and
// carries nothing.
type Lookahead struct{}

func (Lookahead) String() string {
	return "&"
}

// MarshalJSON renders a lookahead as null.
func (Lookahead) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Flatten concatenates every string in cst, in order. For grammars without
// lookahead this is the text the tree was matched from.
func Flatten(cst CST) string {
	var b strings.Builder
	flatten(&b, cst)
	return b.String()
}

func flatten(b *strings.Builder, cst CST) {
	switch v := cst.(type) {
	case string:
		b.WriteString(v)
	case []CST:
		for _, c := range v {
			flatten(b, c)
		}
	}
}

// FormatCST renders cst as indented JSON.
func FormatCST(cst CST) (string, error) {
	out, err := json.MarshalIndent(cst, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
