package token

import (
	"fmt"
	"strings"
)

// Evaluator is the view of the active closure frame the expander needs:
// scoped variable lookup and nested token evaluation.
type Evaluator interface {
	// Get resolves a name using the frame's lookup order.
	Get(name string) interface{}
	// Eval evaluates a nested token, e.g. an embedded $(execution).
	Eval(t *Token) (interface{}, error)
}

// Expand performs $name, ${name} and $(execution) substitution on a Word
// token. It returns the original token untouched when no substitution
// applies; callers use that identity to tell literals from expansions.
//
// A word that is exactly one substitution yields the bound value itself,
// type preserved. A word mixing literal text and substitutions yields the
// pieces stringified and concatenated.
func Expand(t *Token, e Evaluator) (interface{}, error) {
	if t.Literal || !strings.ContainsRune(t.Value, '$') {
		return t, nil
	}

	src := []rune(t.Value)
	var parts []interface{}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, lit.String())
			lit.Reset()
		}
	}

	substituted := false
	for i := 0; i < len(src); {
		r := src[i]
		if r != '$' {
			lit.WriteRune(r)
			i++
			continue
		}
		i++
		if i >= len(src) {
			lit.WriteRune('$')
			break
		}

		switch src[i] {
		case '{':
			inner, rest, err := matchBrace(src[i:], '{', '}', t)
			if err != nil {
				return nil, err
			}
			i += rest
			flush()
			parts = append(parts, e.Get(inner))
			substituted = true

		case '(':
			inner, rest, err := matchBrace(src[i:], '(', ')', t)
			if err != nil {
				return nil, err
			}
			i += rest
			v, err := e.Eval(&Token{
				Kind:   Execution,
				Source: "(" + inner + ")",
				Value:  inner,
				Line:   t.Line,
				Col:    t.Col,
			})
			if err != nil {
				return nil, err
			}
			flush()
			parts = append(parts, v)
			substituted = true

		default:
			j := i
			for j < len(src) && isNameRune(src[j]) {
				j++
			}
			if j == i {
				lit.WriteRune('$')
				continue
			}
			name := string(src[i:j])
			i = j
			flush()
			parts = append(parts, e.Get(name))
			substituted = true
		}
	}
	flush()

	if !substituted {
		return t, nil
	}
	if len(parts) == 1 {
		return parts[0], nil
	}

	var b strings.Builder
	for _, part := range parts {
		b.WriteString(Text(part))
	}
	return b.String(), nil
}

// Text renders a value the way word interpolation joins it into
// surrounding literal text.
func Text(v interface{}) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

// matchBrace finds the matching close bracket in src, which begins with
// the open bracket. It returns the inner text and the number of runes
// consumed including both brackets.
func matchBrace(src []rune, open, close rune, t *Token) (string, int, error) {
	depth := 0
	for i, r := range src {
		switch r {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return string(src[1:i]), i + 1, nil
			}
		}
	}
	return "", 0, incompleteError(t.Line, t.Col, "matching "+string(close))
}

// isNameRune bounds bare $name references; anything richer (dots, dashes)
// needs the ${name} form.
func isNameRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
