package shell

import (
	"fmt"
	"strings"

	"josephlewis.net/gosh/core/token"
)

// Level selects how much detail Format produces.
type Level int

const (
	// Line renders a value for embedding in a single line.
	Line Level = iota
	// Inspect renders a value for display as a command result, one
	// element per line for containers.
	Inspect
)

// Format renders a shell value for display. Inspect is what the console
// prints for a non-null result; Line is used for container elements.
func Format(v interface{}, level Level) string {
	switch t := v.(type) {
	case nil:
		return "null"

	case []interface{}:
		if level == Line {
			parts := make([]string, len(t))
			for i, el := range t {
				parts[i] = Format(el, Line)
			}
			return "[" + strings.Join(parts, ", ") + "]"
		}
		var b strings.Builder
		for i, el := range t {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(Format(el, Line))
		}
		return b.String()

	case *ArgList:
		return Format(t.Values(), level)

	case *Dict:
		if level == Line {
			return t.String()
		}
		width := 0
		for _, k := range t.Keys() {
			if len(k) > width {
				width = len(k)
			}
		}
		var b strings.Builder
		for i, k := range t.Keys() {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%-*s %s", width, k, Format(t.Get(k), Line))
		}
		return b.String()

	case *Closure:
		return "{" + strings.TrimSpace(t.source) + "}"

	case Function:
		return fmt.Sprintf("<function %T>", t)

	default:
		return token.Text(v)
	}
}
