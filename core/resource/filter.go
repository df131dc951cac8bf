package resource

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter matches capability attribute maps. The syntax is the LDAP-style
// prefix form: (key=value), (key=*) presence, (key=pre*post) substrings,
// (key<=n), (key>=n), and the combinators (&...), (|...), (!(...)).
type Filter interface {
	Matches(attrs map[string]interface{}) bool
}

// ParseFilter compiles a filter expression. The empty string yields a
// filter matching everything.
func ParseFilter(source string) (Filter, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return matchAll{}, nil
	}
	p := &filterParser{src: source}
	f, err := p.filter()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("filter %q: trailing input at %d", p.src, p.pos)
	}
	return f, nil
}

type matchAll struct{}

func (matchAll) Matches(map[string]interface{}) bool { return true }

type andFilter []Filter

func (fs andFilter) Matches(attrs map[string]interface{}) bool {
	for _, f := range fs {
		if !f.Matches(attrs) {
			return false
		}
	}
	return true
}

type orFilter []Filter

func (fs orFilter) Matches(attrs map[string]interface{}) bool {
	for _, f := range fs {
		if f.Matches(attrs) {
			return true
		}
	}
	return false
}

type notFilter struct{ inner Filter }

func (f notFilter) Matches(attrs map[string]interface{}) bool {
	return !f.inner.Matches(attrs)
}

type cmpOp int

const (
	opEq cmpOp = iota
	opLE
	opGE
	opPresent
	opSubstring
)

type cmpFilter struct {
	attr  string
	op    cmpOp
	value string

	// substring pieces split on *; empty leading/trailing entries anchor
	// the match.
	parts []string
}

func (f cmpFilter) Matches(attrs map[string]interface{}) bool {
	v, ok := attrs[f.attr]
	if !ok {
		return false
	}
	if f.op == opPresent {
		return true
	}

	// A multi-valued attribute matches if any element matches.
	switch vv := v.(type) {
	case []interface{}:
		for _, el := range vv {
			if f.matchOne(el) {
				return true
			}
		}
		return false
	case []string:
		for _, el := range vv {
			if f.matchOne(el) {
				return true
			}
		}
		return false
	default:
		return f.matchOne(v)
	}
}

func (f cmpFilter) matchOne(v interface{}) bool {
	text := fmt.Sprint(v)
	switch f.op {
	case opEq:
		if an, aerr := strconv.ParseFloat(text, 64); aerr == nil {
			if bn, berr := strconv.ParseFloat(f.value, 64); berr == nil {
				return an == bn
			}
		}
		return text == f.value
	case opLE:
		return compareText(text, f.value) <= 0
	case opGE:
		return compareText(text, f.value) >= 0
	case opSubstring:
		return matchParts(text, f.parts)
	default:
		return false
	}
}

// compareText compares numerically when both sides parse, else
// lexicographically.
func compareText(a, b string) int {
	if an, aerr := strconv.ParseFloat(a, 64); aerr == nil {
		if bn, berr := strconv.ParseFloat(b, 64); berr == nil {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(a, b)
}

func matchParts(text string, parts []string) bool {
	if len(parts) == 0 {
		return text == ""
	}
	if !strings.HasPrefix(text, parts[0]) {
		return false
	}
	text = text[len(parts[0]):]
	for _, part := range parts[1 : len(parts)-1] {
		i := strings.Index(text, part)
		if i < 0 {
			return false
		}
		text = text[i+len(part):]
	}
	last := parts[len(parts)-1]
	if len(parts) == 1 {
		return text == ""
	}
	return strings.HasSuffix(text, last)
}

type filterParser struct {
	src string
	pos int
}

func (p *filterParser) filter() (Filter, error) {
	p.skipSpaces()
	if err := p.expect('('); err != nil {
		return nil, err
	}
	p.skipSpaces()

	var f Filter
	var err error
	switch p.peek() {
	case '&':
		p.pos++
		raw, err := p.operands(nil)
		if err != nil {
			return nil, err
		}
		f = andFilter(raw)
	case '|':
		p.pos++
		raw, err := p.operands(nil)
		if err != nil {
			return nil, err
		}
		f = orFilter(raw)
	case '!':
		p.pos++
		inner, err := p.filter()
		if err != nil {
			return nil, err
		}
		f = notFilter{inner: inner}
	default:
		if f, err = p.comparison(); err != nil {
			return nil, err
		}
	}

	p.skipSpaces()
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *filterParser) operands(acc []Filter) ([]Filter, error) {
	for {
		p.skipSpaces()
		if p.peek() != '(' {
			if len(acc) == 0 {
				return nil, fmt.Errorf("filter %q: expected ( at %d", p.src, p.pos)
			}
			return acc, nil
		}
		f, err := p.filter()
		if err != nil {
			return nil, err
		}
		acc = append(acc, f)
	}
}

func (p *filterParser) comparison() (Filter, error) {
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("=<>()", rune(p.src[p.pos])) {
		p.pos++
	}
	attr := strings.TrimSpace(p.src[start:p.pos])
	if attr == "" {
		return nil, fmt.Errorf("filter %q: missing attribute at %d", p.src, start)
	}

	var op cmpOp
	switch p.peek() {
	case '=':
		p.pos++
		op = opEq
	case '<':
		p.pos++
		if err := p.expect('='); err != nil {
			return nil, err
		}
		op = opLE
	case '>':
		p.pos++
		if err := p.expect('='); err != nil {
			return nil, err
		}
		op = opGE
	default:
		return nil, fmt.Errorf("filter %q: expected operator at %d", p.src, p.pos)
	}

	vstart := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != ')' {
		p.pos++
	}
	value := p.src[vstart:p.pos]

	if op == opEq {
		if value == "*" {
			return cmpFilter{attr: attr, op: opPresent}, nil
		}
		if strings.ContainsRune(value, '*') {
			return cmpFilter{attr: attr, op: opSubstring, parts: strings.Split(value, "*")}, nil
		}
	}
	return cmpFilter{attr: attr, op: op, value: value}, nil
}

func (p *filterParser) expect(r byte) error {
	if p.pos >= len(p.src) || p.src[p.pos] != r {
		return fmt.Errorf("filter %q: expected %q at %d", p.src, string(r), p.pos)
	}
	p.pos++
	return nil
}

func (p *filterParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *filterParser) skipSpaces() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}
