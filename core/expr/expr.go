// Package expr evaluates the arithmetic and logical expressions that back
// the shell's %( ... ) token. Values are the shell's dynamic types: nil,
// bool, int64, float64 and string.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Lookup resolves a free variable. A nil result means unbound.
type Lookup func(name string) interface{}

// Eval evaluates source with the given variable lookup.
func Eval(source string, lookup Lookup) (interface{}, error) {
	p := &evaluator{src: []rune(source), lookup: lookup}
	v, err := p.orExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, fmt.Errorf("expr: unexpected %q at offset %d", string(p.src[p.pos]), p.pos)
	}
	return v, nil
}

type evaluator struct {
	src    []rune
	pos    int
	lookup Lookup
}

func (p *evaluator) orExpr() (interface{}, error) {
	v, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.accept("||") {
		rhs, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		v = truthy(v) || truthy(rhs)
	}
	return v, nil
}

func (p *evaluator) andExpr() (interface{}, error) {
	v, err := p.cmpExpr()
	if err != nil {
		return nil, err
	}
	for p.accept("&&") {
		rhs, err := p.cmpExpr()
		if err != nil {
			return nil, err
		}
		v = truthy(v) && truthy(rhs)
	}
	return v, nil
}

func (p *evaluator) cmpExpr() (interface{}, error) {
	v, err := p.addExpr()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if !p.accept(op) {
			continue
		}
		rhs, err := p.addExpr()
		if err != nil {
			return nil, err
		}
		return compare(op, v, rhs)
	}
	return v, nil
}

func (p *evaluator) addExpr() (interface{}, error) {
	v, err := p.mulExpr()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept("+"):
			rhs, err := p.mulExpr()
			if err != nil {
				return nil, err
			}
			v, err = add(v, rhs)
			if err != nil {
				return nil, err
			}
		case p.accept("-"):
			rhs, err := p.mulExpr()
			if err != nil {
				return nil, err
			}
			v, err = arith("-", v, rhs)
			if err != nil {
				return nil, err
			}
		default:
			return v, nil
		}
	}
}

func (p *evaluator) mulExpr() (interface{}, error) {
	v, err := p.unaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept("*"):
			rhs, err := p.unaryExpr()
			if err != nil {
				return nil, err
			}
			v, err = arith("*", v, rhs)
			if err != nil {
				return nil, err
			}
		case p.accept("/"):
			rhs, err := p.unaryExpr()
			if err != nil {
				return nil, err
			}
			v, err = arith("/", v, rhs)
			if err != nil {
				return nil, err
			}
		case p.accept("%"):
			rhs, err := p.unaryExpr()
			if err != nil {
				return nil, err
			}
			v, err = arith("%", v, rhs)
			if err != nil {
				return nil, err
			}
		default:
			return v, nil
		}
	}
}

func (p *evaluator) unaryExpr() (interface{}, error) {
	p.skipSpace()
	switch {
	case p.accept("!"):
		v, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	case p.accept("-"):
		v, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		return arith("-", int64(0), v)
	default:
		return p.primary()
	}
}

func (p *evaluator) primary() (interface{}, error) {
	p.skipSpace()
	if p.eof() {
		return nil, fmt.Errorf("expr: unexpected end of expression")
	}

	r := p.src[p.pos]
	switch {
	case r == '(':
		p.pos++
		v, err := p.orExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.eof() || p.src[p.pos] != ')' {
			return nil, fmt.Errorf("expr: missing )")
		}
		p.pos++
		return v, nil

	case r == '\'' || r == '"':
		p.pos++
		var b strings.Builder
		for !p.eof() && p.src[p.pos] != r {
			b.WriteRune(p.src[p.pos])
			p.pos++
		}
		if p.eof() {
			return nil, fmt.Errorf("expr: unterminated string")
		}
		p.pos++
		return b.String(), nil

	case unicode.IsDigit(r):
		start := p.pos
		for !p.eof() && (unicode.IsDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
			p.pos++
		}
		text := string(p.src[start:p.pos])
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("expr: bad number %q", text)
		}
		return f, nil

	case unicode.IsLetter(r) || r == '_':
		start := p.pos
		for !p.eof() && (unicode.IsLetter(p.src[p.pos]) || unicode.IsDigit(p.src[p.pos]) || p.src[p.pos] == '_') {
			p.pos++
		}
		name := string(p.src[start:p.pos])
		switch name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
		if p.lookup == nil {
			return nil, nil
		}
		return p.lookup(name), nil

	default:
		return nil, fmt.Errorf("expr: unexpected %q", string(r))
	}
}

func (p *evaluator) accept(op string) bool {
	p.skipSpace()
	if p.pos+len(op) > len(p.src) {
		return false
	}
	if string(p.src[p.pos:p.pos+len(op)]) != op {
		return false
	}
	// Don't let "<" shadow "<=" or "=" pair into "==" accidentally.
	if op == "<" || op == ">" {
		if p.pos+1 < len(p.src) && p.src[p.pos+1] == '=' {
			return false
		}
	}
	p.pos += len(op)
	return true
}

func (p *evaluator) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *evaluator) eof() bool {
	return p.pos >= len(p.src)
}

func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != "" && x != "false"
	default:
		return true
	}
}

func add(a, b interface{}) (interface{}, error) {
	if as, ok := a.(string); ok {
		return as + fmt.Sprint(b), nil
	}
	if bs, ok := b.(string); ok {
		return fmt.Sprint(a) + bs, nil
	}
	return arith("+", a, b)
}

func arith(op string, a, b interface{}) (interface{}, error) {
	ai, aIsInt := toInt(a)
	bi, bIsInt := toInt(b)
	if aIsInt && bIsInt {
		switch op {
		case "+":
			return ai + bi, nil
		case "-":
			return ai - bi, nil
		case "*":
			return ai * bi, nil
		case "/":
			if bi == 0 {
				return nil, fmt.Errorf("expr: division by zero")
			}
			return ai / bi, nil
		case "%":
			if bi == 0 {
				return nil, fmt.Errorf("expr: division by zero")
			}
			return ai % bi, nil
		}
	}

	af, aOK := toFloat(a)
	bf, bOK := toFloat(b)
	if !aOK || !bOK {
		return nil, fmt.Errorf("expr: cannot apply %s to %T and %T", op, a, b)
	}
	switch op {
	case "+":
		return af + bf, nil
	case "-":
		return af - bf, nil
	case "*":
		return af * bf, nil
	case "/":
		if bf == 0 {
			return nil, fmt.Errorf("expr: division by zero")
		}
		return af / bf, nil
	case "%":
		return nil, fmt.Errorf("expr: %% needs integer operands")
	}
	return nil, fmt.Errorf("expr: unknown operator %s", op)
}

func compare(op string, a, b interface{}) (interface{}, error) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch op {
			case "==":
				return af == bf, nil
			case "!=":
				return af != bf, nil
			case "<":
				return af < bf, nil
			case "<=":
				return af <= bf, nil
			case ">":
				return af > bf, nil
			case ">=":
				return af >= bf, nil
			}
		}
	}

	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch op {
	case "==":
		return a == b || as == bs, nil
	case "!=":
		return a != b && as != bs, nil
	case "<":
		return as < bs, nil
	case "<=":
		return as <= bs, nil
	case ">":
		return as > bs, nil
	case ">=":
		return as >= bs, nil
	}
	return nil, fmt.Errorf("expr: unknown comparison %s", op)
}

func toInt(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
