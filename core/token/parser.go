package token

import "strings"

// Parse turns source text into a Program: pipelines separated by newlines
// or semicolons, statements within a pipeline separated by vertical bars.
func Parse(source string) (Program, error) {
	p := &parser{src: []rune(source), line: 1, col: 1}
	return p.program()
}

// ParseArray re-parses the body of an Array token. Exactly one of the two
// results is populated: a purely positional body yields list, a body
// containing key=value entries yields pairs.
func ParseArray(t *Token) (list []*Token, pairs []Pair, err error) {
	p := &parser{src: []rune(t.Value), line: t.Line, col: t.Col + 1, inArray: true}
	var toks []*Token
	for {
		tok, err := p.readToken()
		if err != nil {
			return nil, nil, err
		}
		if tok == nil {
			break
		}
		toks = append(toks, tok)
	}

	mapForm := false
	for _, tok := range toks {
		if tok.Kind == Assign {
			mapForm = true
			break
		}
	}
	if !mapForm {
		return toks, nil, nil
	}

	// Key = value triples, repeated.
	for i := 0; i < len(toks); i += 3 {
		if i+2 >= len(toks) || toks[i+1].Kind != Assign {
			bad := toks[i]
			return nil, nil, NewSyntaxError(bad.Line, bad.Col, "bad map literal near %q", bad.Source)
		}
		if toks[i].Kind == Assign || toks[i+2].Kind == Assign {
			bad := toks[i]
			return nil, nil, NewSyntaxError(bad.Line, bad.Col, "bad map literal near %q", bad.Source)
		}
		pairs = append(pairs, Pair{Key: toks[i], Value: toks[i+2]})
	}
	return nil, pairs, nil
}

type parser struct {
	src       []rune
	pos       int
	line, col int

	// inArray relaxes separators: newlines act as plain whitespace and
	// pipeline punctuation is rejected.
	inArray bool
}

func (p *parser) program() (Program, error) {
	var prog Program
	var pipe Pipeline
	var stmt Statement
	wantStmt := false // saw a trailing | and owe the pipeline a statement

	endStatement := func() {
		if len(stmt) > 0 {
			pipe = append(pipe, stmt)
			stmt = nil
		}
	}
	endPipeline := func() {
		endStatement()
		if len(pipe) > 0 {
			prog = append(prog, pipe)
			pipe = nil
		}
	}

	for {
		p.skipSpaces()
		if p.eof() {
			break
		}

		switch r := p.peek(); r {
		case '\n':
			p.next()
			if wantStmt {
				continue // pipeline continues on the next line
			}
			endPipeline()

		case ';':
			line, col := p.line, p.col
			p.next()
			if wantStmt {
				return nil, NewSyntaxError(line, col, "missing command after |")
			}
			endPipeline()

		case '|':
			line, col := p.line, p.col
			p.next()
			if len(stmt) == 0 {
				return nil, NewSyntaxError(line, col, "missing command before |")
			}
			endStatement()
			wantStmt = true

		default:
			tok, err := p.readToken()
			if err != nil {
				return nil, err
			}
			if tok == nil {
				continue
			}
			stmt = append(stmt, tok)
			wantStmt = false
		}
	}

	if wantStmt {
		return nil, incompleteError(p.line, p.col, "a command after |")
	}
	endPipeline()
	return prog, nil
}

// readToken reads the next token, or nil at end of input. The caller deals
// with statement and pipeline separators before calling.
func (p *parser) readToken() (*Token, error) {
	p.skipSpaces()
	if p.inArray {
		for !p.eof() && p.peek() == '\n' {
			p.next()
			p.skipSpaces()
		}
	}
	if p.eof() {
		return nil, nil
	}

	line, col := p.line, p.col
	switch r := p.peek(); {
	case r == '{':
		return p.balanced(Closure, '{', '}', line, col)

	case r == '(':
		return p.balanced(Execution, '(', ')', line, col)

	case r == '[':
		return p.balanced(Array, '[', ']', line, col)

	case r == '%' && p.peekAt(1) == '(':
		p.next() // %
		tok, err := p.balanced(Expr, '(', ')', line, col)
		if err != nil {
			return nil, err
		}
		tok.Source = "%" + tok.Source
		return tok, nil

	case r == '=' && p.isBreakAt(1):
		p.next()
		return &Token{Kind: Assign, Source: "=", Value: "=", Line: line, Col: col}, nil

	case (r == ';' || r == '|') && p.inArray:
		return nil, NewSyntaxError(line, col, "unexpected %q in array literal", string(r))

	default:
		return p.word(line, col)
	}
}

// balanced consumes a bracketed token, honoring nesting of the same
// bracket pair, quotes, and backslash escapes.
func (p *parser) balanced(kind Kind, open, close rune, line, col int) (*Token, error) {
	start := p.pos
	p.next() // open
	depth := 1
	for !p.eof() {
		r := p.next()
		switch r {
		case '\\':
			if !p.eof() {
				p.next()
			}
		case '\'', '"':
			if err := p.skipQuoted(r); err != nil {
				return nil, err
			}
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				source := string(p.src[start:p.pos])
				return &Token{
					Kind:   kind,
					Source: source,
					Value:  source[1 : len(source)-1],
					Line:   line,
					Col:    col,
				}, nil
			}
		}
	}
	return nil, incompleteError(line, col, "matching "+string(close))
}

// word consumes a bare word, handling quoting and embedded $(...) and
// ${...} substitution markers so they stay inside a single token.
func (p *parser) word(line, col int) (*Token, error) {
	start := p.pos
	var value strings.Builder
	singleQuotedOnly := true
	sawQuote := false

	for !p.eof() {
		r := p.peek()
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == ';' || r == '|' {
			break
		}
		p.next()
		switch r {
		case '\\':
			singleQuotedOnly = false
			if !p.eof() {
				value.WriteRune(p.next())
			}
		case '\'':
			sawQuote = true
			qline, qcol := p.line, p.col
			for {
				if p.eof() {
					return nil, incompleteError(qline, qcol, "closing '")
				}
				q := p.next()
				if q == '\'' {
					break
				}
				value.WriteRune(q)
			}
		case '"':
			sawQuote = true
			singleQuotedOnly = false
			qline, qcol := p.line, p.col
			for {
				if p.eof() {
					return nil, incompleteError(qline, qcol, `closing "`)
				}
				q := p.next()
				if q == '"' {
					break
				}
				if q == '\\' && !p.eof() {
					q = p.next()
				}
				value.WriteRune(q)
			}
		case '$':
			singleQuotedOnly = false
			value.WriteRune('$')
			if !p.eof() && (p.peek() == '(' || p.peek() == '{') {
				open := p.peek()
				close := rune(')')
				if open == '{' {
					close = '}'
				}
				nested, err := p.balanced(Word, open, close, p.line, p.col)
				if err != nil {
					return nil, err
				}
				value.WriteString(nested.Source)
			}
		default:
			singleQuotedOnly = false
			value.WriteRune(r)
		}
	}

	return &Token{
		Kind:    Word,
		Source:  string(p.src[start:p.pos]),
		Value:   value.String(),
		Line:    line,
		Col:     col,
		Literal: sawQuote && singleQuotedOnly,
		Quoted:  sawQuote,
	}, nil
}

func (p *parser) skipQuoted(quote rune) error {
	line, col := p.line, p.col
	for !p.eof() {
		r := p.next()
		if r == quote {
			return nil
		}
		if r == '\\' && quote == '"' && !p.eof() {
			p.next()
		}
	}
	return incompleteError(line, col, "closing "+string(quote))
}

func (p *parser) skipSpaces() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\r':
			p.next()
		case '\\':
			// Line continuation.
			if p.peekAt(1) == '\n' {
				p.next()
				p.next()
			} else {
				return
			}
		case '#':
			for !p.eof() && p.peek() != '\n' {
				p.next()
			}
		default:
			return
		}
	}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() rune {
	return p.src[p.pos]
}

func (p *parser) peekAt(off int) rune {
	if p.pos+off >= len(p.src) {
		return 0
	}
	return p.src[p.pos+off]
}

// isBreakAt reports whether the rune at the offset ends a token.
func (p *parser) isBreakAt(off int) bool {
	r := p.peekAt(off)
	return r == 0 || r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == ';' || r == '|'
}

func (p *parser) next() rune {
	r := p.src[p.pos]
	p.pos++
	if r == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return r
}
