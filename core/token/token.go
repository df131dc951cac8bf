// Package token holds the program representation the shell evaluator
// consumes: a tree of pipelines, statements and tokens with source
// locations, plus the tokenizer that produces it and the expander that
// performs $name substitution inside words.
package token

import "fmt"

// Kind classifies a token.
type Kind int

const (
	// Word is a bare or quoted word, possibly containing $name markers.
	Word Kind = iota
	// Closure is a deferred subprogram: { ... }.
	Closure
	// Execution is an immediately evaluated subprogram: ( ... ).
	Execution
	// Array is a bracketed list or map literal: [ ... ].
	Array
	// Assign is the = token of an assignment statement.
	Assign
	// Expr is an arithmetic/logical expression: %( ... ).
	Expr
)

func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case Closure:
		return "closure"
	case Execution:
		return "execution"
	case Array:
		return "array"
	case Assign:
		return "assign"
	case Expr:
		return "expr"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Token is one lexical element of a statement. Tokens are immutable once
// produced by the parser.
type Token struct {
	Kind Kind

	// Source is the raw text of the token as written, quotes included.
	Source string

	// Value is the usable body: the unquoted text for a Word, the inner
	// subprogram for Closure/Execution/Expr, the bracketed body for Array.
	Value string

	// Line and Col locate the first rune of the token, 1-based.
	Line, Col int

	// Literal marks a single-quoted word; the expander leaves it alone.
	Literal bool

	// Quoted marks a word that used quoting of either kind; the evaluator
	// keeps such words textual instead of coercing "42" to a number.
	Quoted bool
}

func (t *Token) String() string {
	return t.Source
}

// Pos renders the token position as "line.column", the form used in error
// locations.
func (t *Token) Pos() string {
	return fmt.Sprintf("%d.%d", t.Line, t.Col)
}

// Statement is an ordered run of tokens. The first token names the
// operation; the shape [T, Assign, ...] encodes an assignment.
type Statement []*Token

// Pipeline is an ordered run of statements connected stdout-to-stdin.
type Pipeline []Statement

// Program is an ordered run of pipelines, executed serially.
type Program []Pipeline

// Pair is one key/value entry of a map-form array literal.
type Pair struct {
	Key, Value *Token
}
