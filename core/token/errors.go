package token

import (
	"errors"
	"fmt"
)

// ErrIncomplete reports that the source ended inside an unterminated
// construct. Interactive clients test for it with errors.Is and prompt for
// more input instead of reporting a failure.
var ErrIncomplete = errors.New("unexpected end of input")

// SyntaxError is a tokenizer, parser or token-evaluation failure pinned to
// a source position.
type SyntaxError struct {
	Line, Col int
	Msg       string

	cause error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d.%d: %s", e.Line, e.Col, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.cause
}

// NewSyntaxError builds a SyntaxError at the given position.
func NewSyntaxError(line, col int, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func incompleteError(line, col int, what string) *SyntaxError {
	return &SyntaxError{
		Line:  line,
		Col:   col,
		Msg:   fmt.Sprintf("unexpected EOF while looking for %s", what),
		cause: ErrIncomplete,
	}
}
