package shell

import (
	"context"
	"io"
	"sort"
	"sync"
)

// Reserved variable names with special read or write semantics.
const (
	// LocationVar holds the last error location string.
	LocationVar = ".location"
	// VariablesVar reads as the sorted set of bound variable names.
	VariablesVar = ".variables"
	// CommandsVar reads as the registered command names.
	CommandsVar = ".commands"
	// PipeExceptionVar receives the last non-final pipe stage error.
	PipeExceptionVar = "pipe-exception"
	// ScopeVar is the colon-separated command scope search list.
	ScopeVar = "SCOPE"

	// defaultLockVar is the reentry guard for the default command
	// handler fallback.
	defaultLockVar = ".defaultLock"
)

// Session is a process-scoped binding environment: variables, the current
// stream triad, and a handle to the processor's registry. Sessions created
// by the pipeline engine for individual stages share the same state but
// carry stage-local streams.
type Session struct {
	processor *Processor
	state     *sessionState
	streams   Streams
}

type sessionState struct {
	mu        sync.Mutex
	variables map[string]interface{}
	closed    bool
	location  string
}

// In returns the session's input stream.
func (s *Session) In() io.Reader { return s.streams.In }

// Out returns the session's output stream.
func (s *Session) Out() io.Writer { return s.streams.Out }

// Err returns the session's error stream.
func (s *Session) Err() io.Writer { return s.streams.Err }

// Processor returns the owning processor.
func (s *Session) Processor() *Processor { return s.processor }

// Close marks the session closed. Every later Execute fails with
// ErrSessionClosed before evaluating anything.
func (s *Session) Close() {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.closed = true
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.closed
}

// Execute parses and runs a command line, returning the value of its last
// pipeline.
func (s *Session) Execute(ctx context.Context, source string) (interface{}, error) {
	if s.Closed() {
		return nil, ErrSessionClosed
	}

	s.processor.beforeExecute(s, source)

	c, err := NewClosure(s, nil, source)
	if err != nil {
		s.processor.afterExecute(s, source, nil, err)
		return nil, err
	}
	result, err := c.Execute(ctx, s, nil)
	s.processor.afterExecute(s, source, result, err)
	return result, err
}

// Get resolves a name: reserved views first, then processor constants,
// then #name function variables, then session variables, and finally the
// command registry.
func (s *Session) Get(name string) interface{} {
	if name == "" || name == VariablesVar {
		return s.VariableNames()
	}
	if name == CommandsVar {
		return s.processor.CommandNames()
	}

	s.processor.mu.Lock()
	constant, isConstant := s.processor.constants[name]
	s.processor.mu.Unlock()
	if isConstant {
		return constant
	}

	s.state.mu.Lock()
	hashed, isHashed := s.state.variables["#"+name]
	value, bound := s.state.variables[name]
	scope := s.state.variables[ScopeVar]
	s.state.mu.Unlock()

	if isHashed {
		if fn, ok := hashed.(Function); ok {
			// A #name function variable is evaluated on read; a
			// failure reads as null.
			v, err := fn.Execute(context.Background(), s, nil)
			if err != nil {
				return nil
			}
			return v
		}
		if hashed != nil {
			return hashed
		}
	}

	if bound && value != nil {
		return value
	}

	if fn := s.processor.Command(name, scope); fn != nil {
		return fn
	}
	return nil
}

// Put binds a variable.
func (s *Session) Put(name string, value interface{}) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.variables[name] = value
}

// Remove unbinds a variable and returns its prior value.
func (s *Session) Remove(name string) interface{} {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	prior := s.state.variables[name]
	delete(s.state.variables, name)
	return prior
}

// VariableNames returns the bound variable names, sorted.
func (s *Session) VariableNames() []string {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	names := make([]string, 0, len(s.state.variables))
	for k := range s.state.variables {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Expr evaluates an expression via the processor's expression evaluator.
func (s *Session) Expr(source string) (interface{}, error) {
	s.processor.mu.Lock()
	eval := s.processor.expr
	s.processor.mu.Unlock()
	return eval(s, source)
}

// invoke requests host method dispatch from the processor's invoker.
func (s *Session) invoke(ctx context.Context, target interface{}, method string, args []interface{}) (interface{}, error) {
	s.processor.mu.Lock()
	invoker := s.processor.invoker
	s.processor.mu.Unlock()
	if invoker == nil {
		invoker = builtinInvoker{}
	}
	return invoker.Invoke(ctx, s, target, method, args)
}

// withStreams returns a view of the session with a different stream
// triad. Variables, closed state and error locations stay shared.
func (s *Session) withStreams(streams Streams) *Session {
	clone := *s
	clone.streams = streams
	return &clone
}

// setStreams replaces the session triad, returning the prior triad. The
// pipeline engine snapshots and restores around every pipeline.
func (s *Session) setStreams(streams Streams) Streams {
	prior := s.streams
	s.streams = streams
	return prior
}

// clearLocation resets error-location tracking at the top of an execute.
func (s *Session) clearLocation() {
	s.state.mu.Lock()
	s.state.location = ""
	delete(s.state.variables, LocationVar)
	s.state.mu.Unlock()
}

// location returns the current error location, "" when unset.
func (s *Session) location() string {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.location
}

// setLocation records an error location and mirrors it into .location.
func (s *Session) setLocation(loc string) {
	s.state.mu.Lock()
	s.state.location = loc
	s.state.variables[LocationVar] = loc
	s.state.mu.Unlock()
}

// defaultLocked reports whether the default-handler reentry guard is set.
func (s *Session) defaultLocked() bool {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	_, ok := s.state.variables[defaultLockVar]
	return ok
}
