package shell

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"josephlewis.net/gosh/core/expr"
)

// ExecutionListener observes top-level Execute calls on any session owned
// by a processor.
type ExecutionListener interface {
	BeforeExecute(s *Session, source string)
	AfterExecute(s *Session, source string, result interface{}, err error)
}

// Invoker performs method-style dispatch against a host value. The
// evaluator never reflects into host types itself; it only asks the
// invoker.
type Invoker interface {
	Invoke(ctx context.Context, s *Session, target interface{}, method string, args []interface{}) (interface{}, error)
}

// ExprFunc evaluates the body of a %( ... ) token.
type ExprFunc func(s *Session, source string) (interface{}, error)

// Processor owns the command registry and fabricates sessions. One
// processor serves many concurrent sessions.
type Processor struct {
	mu        sync.Mutex
	commands  map[string]Function
	constants map[string]interface{}
	listeners []ExecutionListener

	invoker Invoker
	expr    ExprFunc
}

// NewProcessor returns a processor with an empty registry, the built-in
// method invoker and the built-in expression evaluator.
func NewProcessor() *Processor {
	p := &Processor{
		commands:  make(map[string]Function),
		constants: make(map[string]interface{}),
		invoker:   builtinInvoker{},
	}
	p.expr = func(s *Session, source string) (interface{}, error) {
		return expr.Eval(source, s.Get)
	}
	return p
}

// AddCommand registers fn as scope:name. An empty scope registers under
// the wildcard scope "*".
func (p *Processor) AddCommand(scope, name string, fn Function) {
	if scope == "" {
		scope = "*"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands[scope+":"+name] = fn
}

// RemoveCommand drops a registration.
func (p *Processor) RemoveCommand(scope, name string) {
	if scope == "" {
		scope = "*"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.commands, scope+":"+name)
}

// AddConstant binds a read-only session value resolved before variables.
func (p *Processor) AddConstant(name string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.constants[name] = value
}

// AddListener registers an execution listener.
func (p *Processor) AddListener(l ExecutionListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// SetInvoker replaces the host method-dispatch capability.
func (p *Processor) SetInvoker(i Invoker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invoker = i
}

// SetExpr replaces the expression evaluator behind %( ... ) tokens.
func (p *Processor) SetExpr(f ExprFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expr = f
}

// Command resolves a possibly scoped name against the registry. The scope
// argument is the session's SCOPE variable: a colon-separated search list
// where "*" matches every scope. A nil result means unknown.
func (p *Processor) Command(name string, scope interface{}) Function {
	p.mu.Lock()
	defer p.mu.Unlock()

	if strings.Contains(name, ":") {
		return p.commands[name]
	}

	search := "*"
	if scope != nil {
		search = strings.TrimSpace(toText(scope))
	}
	for _, sc := range strings.Split(search, ":") {
		if sc == "*" {
			for _, key := range p.sortedCommandKeys() {
				if strings.HasSuffix(key, ":"+name) {
					return p.commands[key]
				}
			}
			continue
		}
		if fn, ok := p.commands[sc+":"+name]; ok {
			return fn
		}
	}
	return nil
}

// CommandNames lists the registered scope:name keys, sorted.
func (p *Processor) CommandNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sortedCommandKeys()
}

func (p *Processor) sortedCommandKeys() []string {
	keys := make([]string, 0, len(p.commands))
	for k := range p.commands {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewSession creates a session bound to this processor with the given
// stream triad. Nil streams become null endpoints.
func (p *Processor) NewSession(in io.Reader, out, errOut io.Writer) *Session {
	return &Session{
		processor: p,
		state: &sessionState{
			variables: make(map[string]interface{}),
		},
		streams: NewStreams(in, out, errOut),
	}
}

func (p *Processor) beforeExecute(s *Session, source string) {
	p.mu.Lock()
	listeners := append([]ExecutionListener(nil), p.listeners...)
	p.mu.Unlock()
	for _, l := range listeners {
		l.BeforeExecute(s, source)
	}
}

func (p *Processor) afterExecute(s *Session, source string, result interface{}, err error) {
	p.mu.Lock()
	listeners := append([]ExecutionListener(nil), p.listeners...)
	p.mu.Unlock()
	for _, l := range listeners {
		l.AfterExecute(s, source, result, err)
	}
}
