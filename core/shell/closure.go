package shell

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"josephlewis.net/gosh/core/token"
)

// Closure is a captured frame pairing a parsed program with a session and
// a parameter list. Closures implement Function, so a { ... } literal can
// be bound to a variable and invoked later.
type Closure struct {
	session *Session
	parent  *Closure
	source  string
	program token.Program
	script  interface{} // by convention, $0 is the script name

	// ctx carries the execution context into token evaluation so that
	// nested executions observe cancellation.
	ctx context.Context

	errTok  *token.Token
	errTok2 *token.Token
	parms   *ArgList
	parmv   []interface{}
}

var _ Function = (*Closure)(nil)
var _ token.Evaluator = (*Closure)(nil)

// NewClosure parses source into a program captured against the session.
// The body is not executed.
func NewClosure(session *Session, parent *Closure, source string) (*Closure, error) {
	c := &Closure{
		session: session,
		parent:  parent,
		source:  source,
		script:  session.Get("0"),
	}
	program, err := token.Parse(source)
	if err != nil {
		return nil, c.setLocation(err)
	}
	c.program = program
	return c, nil
}

// Session returns the session the closure was captured against.
func (c *Closure) Session() *Session {
	return c.session
}

// Execute runs the closure's program. A nil values list inherits the
// parent frame's parameters, or seeds them from the session's args
// variable at the top level.
//
// When the caller is a stream view of the same session state (a pipeline
// stage), the body runs against the caller's streams rather than the
// streams current when the closure was captured.
func (c *Closure) Execute(ctx context.Context, caller *Session, values []interface{}) (interface{}, error) {
	run := c
	if caller != nil && caller != c.session && caller.state == c.session.state {
		clone := *c
		clone.session = caller
		run = &clone
	}
	run.session.clearLocation()
	v, err := run.execute(ctx, values)
	if err != nil {
		err = run.setLocation(err)
	}
	return v, err
}

// setLocation annotates the session with the earliest touched error
// position. The first location recorded for an execute wins; later
// re-throws may only prefix the script name.
func (c *Closure) setLocation(err error) error {
	if c.session.defaultLocked() {
		return err
	}

	script := ""
	if c.script != nil {
		script = toText(c.script)
	}

	loc := c.session.location()
	if loc == "" {
		if script != "" {
			loc = script + ":"
		}
		var se *token.SyntaxError
		if errors.As(err, &se) {
			loc += fmt.Sprintf("%d.%d", se.Line, se.Col)
		} else if c.errTok != nil {
			loc += c.errTok.Pos()
		}
		c.session.setLocation(loc)
	} else if script != "" && !strings.Contains(loc, ":") {
		c.session.setLocation(script + ":" + loc)
	}

	return err
}

func (c *Closure) execute(ctx context.Context, values []interface{}) (interface{}, error) {
	switch {
	case values != nil:
		c.parmv = values
		c.parms = NewArgList(values)
	case c.parent != nil:
		// Inherit the parent frame's parameters.
		c.parms = c.parent.parms
		c.parmv = c.parent.parmv
	default:
		if args, ok := c.session.Get("args").([]interface{}); ok {
			c.parmv = args
			c.parms = NewArgList(args)
		}
	}

	c.ctx = ctx

	var last *Pipe
	mark := c.session.streams

	for _, pipeline := range c.program {
		pipes := make([]*Pipe, 0, len(pipeline))
		for _, statement := range pipeline {
			current := newPipe(c, statement)
			if len(pipes) == 0 {
				current.streams = c.session.streams
			} else {
				pipes[len(pipes)-1].connect(current)
			}
			pipes = append(pipes, current)
		}

		if len(pipes) == 1 {
			pipes[0].run(ctx)
		} else {
			for _, p := range pipes {
				go p.run(ctx)
			}
			if err := joinPipes(ctx, pipes); err != nil {
				c.session.setStreams(mark)
				return nil, err
			}
		}

		last = pipes[len(pipes)-1]

		for _, p := range pipes[:len(pipes)-1] {
			if p.exception == nil {
				continue
			}
			// The pipeline's value is defined by the last stage, so
			// earlier failures are reported, not raised.
			loc := "pipe: "
			if s := toText(c.session.Get(LocationVar)); strings.Contains(s, ":") {
				loc = s + ": "
			}
			fmt.Fprintln(c.session.Err(), loc+p.exception.Error())
			c.session.Put(PipeExceptionVar, p.exception)
		}

		if last.exception != nil {
			if last.stage != nil {
				c.errTok = last.stage.errTok
				c.errTok2 = last.stage.errTok2
			}
			c.session.setStreams(mark)
			return nil, last.exception
		}
	}

	// Reset IO in case the same session is reused by a new client.
	c.session.setStreams(mark)

	if last == nil {
		return nil, nil
	}
	return last.result, nil
}

// Get implements the frame's variable lookup order: reserved parameter
// names first, then the session.
func (c *Closure) Get(name string) interface{} {
	if c.parms != nil {
		switch name {
		case "args":
			return c.parms
		case "argv":
			return c.parmv
		case "it":
			return c.parms.Get(0)
		}
		if len(name) == 1 && name[0] >= '1' && name[0] <= '9' {
			return c.parms.Get(int(name[0]-'0') - 1)
		}
	}
	return c.session.Get(name)
}

// Eval implements token.Evaluator for the expander.
func (c *Closure) Eval(t *token.Token) (interface{}, error) {
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return c.eval(ctx, t)
}

func (c *Closure) eval(ctx context.Context, t *token.Token) (interface{}, error) {
	switch t.Kind {
	case token.Word:
		v, err := token.Expand(t, c)
		if err != nil {
			return nil, err
		}
		if tok, ok := v.(*token.Token); ok && tok == t {
			if t.Quoted {
				return t.Value, nil
			}
			// No substitution applied: coerce the literal text.
			return coerce(t.Value), nil
		}
		return v, nil

	case token.Closure:
		return NewClosure(c.session, c, t.Value)

	case token.Execution:
		nested, err := NewClosure(c.session, c, t.Value)
		if err != nil {
			return nil, err
		}
		return nested.Execute(ctx, c.session, c.parmValues())

	case token.Array:
		return c.array(ctx, t)

	case token.Assign:
		return token.Assign, nil

	case token.Expr:
		return c.session.Expr(t.Value)

	default:
		return nil, token.NewSyntaxError(t.Line, t.Col, "unexpected token: %v", t.Kind)
	}
}

// coerce reconstructs a typed value from literal text. The ladder order
// matters: the float parse catches "3.5" while the integer parse narrows
// "3" to an integer.
func coerce(s string) interface{} {
	switch s {
	case "null":
		return nil
	case "false":
		return false
	case "true":
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	return s
}

func (c *Closure) parmValues() []interface{} {
	if c.parms == nil {
		return nil
	}
	return c.parms.Values()
}

func (c *Closure) array(ctx context.Context, t *token.Token) (interface{}, error) {
	list, pairs, err := token.ParseArray(t)
	if err != nil {
		return nil, err
	}

	if pairs == nil {
		out := make([]interface{}, 0, len(list))
		for _, el := range list {
			v, err := c.eval(ctx, el)
			if err != nil {
				return nil, err
			}
			if sub, ok := v.([]interface{}); ok {
				// Single level of flattening.
				out = append(out, sub...)
			} else {
				out = append(out, v)
			}
		}
		return out, nil
	}

	d := NewDict()
	for _, pr := range pairs {
		k, err := c.eval(ctx, pr.Key)
		if err != nil {
			return nil, err
		}
		ks, ok := k.(string)
		if !ok {
			return nil, token.NewSyntaxError(pr.Key.Line, pr.Key.Col,
				"map key null or not String: %s", pr.Key.Source)
		}
		v, err := c.eval(ctx, pr.Value)
		if err != nil {
			return nil, err
		}
		d.Put(ks, v)
	}
	return d, nil
}

/*
executeStatement handles the following cases:

	<string> = word       simple assignment
	<string> = word word.. complex assignment
	<bareword> word..     command invocation
	<object>              value of <object>
	<object> word..       method call
*/
func (c *Closure) executeStatement(ctx context.Context, statement token.Statement) (interface{}, error) {
	echo := c.session.Get("echo")
	xtrace := ""
	if echo != nil && toText(echo) != "false" {
		// set -x style execution trace.
		var b strings.Builder
		b.WriteString("+")
		for _, t := range statement {
			b.WriteByte(' ')
			b.WriteString(t.Source)
		}
		xtrace = b.String()
		fmt.Fprintln(c.session.Err(), xtrace)
	}

	c.errTok = statement[0]
	if len(statement) > 3 && statement[1].Kind == token.Assign {
		c.errTok2 = statement[2]
	}

	values := make([]interface{}, 0, len(statement))
	for _, t := range statement {
		v, err := c.eval(ctx, t)
		if err != nil {
			return nil, err
		}

		if t.Kind == token.Execution && len(statement) == 1 {
			return v, nil
		}

		if al, ok := v.(*ArgList); ok && al == c.parms && c.parms != nil {
			// Explode a bare $args into the statement.
			values = append(values, c.parms.Values()...)
		} else {
			values = append(values, v)
		}
	}

	cmd := values[0]
	values = values[1:]
	if cmd == nil {
		if len(values) == 0 {
			return nil, nil
		}
		return nil, &CommandNameNullError{Source: c.errTok.Source}
	}

	if name, ok := cmd.(string); ok && len(values) > 0 && isAssignMark(values[0]) {
		values = values[1:]

		if len(values) == 0 {
			return c.session.Remove(name), nil
		}
		if len(values) == 1 {
			c.session.Put(name, values[0])
			return values[0], nil
		}

		// Multiple rhs values: evaluate them as a nested invocation.
		head := values[0]
		values = values[1:]
		if head == nil {
			bad := c.errTok2
			if bad == nil {
				bad = c.errTok
			}
			return nil, &CommandNameNullError{Source: bad.Source}
		}

		c.trace2(xtrace, head, values)

		bare := false
		if c.errTok2 != nil {
			var err error
			if bare, err = c.bareword(c.errTok2); err != nil {
				return nil, err
			}
		}

		var value interface{}
		var err error
		if bare {
			value, err = c.executeCmd(ctx, toText(head), values)
		} else {
			value, err = c.executeMethod(ctx, head, values)
		}
		if err != nil {
			return nil, err
		}
		c.session.Put(name, value)
		return value, nil
	}

	c.trace2(xtrace, cmd, values)

	bare, err := c.bareword(statement[0])
	if err != nil {
		return nil, err
	}
	if bare {
		return c.executeCmd(ctx, toText(cmd), values)
	}
	return c.executeMethod(ctx, cmd, values)
}

func isAssignMark(v interface{}) bool {
	k, ok := v.(token.Kind)
	return ok && k == token.Assign
}

// trace2 prints the second-level, post-expansion execution trace when echo
// is verbose and it differs from the raw trace.
func (c *Closure) trace2(trace1 string, cmd interface{}, values []interface{}) {
	if toText(c.session.Get("echo")) != "verbose" {
		return
	}
	var b strings.Builder
	b.WriteString("+ ")
	b.WriteString(toText(cmd))
	for _, v := range values {
		b.WriteByte(' ')
		b.WriteString(toText(v))
	}
	trace2 := b.String()
	if trace2 != trace1 {
		fmt.Fprintln(c.session.Err(), "+"+trace2)
	}
}

// bareword reports whether the token is a plain text word that survived
// expansion untouched; only barewords resolve through the command
// registry.
func (c *Closure) bareword(t *token.Token) (bool, error) {
	if t.Kind != token.Word {
		return false, nil
	}
	v, err := token.Expand(t, c)
	if err != nil {
		return false, err
	}
	if tok, ok := v.(*token.Token); !ok || tok != t {
		return false, nil
	}
	_, isText := coerce(t.Value).(string)
	return isText, nil
}

// executeCmd resolves a command name and invokes it: direct lookup, then
// the wildcard scope, then the default handler under the reentry lock.
func (c *Closure) executeCmd(ctx context.Context, scmd string, values []interface{}) (interface{}, error) {
	if fn, ok := c.Get(scmd).(Function); ok {
		return fn.Execute(ctx, c.session, values)
	}

	scoped := scmd
	if !strings.Contains(scmd, ":") {
		scoped = "*:" + scmd
	}
	if fn, ok := c.Get(scoped).(Function); ok {
		return fn.Execute(ctx, c.session, values)
	}

	if !c.session.defaultLocked() {
		handler := c.Get("default")
		if handler == nil {
			handler = c.Get("*:default")
		}
		if fn, ok := handler.(Function); ok {
			c.session.Put(defaultLockVar, true)
			defer c.session.Remove(defaultLockVar)
			return fn.Execute(ctx, c.session, append([]interface{}{scmd}, values...))
		}
	}

	return nil, &CommandNotFoundError{Name: scmd}
}

// executeMethod treats cmd as a target value: dotted chaining, host array
// indexing, or a single method dispatch through the invoker.
func (c *Closure) executeMethod(ctx context.Context, cmd interface{}, values []interface{}) (interface{}, error) {
	if len(values) == 0 {
		return cmd, nil
	}

	if fn, ok := cmd.(Function); ok {
		return fn.Execute(ctx, c.session, values)
	}

	if s, ok := values[0].(string); ok && s == "." && len(values) > 1 {
		// Method chaining with the dot pseudo-operator:
		//   (bundle 0) . loadClass java.net.InetAddress . localhost . hostname
		//   (((bundle 0) loadClass java.net.InetAddress) localhost) hostname
		target := cmd
		var args []interface{}
		for _, arg := range values[1:] {
			if s, ok := arg.(string); ok && s == "." {
				if len(args) == 0 {
					return nil, token.NewSyntaxError(c.errTok.Line, c.errTok.Col,
						"missing method name before .")
				}
				var err error
				target, err = c.session.invoke(ctx, target, toText(args[0]), args[1:])
				if err != nil {
					return nil, err
				}
				args = nil
			} else {
				args = append(args, arg)
			}
		}
		if len(args) == 0 {
			return target, nil
		}
		return c.session.invoke(ctx, target, toText(args[0]), args[1:])
	}

	if len(values) == 1 {
		if v, handled, err := indexArray(cmd, values[0]); handled {
			return v, err
		}
	}

	return c.session.invoke(ctx, cmd, toText(values[0]), values[1:])
}

// indexArray handles `<array> length` and `<array> <index>` when the
// target is an array-like value.
func indexArray(cmd interface{}, arg interface{}) (interface{}, bool, error) {
	rv := reflect.ValueOf(cmd)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false, nil
	}

	index := toText(arg)
	if index == "length" {
		return int64(rv.Len()), true, nil
	}
	i, err := strconv.Atoi(index)
	if err != nil || i < 0 {
		return nil, true, fmt.Errorf("invalid array index: %s", index)
	}
	if i >= rv.Len() {
		return nil, true, fmt.Errorf("array index out of range: %d", i)
	}
	return rv.Index(i).Interface(), true, nil
}
