// Package shell implements the command-shell core: sessions, the closure
// evaluator, the pipeline engine and command dispatch.
//
// Values are dynamically typed. The types flowing through the evaluator
// are nil, bool, int64, float64, string, []interface{}, *Dict, Function
// and opaque host values handed to the session's Invoker.
package shell

import (
	"context"
	"strings"

	"josephlewis.net/gosh/core/token"
)

// Function is any callable the shell can invoke: registered commands,
// closures, and host-provided handlers.
type Function interface {
	Execute(ctx context.Context, s *Session, values []interface{}) (interface{}, error)
}

// FunctionFunc adapts a plain function to the Function interface.
type FunctionFunc func(ctx context.Context, s *Session, values []interface{}) (interface{}, error)

func (f FunctionFunc) Execute(ctx context.Context, s *Session, values []interface{}) (interface{}, error) {
	return f(ctx, s, values)
}

// ArgList is the parameter view of a closure frame. It shares its backing
// elements with the raw argument slice, stringifies by joining with single
// spaces, and yields nil for out-of-range positional reads so that $3
// evaluates to null rather than failing.
//
// The statement driver also uses the *ArgList pointer as an identity: a
// token that expands to the frame's own ArgList is spliced into the
// statement instead of nested.
type ArgList struct {
	list []interface{}
}

// NewArgList wraps args without copying.
func NewArgList(args []interface{}) *ArgList {
	return &ArgList{list: args}
}

// Get returns the i-th argument or nil when out of range.
func (a *ArgList) Get(i int) interface{} {
	if a == nil || i < 0 || i >= len(a.list) {
		return nil
	}
	return a.list[i]
}

// Len returns the argument count.
func (a *ArgList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.list)
}

// Values returns the backing slice, shared, not copied.
func (a *ArgList) Values() []interface{} {
	if a == nil {
		return nil
	}
	return a.list
}

// String joins the arguments with single spaces, so `a$args` interpolates
// the way positional parameters do in a shell.
func (a *ArgList) String() string {
	var b strings.Builder
	for i, v := range a.Values() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(token.Text(v))
	}
	return b.String()
}

// toText renders a value the way interpolation and traces stringify it.
func toText(v interface{}) string {
	return token.Text(v)
}

// Dict is the insertion-ordered map produced by [k=v ...] literals.
type Dict struct {
	keys   []string
	values map[string]interface{}
}

// NewDict returns an empty ordered map.
func NewDict() *Dict {
	return &Dict{values: make(map[string]interface{})}
}

// Put binds key to value, keeping first-insertion order.
func (d *Dict) Put(key string, value interface{}) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value bound to key, or nil.
func (d *Dict) Get(key string) interface{} {
	return d.values[key]
}

// Has reports whether key is bound.
func (d *Dict) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Remove unbinds key and returns its prior value.
func (d *Dict) Remove(key string) interface{} {
	v, ok := d.values[key]
	if !ok {
		return nil
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return v
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the entry count.
func (d *Dict) Len() int {
	return len(d.keys)
}

func (d *Dict) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, k := range d.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(token.Text(d.values[k]))
	}
	b.WriteByte(']')
	return b.String()
}
