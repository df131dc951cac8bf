package commands

import (
	"context"
	"errors"

	"josephlewis.net/gosh/core/shell"
)

// If evaluates a condition closure and runs the matching branch:
//
//	if { cond } { then } [ { else } ]
func If(ctx context.Context, sess *shell.Session, values []interface{}) (interface{}, error) {
	if len(values) < 2 || len(values) > 3 {
		return nil, errors.New("usage: if {condition} {then} [{else}]")
	}

	cond, err := closureArg(values[0])
	if err != nil {
		return nil, err
	}
	v, err := cond.Execute(ctx, sess, nil)
	if err != nil {
		return nil, err
	}

	branch := 1
	if !truthy(v) {
		branch = 2
	}
	if branch >= len(values) {
		return nil, nil
	}
	fn, err := closureArg(values[branch])
	if err != nil {
		return nil, err
	}
	return fn.Execute(ctx, sess, nil)
}

// Not executes a closure and negates the truthiness of its result.
func Not(ctx context.Context, sess *shell.Session, values []interface{}) (interface{}, error) {
	if len(values) != 1 {
		return nil, errors.New("usage: not {closure}")
	}
	fn, err := closureArg(values[0])
	if err != nil {
		return nil, err
	}
	v, err := fn.Execute(ctx, sess, nil)
	if err != nil {
		return nil, err
	}
	return !truthy(v), nil
}

// Each applies a closure to every element of a list and collects the
// results:
//
//	each [a b c] { echo $it }
func Each(ctx context.Context, sess *shell.Session, values []interface{}) (interface{}, error) {
	if len(values) != 2 {
		return nil, errors.New("usage: each [list] {closure}")
	}
	list, ok := values[0].([]interface{})
	if !ok {
		return nil, errors.New("each: first argument must be a list")
	}
	fn, err := closureArg(values[1])
	if err != nil {
		return nil, err
	}

	out := make([]interface{}, 0, len(list))
	for _, el := range list {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := fn.Execute(ctx, sess, []interface{}{el})
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// While repeatedly runs a body while a condition closure stays truthy.
func While(ctx context.Context, sess *shell.Session, values []interface{}) (interface{}, error) {
	if len(values) != 2 {
		return nil, errors.New("usage: while {condition} {body}")
	}
	cond, err := closureArg(values[0])
	if err != nil {
		return nil, err
	}
	body, err := closureArg(values[1])
	if err != nil {
		return nil, err
	}

	var last interface{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := cond.Execute(ctx, sess, nil)
		if err != nil {
			return nil, err
		}
		if !truthy(v) {
			return last, nil
		}
		if last, err = body.Execute(ctx, sess, nil); err != nil {
			return nil, err
		}
	}
}

func init() {
	addCmd("if", shell.FunctionFunc(If))
	addCmd("not", shell.FunctionFunc(Not))
	addCmd("each", shell.FunctionFunc(Each))
	addCmd("while", shell.FunctionFunc(While))
}
