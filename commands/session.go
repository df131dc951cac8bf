package commands

import (
	"context"
	"fmt"
	"strings"

	"josephlewis.net/gosh/core/shell"
)

// Vars lists the session's variable bindings.
func Vars(_ context.Context, sess *shell.Session, values []interface{}) (interface{}, error) {
	cmd := &SimpleCommand{
		Use:   "vars [PREFIX]",
		Short: "List session variables.",
	}

	return cmd.Run("vars", sess, values, func(args []string) (interface{}, error) {
		prefix := ""
		if len(args) > 0 {
			prefix = args[0]
		}

		var names []interface{}
		for _, name := range sess.VariableNames() {
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			fmt.Fprintf(sess.Out(), "%s = %s\n", name, shell.Format(sess.Get(name), shell.Line))
			names = append(names, name)
		}
		return names, nil
	})
}

// Commands lists the registered command names.
func Commands(_ context.Context, sess *shell.Session, values []interface{}) (interface{}, error) {
	cmd := &SimpleCommand{
		Use:   "commands",
		Short: "List registered commands.",
	}

	return cmd.Run("commands", sess, values, func(_ []string) (interface{}, error) {
		names := sess.Processor().CommandNames()
		out := make([]interface{}, 0, len(names))
		for _, name := range names {
			fmt.Fprintln(sess.Out(), name)
			out = append(out, name)
		}
		return out, nil
	})
}

// Show pretty-prints a value to the output stream and passes it through,
// so it can cap a pipeline without eating the result.
func Show(_ context.Context, sess *shell.Session, values []interface{}) (interface{}, error) {
	if len(values) == 0 {
		return nil, nil
	}
	v := values[0]
	if text := shell.Format(v, shell.Inspect); text != "" {
		fmt.Fprintln(sess.Out(), text)
	}
	return v, nil
}

// Exit closes the session. Interactive consoles stop their read loop
// once the session reports closed.
func Exit(_ context.Context, sess *shell.Session, values []interface{}) (interface{}, error) {
	sess.Close()
	return nil, nil
}

func init() {
	addCmd("vars", shell.FunctionFunc(Vars))
	addCmd("commands", shell.FunctionFunc(Commands))
	addCmd("show", shell.FunctionFunc(Show))
	addCmd("exit", shell.FunctionFunc(Exit))
}
