// Package commands provides the built-in command set for the shell:
// stream utilities, control-flow helpers and session introspection.
package commands

import (
	"fmt"
	"io"

	getopt "github.com/pborman/getopt/v2"

	"josephlewis.net/gosh/core/shell"
	"josephlewis.net/gosh/core/token"
)

// AllCommands holds every registered builtin by name.
var AllCommands = make(map[string]shell.Function)

func addCmd(name string, fn shell.Function) {
	AllCommands[name] = fn
}

// Install registers every builtin on the processor under the wildcard
// scope.
func Install(p *shell.Processor) {
	for name, fn := range AllCommands {
		p.AddCommand("", name, fn)
	}
}

// Strings renders argument values the way interpolation would.
func Strings(values []interface{}) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = token.Text(v)
	}
	return out
}

// SimpleCommand handles flag parsing and help for builtins that take
// POSIX-style flags.
type SimpleCommand struct {
	// Use holds a one line usage string.
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help
	// flag isn't added.
	ShowHelp *bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run parses flags from the stringified values and calls the callback
// with the positional arguments left over.
func (s *SimpleCommand) Run(name string, sess *shell.Session, values []interface{}, callback func(args []string) (interface{}, error)) (interface{}, error) {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	argv := append([]string{name}, Strings(values)...)
	if err := opts.Getopt(argv, nil); err != nil {
		fmt.Fprintf(sess.Err(), "error: %s\n\n", err)
		s.PrintHelp(sess.Err())
		return nil, err
	}

	if *s.ShowHelp {
		s.PrintHelp(sess.Out())
		return nil, nil
	}

	return callback(opts.Args())
}

// eachInput runs the callback on every named file, or on the session's
// input stream when no files are given.
func eachInput(sess *shell.Session, files []string, open func(name string) (io.ReadCloser, error), callback func(name string, r io.Reader) error) error {
	if len(files) == 0 {
		return callback("-", sess.In())
	}
	for _, name := range files {
		fd, err := open(name)
		if err != nil {
			return err
		}
		if err := callback(name, fd); err != nil {
			fd.Close()
			return err
		}
		fd.Close()
	}
	return nil
}

// closureArg asserts that a value is callable, for control-flow builtins
// that take { ... } blocks.
func closureArg(v interface{}) (shell.Function, error) {
	fn, ok := v.(shell.Function)
	if !ok {
		return nil, fmt.Errorf("expected a closure, got %s", token.Text(v))
	}
	return fn, nil
}

// truthy mirrors the shell's condition semantics: null and false are
// false, everything else is true.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	default:
		return true
	}
}
