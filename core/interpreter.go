// Package core ties the shell runtime to a configuration and exposes it
// over interactive consoles and SSH.
package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"josephlewis.net/gosh/commands"
	"josephlewis.net/gosh/core/config"
	"josephlewis.net/gosh/core/shell"
)

// Interpreter owns a command processor configured for one installation.
// A single interpreter serves many concurrent sessions.
type Interpreter struct {
	configuration *config.Configuration
	processor     *shell.Processor
}

// NewInterpreter builds a processor with the builtin command set
// installed.
func NewInterpreter(configuration *config.Configuration) *Interpreter {
	processor := shell.NewProcessor()
	commands.Install(processor)

	return &Interpreter{
		configuration: configuration,
		processor:     processor,
	}
}

// Processor exposes the command registry, for embedders that register
// their own commands.
func (i *Interpreter) Processor() *shell.Processor {
	return i.processor
}

// NewSession creates a session seeded from the configuration.
func (i *Interpreter) NewSession(in io.Reader, out, errOut io.Writer) *shell.Session {
	sess := i.processor.NewSession(in, out, errOut)
	sess.Put(PromptVar, i.configuration.Prompt)
	if env := i.configuration.Environment; env != "" {
		sess.Put("environment", env)
	}
	return sess
}

// RunStartupScripts executes the configured scripts in order. The first
// failing script aborts the rest.
func (i *Interpreter) RunStartupScripts(ctx context.Context, sess *shell.Session) error {
	for _, name := range i.configuration.StartupScripts {
		if _, err := i.RunScript(ctx, sess, i.configuration.ScriptPath(name)); err != nil {
			return err
		}
	}
	return nil
}

// RunScript executes a script file in the session, making the script
// name available as $0 for the duration.
func (i *Interpreter) RunScript(ctx context.Context, sess *shell.Session, path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	prev := sess.Get("0")
	sess.Put("0", name)
	defer func() {
		if prev == nil {
			sess.Remove("0")
		} else {
			sess.Put("0", prev)
		}
	}()

	result, err := sess.Execute(ctx, string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return result, nil
}
