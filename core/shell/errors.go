package shell

import (
	"errors"
	"fmt"
)

// ErrSessionClosed reports an Execute call on a closed session.
var ErrSessionClosed = errors.New("session is closed")

// CommandNotFoundError reports that the dispatch ladder was exhausted
// without resolving a name to a callable.
type CommandNotFoundError struct {
	Name string
}

func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("command not found: %s", e.Name)
}

// CommandNameNullError reports a statement head that evaluated to null
// while arguments were present.
type CommandNameNullError struct {
	Source string
}

func (e *CommandNameNullError) Error() string {
	return fmt.Sprintf("command name evaluates to null: %s", e.Source)
}

// HostInvokeError wraps a failure of the host's reflective method
// dispatch.
type HostInvokeError struct {
	Method string
	Err    error
}

func (e *HostInvokeError) Error() string {
	return fmt.Sprintf("invoking %s: %v", e.Method, e.Err)
}

func (e *HostInvokeError) Unwrap() error {
	return e.Err
}
