package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"

	"josephlewis.net/gosh/core/logger"
	"josephlewis.net/gosh/core/shell"
	"josephlewis.net/gosh/core/token"
)

const (
	// PromptVar lets scripts restyle the prompt at runtime.
	PromptVar = "prompt"

	DefaultPrompt = "gosh> "

	// ContinuationPrompt is shown while a multi-line construct is open.
	ContinuationPrompt = "> "
)

// Console drives an interactive read-eval-print loop over a session.
// Incomplete lines, e.g. an unterminated closure, continue on the next
// line the way a POSIX shell handles an open quote.
type Console struct {
	session  *shell.Session
	readline *readline.Instance
	prompt   string
	log      *logger.SessionLogger

	errColor *color.Color
}

// ConsoleOptions configure a console beyond its session streams.
type ConsoleOptions struct {
	// Prompt is used when the session has no prompt variable set.
	Prompt string
	// HistoryPath persists line history when non-empty.
	HistoryPath string
	// WindowWidth reports the terminal width for line editing.
	WindowWidth func() int
	// IsTerminal reports whether the input understands escape codes.
	IsTerminal func() bool
	// Log records executed lines when non-nil.
	Log *logger.SessionLogger
}

// NewConsole builds a console reading and writing on the session's
// streams.
func NewConsole(session *shell.Session, opts ConsoleOptions) (*Console, error) {
	cfg := &readline.Config{
		Stdin:       readline.NewCancelableStdin(session.In()),
		Stdout:      session.Out(),
		Stderr:      session.Err(),
		HistoryFile: opts.HistoryPath,
	}
	if opts.WindowWidth != nil {
		cfg.FuncGetWidth = opts.WindowWidth
	}
	if opts.IsTerminal != nil {
		cfg.FuncIsTerminal = opts.IsTerminal
	}
	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	return &Console{
		session:  session,
		readline: rl,
		prompt:   opts.Prompt,
		log:      opts.Log,
		errColor: color.New(color.FgRed),
	}, nil
}

// Prompt resolves the current prompt, preferring the session variable so
// scripts can change it.
func (c *Console) Prompt() string {
	if v := c.session.Get(PromptVar); v != nil {
		return token.Text(v)
	}
	if c.prompt != "" {
		return c.prompt
	}
	return DefaultPrompt
}

// Run reads and evaluates lines until the input closes, the session is
// closed or the context is cancelled.
func (c *Console) Run(ctx context.Context) error {
	var pending strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if pending.Len() == 0 {
			c.readline.SetPrompt(c.Prompt())
		} else {
			c.readline.SetPrompt(ContinuationPrompt)
		}

		line, err := c.readline.Readline()
		switch {
		case err == io.EOF:
			return nil // Input closed, quit.

		case err == readline.ErrInterrupt:
			pending.Reset()
			continue

		case err != nil:
			return err
		}

		if pending.Len() > 0 {
			pending.WriteByte('\n')
		}
		pending.WriteString(line)

		source := pending.String()
		if strings.TrimSpace(source) == "" {
			pending.Reset()
			continue
		}

		result, err := c.session.Execute(ctx, source)
		if errors.Is(err, token.ErrIncomplete) {
			continue // An open construct, keep reading.
		}
		pending.Reset()

		if c.log != nil {
			loc, _ := c.session.Get(shell.LocationVar).(string)
			c.log.Execute(source, loc, err)
		}

		switch {
		case err != nil:
			c.errColor.Fprintf(c.readline.Stderr(), "%v\n", err)
		case result != nil:
			fmt.Fprintln(c.readline, shell.Format(result, shell.Inspect))
		}

		if c.session.Closed() {
			return nil
		}
	}
}

func (c *Console) Close() error {
	return c.readline.Close()
}
