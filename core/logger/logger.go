// Package logger captures interaction events in newline delimited JSON
// so sessions can be audited after the fact.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"time"
)

// Event is the payload of a single log line. Exactly one of the typed
// sub-records is set, named by EventType.
type Event struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`
	EventType       string `json:"event_type"`

	LoginAttempt *LoginAttempt `json:"login_attempt,omitempty"`
	RunScript    *RunScript    `json:"run_script,omitempty"`
	Execute      *Execute      `json:"execute,omitempty"`
	SessionEnd   *SessionEnd   `json:"session_end,omitempty"`
}

// LoginAttempt records the outcome of an authentication exchange.
type LoginAttempt struct {
	Success    bool   `json:"success"`
	Username   string `json:"username"`
	RemoteAddr string `json:"remote_addr,omitempty"`
}

// RunScript records a startup or operator supplied script execution.
type RunScript struct {
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}

// Execute records one top-level console line.
type Execute struct {
	Source   string `json:"source"`
	Location string `json:"location,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SessionEnd records the close of a console session.
type SessionEnd struct{}

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(e *Event) error

// Logger captures interaction events for later reporting.
type Logger struct {
	Record LogRecorder
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	return &Logger{
		Record: func(e *Event) error {
			entry, err := json.Marshal(e)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

func (l *Logger) record(sessionID string, e *Event) error {
	e.TimestampMicros = time.Now().UnixMicro()
	e.SessionID = sessionID
	return l.Record(e)
}

// NewSession creates a logger with an attached random session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{logger: l, sessionID: fmt.Sprintf("%d", rand.Uint64())}
}

// Sessionless creates a logger without a session ID, for events that
// precede a session.
func (l *Logger) Sessionless() *SessionLogger {
	return &SessionLogger{logger: l}
}

// SessionLogger logs events with a shared session ID.
type SessionLogger struct {
	logger    *Logger
	sessionID string
}

func (l *SessionLogger) LoginAttempt(success bool, username, remoteAddr string) error {
	return l.logger.record(l.sessionID, &Event{
		EventType: "login_attempt",
		LoginAttempt: &LoginAttempt{
			Success:    success,
			Username:   username,
			RemoteAddr: remoteAddr,
		},
	})
}

func (l *SessionLogger) RunScript(name string, err error) error {
	return l.logger.record(l.sessionID, &Event{
		EventType: "run_script",
		RunScript: &RunScript{Name: name, Error: errString(err)},
	})
}

func (l *SessionLogger) Execute(source, location string, err error) error {
	return l.logger.record(l.sessionID, &Event{
		EventType: "execute",
		Execute:   &Execute{Source: source, Location: location, Error: errString(err)},
	})
}

func (l *SessionLogger) SessionEnd() error {
	return l.logger.record(l.sessionID, &Event{
		EventType:  "session_end",
		SessionEnd: &SessionEnd{},
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
