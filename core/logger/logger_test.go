package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []Event {
	t.Helper()

	var out []Event
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e Event
		require.NoError(t, json.Unmarshal([]byte(line), &e), line)
		out = append(out, e)
	}
	return out
}

func TestJsonLinesRecorder(t *testing.T) {
	var buf bytes.Buffer
	log := NewJsonLinesLogRecorder(&buf).NewSession()

	require.NoError(t, log.LoginAttempt(true, "admin", "127.0.0.1:9999"))
	require.NoError(t, log.Execute("echo hi", "", nil))
	require.NoError(t, log.Execute("nope", "1.1", errors.New("command not found: nope")))
	require.NoError(t, log.SessionEnd())

	events := decodeLines(t, &buf)
	require.Len(t, events, 4)

	assert.Equal(t, "login_attempt", events[0].EventType)
	assert.Equal(t, "admin", events[0].LoginAttempt.Username)
	assert.True(t, events[0].LoginAttempt.Success)

	assert.Equal(t, "execute", events[1].EventType)
	assert.Empty(t, events[1].Execute.Error)

	assert.Equal(t, "command not found: nope", events[2].Execute.Error)
	assert.Equal(t, "1.1", events[2].Execute.Location)

	assert.Equal(t, "session_end", events[3].EventType)

	for _, e := range events {
		assert.Equal(t, events[0].SessionID, e.SessionID, "session ID is shared")
		assert.NotZero(t, e.TimestampMicros)
	}
}

func TestRunScriptEvent(t *testing.T) {
	var buf bytes.Buffer
	log := NewJsonLinesLogRecorder(&buf).Sessionless()

	require.NoError(t, log.RunScript("init.gosh", nil))

	events := decodeLines(t, &buf)
	require.Len(t, events, 1)
	assert.Equal(t, "run_script", events[0].EventType)
	assert.Equal(t, "init.gosh", events[0].RunScript.Name)
	assert.Empty(t, events[0].SessionID)
}
