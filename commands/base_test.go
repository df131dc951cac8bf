package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"josephlewis.net/gosh/core/shell"
)

// newSession builds a session with every builtin installed, reading input
// from the given text.
func newSession(t *testing.T, input string) (*shell.Session, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	p := shell.NewProcessor()
	Install(p)
	var out, errOut bytes.Buffer
	return p.NewSession(strings.NewReader(input), &out, &errOut), &out, &errOut
}

func TestStrings(t *testing.T) {
	got := Strings([]interface{}{"a", int64(1), nil, true})
	assert.Equal(t, []string{"a", "1", "null", "true"}, got)
}

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(false))
	assert.True(t, truthy(true))
	assert.True(t, truthy(int64(0)), "only null and false are false")
	assert.True(t, truthy(""))
}

func TestSimpleCommandHelp(t *testing.T) {
	sess, out, _ := newSession(t, "")

	v, err := sess.Execute(context.Background(), "echo --help")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Contains(t, out.String(), "usage: echo")
	assert.Contains(t, out.String(), "Flags:")
}

func TestSimpleCommandBadFlag(t *testing.T) {
	sess, _, errOut := newSession(t, "")

	_, err := sess.Execute(context.Background(), "echo -Z")
	require.Error(t, err)
	assert.Contains(t, errOut.String(), "usage: echo")
}

func TestInstallRegistersEverything(t *testing.T) {
	p := shell.NewProcessor()
	Install(p)
	names := p.CommandNames()
	for name := range AllCommands {
		assert.Contains(t, names, "*:"+name)
	}
}
