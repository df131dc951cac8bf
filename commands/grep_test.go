package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrep(t *testing.T) {
	sess, out, _ := newSession(t, "apple\nbanana\ncherry\n")

	v, err := sess.Execute(context.Background(), "grep an")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.Equal(t, "banana\n", out.String())
}

func TestGrepInvert(t *testing.T) {
	sess, out, _ := newSession(t, "apple\nbanana\n")

	_, err := sess.Execute(context.Background(), "grep -v an")
	require.NoError(t, err)
	assert.Equal(t, "apple\n", out.String())
}

func TestGrepIgnoreCaseAndLineNumbers(t *testing.T) {
	sess, out, _ := newSession(t, "Apple\nbanana\napricot\n")

	_, err := sess.Execute(context.Background(), "grep -i -n ap")
	require.NoError(t, err)
	assert.Equal(t, "1:Apple\n3:apricot\n", out.String())
}

func TestGrepMissingPattern(t *testing.T) {
	sess, _, _ := newSession(t, "")

	_, err := sess.Execute(context.Background(), "grep")
	require.Error(t, err)
}

func TestGrepBadPattern(t *testing.T) {
	sess, _, _ := newSession(t, "")

	_, err := sess.Execute(context.Background(), "grep '('")
	require.Error(t, err)
}
