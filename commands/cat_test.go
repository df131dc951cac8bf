package commands

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatFromInput(t *testing.T) {
	sess, out, _ := newSession(t, "pass through\n")

	_, err := sess.Execute(context.Background(), "cat")
	require.NoError(t, err)
	assert.Equal(t, "pass through\n", out.String())
}

func TestCatFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.txt", []byte("first\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/b.txt", []byte("second\n"), 0644))

	old := catFs
	catFs = fs
	t.Cleanup(func() { catFs = old })

	sess, out, _ := newSession(t, "")

	_, err := sess.Execute(context.Background(), "cat /a.txt /b.txt")
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", out.String())
}

func TestCatMissingFile(t *testing.T) {
	old := catFs
	catFs = afero.NewMemMapFs()
	t.Cleanup(func() { catFs = old })

	sess, _, _ := newSession(t, "")

	_, err := sess.Execute(context.Background(), "cat /nope.txt")
	require.Error(t, err)
}
