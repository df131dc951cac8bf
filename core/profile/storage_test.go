package profile

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()

	orig := NewBuilder("base").
		SetConfig("svc", map[string]string{"port": "8080"}).
		AddFile("scripts/init.gosh", []byte("x = 1\n")).
		Build()

	require.NoError(t, Save(fs, "/profiles", orig))

	loaded, err := Load(fs, "/profiles")
	require.NoError(t, err)
	require.Contains(t, loaded, "base")

	got := loaded["base"]
	assert.Equal(t, orig.ID(), got.ID())
	assert.Equal(t, orig.FileNames(), got.FileNames())
	for _, name := range orig.FileNames() {
		assert.Equal(t, orig.File(name), got.File(name), name)
	}
}

func TestStorageNestedID(t *testing.T) {
	fs := afero.NewMemMapFs()

	p := NewBuilder("env-prod-web").
		SetConfig("svc", map[string]string{"mode": "prod"}).
		Build()
	require.NoError(t, Save(fs, "/profiles", p))

	// Dashes nest: env-prod-web lives at env/prod/web.profile.
	exists, err := afero.DirExists(fs, "/profiles/env/prod/web.profile")
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := Load(fs, "/profiles")
	require.NoError(t, err)
	require.Contains(t, loaded, "env-prod-web")
	assert.Equal(t, "prod", loaded["env-prod-web"].Config("svc")["mode"])
}

func TestStorageDelete(t *testing.T) {
	fs := afero.NewMemMapFs()

	p := NewBuilder("gone").SetConfig("svc", map[string]string{"a": "1"}).Build()
	require.NoError(t, Save(fs, "/profiles", p))
	require.NoError(t, Delete(fs, "/profiles", "gone"))

	loaded, err := Load(fs, "/profiles")
	require.NoError(t, err)
	assert.NotContains(t, loaded, "gone")
}

func TestStorageSaveReplaces(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, Save(fs, "/profiles", NewBuilder("p").
		AddFile("stale.txt", []byte("old")).Build()))
	require.NoError(t, Save(fs, "/profiles", NewBuilder("p").
		AddFile("fresh.txt", []byte("new")).Build()))

	loaded, err := Load(fs, "/profiles")
	require.NoError(t, err)
	require.Contains(t, loaded, "p")
	assert.Equal(t, []string{"fresh.txt"}, loaded["p"].FileNames())
}
