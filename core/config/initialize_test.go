package config

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitialize(t *testing.T) {
	tempDir := t.TempDir()
	if err := Initialize(tempDir, log.New(io.Discard, "", 0)); err != nil {
		t.Fatal(err)
	}

	// Check that the config is valid
	cfg, err := Load(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	assert.Nil(t, cfg.Validate())

	t.Run("PrivateKeyPem", func(t *testing.T) {
		keyPem, err := cfg.PrivateKeyPem()
		assert.Nil(t, err)
		assert.NotNil(t, keyPem)
	})

	t.Run("OpenAppLog", func(t *testing.T) {
		fd, err := cfg.OpenAppLog()
		assert.Nil(t, err)
		fd.Close()
	})

	t.Run("ProfilesFs", func(t *testing.T) {
		fi, err := cfg.ProfilesFs().Stat("/")
		assert.Nil(t, err)
		assert.True(t, fi.IsDir())
	})

	t.Run("Reinitialize", func(t *testing.T) {
		assert.Nil(t, Initialize(tempDir, log.New(io.Discard, "", 0)))
	})
}
