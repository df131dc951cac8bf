package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"log"
	"os"
	"path/filepath"
)

const defaultStartupScript = `# Runs before the interactive console starts.
# welcome = { echo "gosh " $1 }
`

// Initialize seeds a configuration directory: default config.yaml, an SSH
// host key, and empty profile and script stores. Existing files are left
// alone so it is safe to re-run.
func Initialize(path string, logger *log.Logger) error {
	for _, dir := range []string{path, filepath.Join(path, ProfilesDirName), filepath.Join(path, ScriptsDirName)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	if err := writeIfMissing(filepath.Join(path, ConfigurationName), defaultConfigData, 0644, logger); err != nil {
		return err
	}

	if err := writeIfMissing(filepath.Join(path, ScriptsDirName, "init.gosh"), []byte(defaultStartupScript), 0644, logger); err != nil {
		return err
	}

	keyPath := filepath.Join(path, PrivateKeyName)
	if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		logger.Printf("generating SSH host key: %s", keyPath)
		keyPem, err := generateHostKey()
		if err != nil {
			return err
		}
		if err := os.WriteFile(keyPath, keyPem, 0600); err != nil {
			return err
		}
	}

	return nil
}

func writeIfMissing(path string, data []byte, mode os.FileMode, logger *log.Logger) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	logger.Printf("creating %s", path)
	return os.WriteFile(path, data, mode)
}

func generateHostKey() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
