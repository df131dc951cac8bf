package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

//go:embed default/config.yaml
var defaultConfigData []byte

const (
	ConfigurationName = "config.yaml"
	ProfilesDirName   = "profiles"
	ScriptsDirName    = "scripts"
	HistoryName       = "history"
	PrivateKeyName    = "private_key"
	AppLogName        = "app.log"
)

type Configuration struct {
	configFs  afero.Fs
	configDir string

	Prompt string `json:"prompt" validate:"required"`

	// Environment selects environment-qualified profile entries, e.g.
	// "prod" activates key#prod overrides during overlay.
	Environment string `json:"environment"`

	// StartupScripts run in order before an interactive console starts.
	StartupScripts []string `json:"startup_scripts"`

	SSH SSH `json:"ssh"`

	Users []User `json:"users" validate:"unique=Username"`

	GlobalPasswords []string `json:"global_passwords"`
}

type SSH struct {
	Port   int    `json:"port" validate:"gte=0,lte=65535"`
	Banner string `json:"banner"`

	// BytesPerSecond throttles each remote console; 0 disables the
	// limit.
	BytesPerSecond int64 `json:"bytes_per_second" validate:"gte=0"`
}

type User struct {
	Username  string   `json:"username" validate:"required"`
	Passwords []string `json:"passwords" validate:"unique"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	return c.configFs
}

// Dir returns the configuration directory path.
func (c *Configuration) Dir() string {
	return c.configDir
}

// ProfilesFs returns a filesystem rooted at the profile store.
func (c *Configuration) ProfilesFs() afero.Fs {
	return afero.NewBasePathFs(c.fs(), ProfilesDirName)
}

// HistoryPath returns the console history file path.
func (c *Configuration) HistoryPath() string {
	return filepath.Join(c.configDir, HistoryName)
}

// ScriptPath resolves a startup script reference against the
// configuration directory unless it is already absolute.
func (c *Configuration) ScriptPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.configDir, name)
}

// PrivateKeyPem returns the bytes of the SSH host key.
func (c *Configuration) PrivateKeyPem() ([]byte, error) {
	return afero.ReadFile(c.fs(), PrivateKeyName)
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_RDONLY, 0600)
}

// GetPasswords returns allowable passwords for the given username.
func (c *Configuration) GetPasswords(username string) []string {
	var out []string
	for _, v := range c.Users {
		if v.Username == username {
			out = append(out, v.Passwords...)
		}
	}

	out = append(out, c.GlobalPasswords...)
	return out
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
