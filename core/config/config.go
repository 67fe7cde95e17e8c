package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/josephlewis42/mpwsh/core/dialect"
	"github.com/josephlewis42/mpwsh/core/env"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte

	//go:embed default/Startup
	defaultStartupData []byte
)

const (
	ConfigurationName = "config.yaml"
	StartupName       = "Startup"
)

// Color modes for diagnostics.
const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

type Configuration struct {
	configFs afero.Fs
	// dir is the absolute configuration directory, empty for the built in
	// defaults.
	dir string

	Prompt       string            `json:"prompt"`
	MPWRoot      string            `json:"mpw_root"`
	Startup      string            `json:"startup"`
	HistoryFile  string            `json:"history_file"`
	HistoryLimit int               `json:"history_limit" validate:"gte=0"`
	Color        string            `json:"color" validate:"oneof=always auto never"`
	EventLog     string            `json:"event_log"`
	Variables    map[string]string `json:"variables" validate:"dive,keys,required,endkeys"`

	Dialect Dialect `json:"dialect"`
	Serve   Serve   `json:"serve"`
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

// Dialect holds the structural characters, one character each.
type Dialect struct {
	Escape    string `json:"escape" validate:"required,len=1,nefield=Comment,nefield=Separator"`
	Comment   string `json:"comment" validate:"required,len=1,nefield=Separator"`
	Separator string `json:"separator" validate:"required,len=1"`
}

// Table returns the character table for the lexer. The configuration must
// be valid.
func (d Dialect) Table() dialect.Dialect {
	out := dialect.Default()
	out.Escape, _ = utf8.DecodeRuneInString(d.Escape)
	out.Comment, _ = utf8.DecodeRuneInString(d.Comment)
	out.Separator, _ = utf8.DecodeRuneInString(d.Separator)
	return out
}

type Serve struct {
	Port       int    `json:"port" validate:"gte=0,lte=65535"`
	HostKey    string `json:"host_key"`
	Password   string `json:"password"`
	OutputRate int64  `json:"output_rate" validate:"gte=0"`
	Recordings string `json:"recordings"`
}

func (c *Configuration) fs() afero.Fs {
	return c.configFs
}

// Dir returns the configuration directory, or "" for the built in defaults.
func (c *Configuration) Dir() string {
	return c.dir
}

// MPW returns the directory the {MPW} variable points at.
func (c *Configuration) MPW() string {
	switch {
	case c.MPWRoot == "":
		return c.dir
	case filepath.IsAbs(c.MPWRoot) || c.dir == "":
		return c.MPWRoot
	}
	return filepath.Join(c.dir, c.MPWRoot)
}

// StartupPath returns the startup script, or "" if there is none.
func (c *Configuration) StartupPath() string {
	switch {
	case c.Startup == "":
		return ""
	case filepath.IsAbs(c.Startup):
		return c.Startup
	case c.MPW() == "":
		return ""
	}
	return filepath.Join(c.MPW(), c.Startup)
}

// HistoryPath returns the interactive history file, or "" if history is not
// saved.
func (c *Configuration) HistoryPath() string {
	if c.HistoryFile == "" || c.dir == "" {
		return ""
	}
	return filepath.Join(c.dir, c.HistoryFile)
}

// OpenEventLog opens the event log in an append only state. It returns nil
// if the event log is disabled.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	if c.EventLog == "" {
		return nil, nil
	}
	return c.fs().OpenFile(c.EventLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadEventLog opens the event log for reading.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	return c.fs().OpenFile(c.EventLog, os.O_RDONLY, 0600)
}

// CreateRecording creates a session recording file named name in the
// recordings directory. It returns nil if sessions aren't recorded.
func (c *Configuration) CreateRecording(name string) (afero.File, error) {
	if c.Serve.Recordings == "" {
		return nil, nil
	}
	if err := c.fs().MkdirAll(c.Serve.Recordings, 0700); err != nil {
		return nil, err
	}
	return c.fs().OpenFile(filepath.Join(c.Serve.Recordings, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
}

// HostKeyPem returns the bytes of the SSH host key, or nil if none is
// configured.
func (c *Configuration) HostKeyPem() ([]byte, error) {
	if c.Serve.HostKey == "" {
		return nil, nil
	}
	return afero.ReadFile(c.fs(), c.Serve.HostKey)
}

// NewEnvironment creates an environment holding the configured variables.
// {MPW} is set to the MPW directory with a trailing separator.
func (c *Configuration) NewEnvironment() *env.Environment {
	e := env.New()
	e.SetStatus(0)

	names := make([]string, 0, len(c.Variables))
	for name := range c.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e.Set(name, c.Variables[name], false)
	}

	if mpw := c.MPW(); mpw != "" {
		e.Set("MPW", strings.TrimSuffix(mpw, string(filepath.Separator))+string(filepath.Separator), false)
	}
	return e
}

// Default returns the built in configuration. It refers to no files.
func Default() *Configuration {
	out := defaultConfig()
	out.configFs = afero.NewMemMapFs()
	return out
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
