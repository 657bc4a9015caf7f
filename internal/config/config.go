// Package config loads the chatterm configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/inercia/chatterm/internal/appdir"

	defaultConfig "github.com/inercia/chatterm/config"
)

// ConfigEnv names a configuration file to use instead of the one in the
// data directory.
const ConfigEnv = "CHATTERM_CONFIG"

// LogConfig configures the operator log.
type LogConfig struct {
	Level      string   `yaml:"level"`
	File       string   `yaml:"file"`
	FileLevel  string   `yaml:"file_level"`
	MaxSizeMB  int      `yaml:"max_size_mb"`
	MaxBackups int      `yaml:"max_backups"`
	Compress   bool     `yaml:"compress"`
	Components []string `yaml:"components"`
}

// Config is the complete chatterm configuration.
type Config struct {
	// Endpoint is the URL messages are posted to.
	Endpoint string `yaml:"endpoint"`
	// UserID is sent with every message. Never empty after loading.
	UserID string `yaml:"user_id"`
	// ErrorMessage is the text of error turns.
	ErrorMessage string `yaml:"error_message"`
	// Timeout bounds a whole exchange. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`
	// StrictUTF8 turns invalid UTF-8 in a response into an error.
	StrictUTF8 bool `yaml:"strict_utf8"`
	// Prompt is shown by the interactive input.
	Prompt string `yaml:"prompt"`
	// Log configures the operator log.
	Log LogConfig `yaml:"log"`
}

// Source tells where a configuration was loaded from.
type Source int

const (
	// SourceEmbeddedDefaults means no file was found.
	SourceEmbeddedDefaults Source = iota
	// SourceAppDirFile is config.yaml in the data directory.
	SourceAppDirFile
	// SourceEnvFile is the file named by CHATTERM_CONFIG.
	SourceEnvFile
	// SourceCustomFile is the file given with --config.
	SourceCustomFile
)

func (s Source) String() string {
	switch s {
	case SourceEmbeddedDefaults:
		return "embedded defaults"
	case SourceAppDirFile:
		return "data directory"
	case SourceEnvFile:
		return ConfigEnv
	case SourceCustomFile:
		return "--config"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// LoadResult is a loaded configuration and where it came from.
type LoadResult struct {
	Config     *Config
	Source     Source
	SourcePath string
}

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	return Parse(nil)
}

// Load reads the configuration file at path. Keys missing from the file
// keep their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse overlays YAML data on the embedded defaults and validates the result.
// Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := decodeInto(cfg, defaultConfig.DefaultConfigYAML); err != nil {
		return nil, fmt.Errorf("failed to parse embedded defaults: %w", err)
	}
	if err := decodeInto(cfg, data); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ensureUserID()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeInto(cfg *Config, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadWithFallback resolves the configuration file in order: explicit path,
// CHATTERM_CONFIG, config.yaml in the data directory, embedded defaults.
func LoadWithFallback(explicit string) (*LoadResult, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: SourceCustomFile, SourcePath: explicit}, nil
	}

	if envPath := os.Getenv(ConfigEnv); envPath != "" {
		cfg, err := Load(envPath)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: SourceEnvFile, SourcePath: envPath}, nil
	}

	path, err := appdir.ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: SourceAppDirFile, SourcePath: path}, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to check config file %s: %w", path, err)
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, Source: SourceEmbeddedDefaults}, nil
}

// ensureUserID gives the session a random identifier when none is configured.
func (c *Config) ensureUserID() {
	if c.UserID == "" {
		c.UserID = uuid.NewString()
	}
}

// Validate checks the configuration, including values overridden by flags.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid endpoint %q: scheme must be http or https", c.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: missing host", c.Endpoint)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %v: must not be negative", c.Timeout)
	}
	if c.UserID == "" {
		return errors.New("user_id must not be empty")
	}
	for _, level := range []string{c.Log.Level, c.Log.FileLevel} {
		switch level {
		case "", "debug", "info", "warn", "warning", "error":
		default:
			return fmt.Errorf("invalid log level %q", level)
		}
	}
	return nil
}

// LogFilePath returns the log file path, resolving a relative one against
// dataDir. It returns "" when file logging is off.
func (c *Config) LogFilePath(dataDir string) string {
	if c.Log.File == "" {
		return ""
	}
	if filepath.IsAbs(c.Log.File) {
		return c.Log.File
	}
	return filepath.Join(dataDir, c.Log.File)
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
