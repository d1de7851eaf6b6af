// Package config loads freezer settings from defaults, a YAML file,
// FREEZER_* environment variables and command-line flags, in increasing
// order of priority.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the environment variable prefix.
const DefaultEnvPrefix = "FREEZER_"

// Config holds all freezer settings.
type Config struct {
	// CacheDir is the root cache directory. Snapshots are stored in its
	// freezer subdirectory.
	CacheDir string `koanf:"cachedir"`
	// Backend selects the package manager: brew or apt.
	Backend string `koanf:"backend"`
	// DB is the history database path.
	DB       string   `koanf:"db"`
	LogLevel string   `koanf:"log_level"`
	LogJSON  bool     `koanf:"log_json"`
	Ignore   []string `koanf:"ignore"`

	Apt  AptConfig  `koanf:"apt"`
	Brew BrewConfig `koanf:"brew"`
}

// AptConfig holds apt backend settings.
type AptConfig struct {
	SourcesDir string `koanf:"sources_dir"`
	StateDir   string `koanf:"state_dir"`
}

// BrewConfig holds brew backend settings.
type BrewConfig struct {
	Prefix string `koanf:"prefix"`
}

// Dir returns the freezer config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/freezer if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "freezer"), nil
}

// DataDir returns ~/.freezer, which holds the default cache directory,
// history database and watcher pid file.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".freezer"), nil
}

// DefaultFile returns the config file looked up when none is given.
func DefaultFile() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Defaults returns the built-in settings for the given data directory.
func Defaults(dataDir string) map[string]any {
	return map[string]any{
		"cachedir":        dataDir,
		"backend":         defaultBackend(),
		"db":              filepath.Join(dataDir, "freezer.db"),
		"log_level":       "info",
		"log_json":        false,
		"ignore":          []string{},
		"apt.sources_dir": "/etc/apt/sources.list.d",
		"apt.state_dir":   "/var/lib/dpkg",
	}
}

func defaultBackend() string {
	if _, err := os.Stat("/usr/bin/dpkg-query"); err == nil {
		return "apt"
	}
	return "brew"
}

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	optional  bool
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path. When optional is true a
// missing file is skipped.
func WithConfigFile(path string, optional bool) Option {
	return func(l *Loader) {
		l.filePath = path
		l.optional = optional
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load applies defaults, the config file, environment variables and flags
// (later sources override earlier) and unmarshals the result.
func (l *Loader) Load(defaults, flags map[string]any) (*Config, error) {
	if err := l.LoadMap(defaults); err != nil {
		return nil, err
	}

	if l.filePath != "" {
		_, statErr := os.Stat(l.filePath)
		if !(l.optional && os.IsNotExist(statErr)) {
			if err := l.LoadFile(l.filePath); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := l.LoadEnv(); err != nil {
		return nil, err
	}

	if err := l.LoadMap(flags); err != nil {
		return nil, err
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads configuration from environment variables. A double
// underscore separates nested keys, so FREEZER_LOG_LEVEL sets log_level and
// FREEZER_APT__SOURCES_DIR sets apt.sources_dir.
func (l *Loader) LoadEnv() error {
	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}

	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}
	return nil
}

// LoadMap loads configuration from a map of dotted keys. Empty maps are a
// no-op.
func (l *Loader) LoadMap(data map[string]any) error {
	if len(data) == 0 {
		return nil
	}
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	return nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return fmt.Errorf("cachedir must be set")
	}
	switch c.Backend {
	case "brew", "apt":
	default:
		return fmt.Errorf("unknown backend %q (want brew or apt)", c.Backend)
	}
	return nil
}
