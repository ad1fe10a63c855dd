// Package config resolves passvault settings from defaults, an optional
// YAML file and PASSVAULT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/storage"
	"github.com/illarion/passvault/internal/sync"
)

// Environment variables
const (
	EnvConfig   = "PASSVAULT_CONFIG"
	EnvFile     = "PASSVAULT_FILE"
	EnvBackend  = "PASSVAULT_BACKEND"
	EnvPort     = "PASSVAULT_PORT"
	EnvDebug    = "PASSVAULT_DEBUG"
	EnvPassword = "PASSVAULT_PASSWORD"
)

const (
	DefaultVaultFile  = ".passvault"
	DefaultConfigFile = "config.yaml"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the resolved settings
type Config struct {
	VaultPath  string `yaml:"vault"`
	Backend    string `yaml:"backend"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	SaltLength int    `yaml:"salt_length"`
	Debug      bool   `yaml:"debug"`
}

// Default returns the built-in settings
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		VaultPath:  filepath.Join(home, DefaultVaultFile),
		Backend:    storage.BackendFile,
		Port:       sync.DefaultPort,
		SaltLength: crypto.DefaultSaltLength,
	}
}

// Path returns the config file location: $PASSVAULT_CONFIG, or
// config.yaml under the user config directory.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "passvault", DefaultConfigFile)
}

// Load resolves the configuration. A missing config file is not an error
// unless it was named explicitly through PASSVAULT_CONFIG.
func Load() (*Config, error) {
	cfg := Default()

	path := Path()
	if path != "" {
		err := cfg.loadFile(path)
		if err != nil && !(errors.Is(err, os.ErrNotExist) && os.Getenv(EnvConfig) == "") {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges settings from a YAML file into the defaults
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.VaultPath = expandHome(c.VaultPath)
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvFile); v != "" {
		c.VaultPath = expandHome(v)
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvPort, v)
		}
		c.Port = port
	}
	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, EnvDebug, v)
		}
		c.Debug = debug
	}
	return nil
}

// Validate checks the settings for values the rest of the program cannot use
func (c *Config) Validate() error {
	switch c.Backend {
	case storage.BackendFile, storage.BackendBolt:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	if c.VaultPath == "" {
		return fmt.Errorf("%w: vault path is empty", ErrInvalidConfig)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.SaltLength < 0 {
		return fmt.Errorf("%w: negative salt length %d", ErrInvalidConfig, c.SaltLength)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
