// Package config reads the optional raclient YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/wolfeidau/raclient/internal/assets"
	"gopkg.in/yaml.v3"
)

const (
	DefaultServer       = "ws://localhost:7077/ws"
	DefaultTimeout      = 60
	DefaultDialAttempts = 3
)

// Config is the contents of ~/.raclient/config.yaml.
type Config struct {
	Server         string             `yaml:"server"`
	TimeoutSeconds int                `yaml:"timeout"`
	DialAttempts   uint               `yaml:"dialAttempts"`
	SessionDir     string             `yaml:"sessionDir"`
	CacheDir       string             `yaml:"cacheDir"`
	Compression    assets.Compression `yaml:"compression"`
	Format         string             `yaml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Server:         DefaultServer,
		TimeoutSeconds: DefaultTimeout,
		DialAttempts:   DefaultDialAttempts,
		Compression:    assets.CompressionGzip,
	}
}

// Timeout returns the per action timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Dir returns ~/.raclient.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".raclient"), nil
}

// DefaultPath returns ~/.raclient/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the file at path over Default. A missing file is only an
// error when required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultTimeout
	}
	if cfg.DialAttempts == 0 {
		cfg.DialAttempts = DefaultDialAttempts
	}

	return cfg, nil
}
