// Package config loads the level table and resolution timings from YAML.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go-tiles/internal/level"
	"go-tiles/internal/state"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/levels.yaml
var defaultLevelsYAML []byte

// Config is the playable configuration: levels, symbol pool and delays.
type Config struct {
	Levels  level.Table    `yaml:"levels"`
	Symbols []level.Symbol `yaml:"symbols"` // defaults to level.DefaultPool
	Timings state.Timings  `yaml:"timings"`

	Source string `yaml:"-"`
}

// Pool returns the symbol pool levels draw their pairs from.
func (c *Config) Pool() []level.Symbol {
	if len(c.Symbols) == 0 {
		return level.DefaultPool
	}
	return c.Symbols
}

// Validate checks the table against the pool and the timing order.
func (c *Config) Validate() error {
	if err := c.Levels.Validate(c.Pool()); err != nil {
		return err
	}
	seen := make(map[level.Symbol]bool, len(c.Symbols))
	for _, sym := range c.Symbols {
		if sym == level.Hazard {
			return &level.ConfigError{Reason: "symbol pool must not contain the hazard symbol"}
		}
		if seen[sym] {
			return &level.ConfigError{Reason: fmt.Sprintf("symbol %q appears more than once in the pool", sym)}
		}
		seen[sym] = true
	}
	return c.Timings.Validate()
}

// Load reads the level configuration.
// Search order: customPath -> ~/.config/go-tiles/levels.yaml -> ./configs/levels.yaml -> embedded default.
// The first file found is used; an invalid file is an error, never a silent
// fallback to the defaults. Unknown keys are rejected.
func Load(customPath string) (*Config, error) {
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		return parse(data, customPath)
	}

	candidates := []string{"configs/levels.yaml"}
	if userCfgPath := userConfigPath("levels.yaml"); userCfgPath != "" {
		candidates = append([]string{userCfgPath}, candidates...)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return parse(data, path)
	}

	return Default()
}

// Default returns the embedded configuration.
func Default() (*Config, error) {
	return parse(defaultLevelsYAML, "embedded defaults")
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	return parse(data, "")
}

func parse(data []byte, source string) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", source, err)
	}
	cfg.Source = source
	cfg.Timings = cfg.Timings.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", source, err)
	}
	return &cfg, nil
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "go-tiles", filename)
}
