// Package config loads the genbridge runtime configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/martinemde/genbridge/serialize"
)

// Config holds runtime parameters for the CLI.
// Zero values mean "unspecified" and are replaced by defaults in main.
type Config struct {
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`
	StorePath string `json:"store_path" yaml:"store_path" toml:"store_path"`
	// Components maps a name to an envelope-shaped object.
	Components map[string]map[string]any `json:"components" yaml:"components" toml:"components"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	for _, name := range c.ComponentNames() {
		if _, err := c.Node(name); err != nil {
			return fmt.Errorf("component %s: %w", name, err)
		}
	}
	return nil
}

// ComponentNames returns the configured component names, sorted.
func (c Config) ComponentNames() []string {
	names := make([]string, 0, len(c.Components))
	for name := range c.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Node returns the named component as an envelope node.
func (c Config) Node(name string) (*serialize.Node, error) {
	m, ok := c.Components[name]
	if !ok {
		return nil, fmt.Errorf("unknown component %q", name)
	}
	return serialize.NodeFromMap(m)
}
