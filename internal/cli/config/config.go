package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// CLIConfig is the configuration for pulsekv-cli.
type CLIConfig struct {
	Server  string        `yaml:"server,omitempty"`
	Admin   string        `yaml:"admin,omitempty"`
	Output  string        `yaml:"output,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Connections maps a short name to a RESP address.
	Connections map[string]string `yaml:"connections,omitempty"`
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".pulsekv", "cli.yaml")
}

// Load reads the configuration at path. A missing file yields an empty
// configuration.
func Load(path string) (*CLIConfig, error) {
	cfg := &CLIConfig{Connections: make(map[string]string)}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cli config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse cli config %s: %w", path, err)
	}
	if cfg.Connections == nil {
		cfg.Connections = make(map[string]string)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		return errors.New("cli config path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode cli config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Resolve returns the address saved under name, or name itself when no
// connection has that name.
func (c *CLIConfig) Resolve(name string) string {
	if addr, ok := c.Connections[name]; ok {
		return addr
	}
	return name
}

// ConnectionNames returns the saved connection names in order.
func (c *CLIConfig) ConnectionNames() []string {
	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
