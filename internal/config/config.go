// Package config handles global obsctl configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global obsctl configuration.
//
// Everything here is a fallback tier: command-line flags and environment
// overrides always win over config values.
type Config struct {
	// Binary is the Obsidian CLI binary to invoke when neither --binary
	// nor $OBSIDIAN_CLI_BIN is set.
	Binary string `toml:"binary"`

	// DataRoot overrides where registry data is stored
	// (default: <project-root>/.skills-data).
	DataRoot string `toml:"data_root"`

	// SkillName overrides the skill name used for the registry directory.
	SkillName string `toml:"skill_name"`

	// AuditLog controls the append-only execution log (default: true).
	AuditLog *bool `toml:"audit_log"`

	// UI controls optional CLI theming preferences.
	UI UIConfig `toml:"ui"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`
}

// IsAuditLogEnabled returns true if execution logging is enabled (default: true).
func (c *Config) IsAuditLogEnabled() bool {
	if c == nil || c.AuditLog == nil {
		return true
	}
	return *c.AuditLog
}

// Load loads the configuration from the default location.
// Returns a default config if the file doesn't exist.
func Load() (*Config, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &Config{}, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &config, nil
}

// ResolveConfigPath resolves the effective config path from an optional override.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return DefaultPath()
}

// DefaultPath returns the default config file path.
// Checks ~/.config/obsctl/config.toml first (XDG style),
// then falls back to the OS-specific location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "obsctl", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "obsctl", "config.toml")
	}

	// Last resort fallback
	return filepath.Join(".", "config.toml")
}
