package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFrom(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		path := writeConfig(t, `
binary = "/opt/obsidian/bin/obsidian"
data_root = "/srv/skills-data"
skill_name = "obsidian-notes"
audit_log = false

[ui]
accent = "#2DD4BF"
`)
		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Binary != "/opt/obsidian/bin/obsidian" {
			t.Errorf("unexpected binary: %q", cfg.Binary)
		}
		if cfg.DataRoot != "/srv/skills-data" {
			t.Errorf("unexpected data root: %q", cfg.DataRoot)
		}
		if cfg.SkillName != "obsidian-notes" {
			t.Errorf("unexpected skill name: %q", cfg.SkillName)
		}
		if cfg.IsAuditLogEnabled() {
			t.Error("expected audit log disabled")
		}
		if cfg.UI.Accent != "#2DD4BF" {
			t.Errorf("unexpected accent: %q", cfg.UI.Accent)
		}
	})

	t.Run("empty config uses defaults", func(t *testing.T) {
		path := writeConfig(t, "")
		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Binary != "" {
			t.Errorf("expected empty binary, got %q", cfg.Binary)
		}
		if !cfg.IsAuditLogEnabled() {
			t.Error("audit log should default to enabled")
		}
	})

	t.Run("invalid toml is an error", func(t *testing.T) {
		path := writeConfig(t, "binary = [broken")
		if _, err := LoadFrom(path); err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestIsAuditLogEnabled(t *testing.T) {
	var nilConfig *Config
	if !nilConfig.IsAuditLogEnabled() {
		t.Error("nil config should default to enabled")
	}

	enabled := true
	cfg := &Config{AuditLog: &enabled}
	if !cfg.IsAuditLogEnabled() {
		t.Error("explicit true should be enabled")
	}
}

func TestResolveConfigPath(t *testing.T) {
	if got := ResolveConfigPath("/explicit/config.toml"); got != "/explicit/config.toml" {
		t.Errorf("explicit path should win, got %q", got)
	}
	if got := ResolveConfigPath(""); got == "" {
		t.Error("expected a default path")
	}
}
