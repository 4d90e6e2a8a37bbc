// Package testutil provides integration-test helpers that drive the built
// obsctl binary against a temporary skill layout.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TestSkill is a temporary skill directory with its own data root and a
// registered-vault candidate directory.
type TestSkill struct {
	t *testing.T

	// SkillRoot contains a SKILL.md naming the skill.
	SkillRoot string

	// DataRoot is where the registry document and audit log land.
	DataRoot string

	// VaultPath is a directory carrying the .obsidian marker.
	VaultPath string
}

// NewTestSkill creates a skill root, data root, and one vault directory.
func NewTestSkill(t *testing.T) *TestSkill {
	t.Helper()

	base := t.TempDir()
	skillRoot := filepath.Join(base, "skill")
	if err := os.Mkdir(skillRoot, 0o755); err != nil {
		t.Fatalf("failed to create skill root: %v", err)
	}

	manifest := "---\nname: test-skill\ndescription: Integration test skill\n---\n\n# Test skill\n"
	if err := os.WriteFile(filepath.Join(skillRoot, "SKILL.md"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("failed to write SKILL.md: %v", err)
	}

	vaultPath := filepath.Join(base, "vault")
	if err := os.MkdirAll(filepath.Join(vaultPath, ".obsidian"), 0o755); err != nil {
		t.Fatalf("failed to create vault: %v", err)
	}

	return &TestSkill{
		t:         t,
		SkillRoot: skillRoot,
		DataRoot:  filepath.Join(base, "data"),
		VaultPath: vaultPath,
	}
}

// RegistryPath returns where the registry document is expected.
func (s *TestSkill) RegistryPath() string {
	return filepath.Join(s.DataRoot, "test-skill", "vaults.json")
}

// LogPath returns where the audit log is expected.
func (s *TestSkill) LogPath() string {
	return filepath.Join(s.DataRoot, "test-skill", "exec.log")
}

// NewVaultDir creates an additional directory with the vault marker.
func (s *TestSkill) NewVaultDir(name string) string {
	s.t.Helper()
	dir := filepath.Join(s.t.TempDir(), name)
	if err := os.MkdirAll(filepath.Join(dir, ".obsidian"), 0o755); err != nil {
		s.t.Fatalf("failed to create vault dir: %v", err)
	}
	return dir
}

// AssertFileExists fails the test if the file does not exist.
func (s *TestSkill) AssertFileExists(path string) {
	s.t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.t.Errorf("expected file to exist: %s", path)
	}
}
