package registry

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Location carries the explicit inputs for resolving where the registry
// document lives. Zero values fall back to conventions; nothing here is read
// from ambient global state, so the resolution stays unit-testable.
type Location struct {
	// SkillRoot is the skill directory (default: two levels up from the
	// executable, assuming the conventional <skill>/bin/<tool> nesting).
	SkillRoot string

	// SkillName overrides the name read from SKILL.md front matter.
	SkillName string

	// DataRoot overrides the data directory (default: <project-root>/.skills-data).
	DataRoot string

	// ProjectRoot overrides the guessed project root.
	ProjectRoot string
}

// skillManifest is the front-matter header of a SKILL.md file.
type skillManifest struct {
	Name string `yaml:"name"`
}

// parseSkillManifestName extracts the name from the SKILL.md front-matter
// block colocated with the skill. Any failure yields "".
func parseSkillManifestName(skillRoot string) string {
	data, err := os.ReadFile(filepath.Join(skillRoot, "SKILL.md"))
	if err != nil {
		return ""
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return ""
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return ""
	}

	var manifest skillManifest
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &manifest); err != nil {
		return ""
	}
	return strings.TrimSpace(manifest.Name)
}

// ResolveSkillName resolves the skill name with precedence:
// explicit override > SKILL.md front matter > skill root basename.
func ResolveSkillName(skillRoot, override string) string {
	if name := strings.TrimSpace(override); name != "" {
		return name
	}
	if name := parseSkillManifestName(skillRoot); name != "" {
		return name
	}
	return filepath.Base(skillRoot)
}

// GuessProjectRoot guesses the project root from the skill root, assuming
// the conventional <project>/<agent-dir>/skills/<skill> nesting. Falls back
// to the skill root's parent.
func GuessProjectRoot(skillRoot, override string) string {
	if strings.TrimSpace(override) != "" {
		if abs, err := filepath.Abs(ExpandUser(override)); err == nil {
			return abs
		}
		return override
	}

	resolved := skillRoot
	if abs, err := filepath.Abs(skillRoot); err == nil {
		resolved = abs
	}

	parent := filepath.Dir(resolved)
	if filepath.Base(parent) == "skills" {
		grandparent := filepath.Dir(parent)
		if root := filepath.Dir(grandparent); root != grandparent {
			return root
		}
	}
	return parent
}

// DefaultSkillRoot derives the skill root from the running executable,
// assuming the tool sits one directory below the skill (e.g. scripts/ or
// bin/). Falls back to the current directory.
func DefaultSkillRoot() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(filepath.Dir(exe))
}

// RegistryPath resolves the registry document path:
// <data-root>/<skill-name>/vaults.json, with the data root defaulting to
// <project-root>/.skills-data.
func (l Location) RegistryPath() string {
	skillRoot := l.SkillRoot
	if strings.TrimSpace(skillRoot) == "" {
		skillRoot = DefaultSkillRoot()
	}
	skillRoot = ExpandUser(skillRoot)
	if abs, err := filepath.Abs(skillRoot); err == nil {
		skillRoot = abs
	}

	skillName := ResolveSkillName(skillRoot, l.SkillName)

	dataRoot := strings.TrimSpace(l.DataRoot)
	if dataRoot != "" {
		dataRoot = ExpandUser(dataRoot)
		if abs, err := filepath.Abs(dataRoot); err == nil {
			dataRoot = abs
		}
	} else {
		dataRoot = filepath.Join(GuessProjectRoot(skillRoot, l.ProjectRoot), ".skills-data")
	}

	return filepath.Join(dataRoot, skillName, "vaults.json")
}

// LogPath returns the execution log path next to the registry document.
func (l Location) LogPath() string {
	return filepath.Join(filepath.Dir(l.RegistryPath()), "exec.log")
}
