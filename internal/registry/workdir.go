package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NormalizeWorkdir canonicalizes a working-folder value relative to the vault
// root. The empty string means "vault root".
//
// Rules:
//   - "", ".", "./" normalize to ""
//   - backslashes are treated as separators
//   - empty and "." segments are dropped, redundant separators collapsed
//   - any ".." segment is rejected, never silently sanitized
func NormalizeWorkdir(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" || value == "." || value == "./" {
		return "", nil
	}

	value = strings.ReplaceAll(value, "\\", "/")
	value = strings.Trim(value, "/")

	parts := make([]string, 0, 4)
	for _, part := range strings.Split(value, "/") {
		if part == "" || part == "." {
			continue
		}
		if part == ".." {
			return "", fmt.Errorf("%w: must not contain '..'", ErrInvalidWorkdir)
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, "/"), nil
}

// WorkdirAbs resolves a normalized workdir against the vault root.
// An empty workdir resolves to the root itself.
func WorkdirAbs(vaultPath, workdir string) string {
	if workdir == "" {
		return vaultPath
	}
	return filepath.Join(vaultPath, filepath.FromSlash(workdir))
}

// ExpandUser replaces a leading ~ with the current user's home directory.
// Values that cannot be expanded are returned unchanged.
func ExpandUser(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
