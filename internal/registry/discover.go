package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Discovered is a vault entry extracted from an external configuration file.
type Discovered struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Source string `json:"source"`
}

// candidateConfigDirs returns the platform-conventional directories where the
// host application keeps its vault list.
func candidateConfigDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	switch runtime.GOOS {
	case "darwin":
		if home == "" {
			return nil
		}
		return []string{filepath.Join(home, "Library", "Application Support", "Obsidian")}
	case "windows":
		var dirs []string
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			dirs = append(dirs, filepath.Join(appdata, "Obsidian"))
		}
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			dirs = append(dirs, filepath.Join(local, "Obsidian"))
		}
		return dirs
	default:
		if home == "" {
			return nil
		}
		return []string{
			filepath.Join(home, ".config", "obsidian"),
			filepath.Join(home, ".config", "Obsidian"),
		}
	}
}

// CandidateConfigFiles returns the prioritized list of files to scan, or only
// the explicit override when one is given.
func CandidateConfigFiles(explicit string) []string {
	if strings.TrimSpace(explicit) != "" {
		return []string{ExpandUser(explicit)}
	}

	var files []string
	for _, dir := range candidateConfigDirs() {
		files = append(files, filepath.Join(dir, "vaults.json"))
		files = append(files, filepath.Join(dir, "obsidian.json"))
	}
	return files
}

// rawEntry is one candidate object before name fallback resolution.
type rawEntry struct {
	name string // from a name/label field, may be empty
	key  string // mapping key, for mapping-shaped containers
	path string
}

func (e rawEntry) resolveName() string {
	if e.name != "" {
		return e.name
	}
	if e.key != "" {
		return e.key
	}
	return filepath.Base(e.path)
}

// entryFromObject extracts a candidate from one object. Objects without a
// string path yield nothing.
func entryFromObject(key string, value interface{}) (rawEntry, bool) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return rawEntry{}, false
	}
	path, ok := obj["path"].(string)
	if !ok || path == "" {
		return rawEntry{}, false
	}

	name, _ := obj["name"].(string)
	if name == "" {
		name, _ = obj["label"].(string)
	}
	return rawEntry{name: name, key: key, path: path}, true
}

// entriesFromMapping extracts candidates from a name->object mapping,
// iterating keys in sorted order so output is deterministic.
func entriesFromMapping(mapping map[string]interface{}) []rawEntry {
	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var entries []rawEntry
	for _, key := range keys {
		if entry, ok := entryFromObject(key, mapping[key]); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func entriesFromList(list []interface{}) []rawEntry {
	var entries []rawEntry
	for _, item := range list {
		if entry, ok := entryFromObject("", item); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// extractEntries pulls vault entries out of a decoded payload. The accepted
// shapes are tried as an ordered set of predicates:
//
//  1. a top-level mapping with a "vaults" key (mapping-of-objects or
//     list-of-objects)
//  2. a top-level mapping that directly is the name->object mapping
//     (all values are objects carrying a "path")
//  3. a top-level list of objects
//
// Anything else yields no entries.
func extractEntries(payload interface{}) []rawEntry {
	switch data := payload.(type) {
	case map[string]interface{}:
		if nested, ok := data["vaults"]; ok {
			switch vaults := nested.(type) {
			case map[string]interface{}:
				return entriesFromMapping(vaults)
			case []interface{}:
				return entriesFromList(vaults)
			}
			return nil
		}
		if isVaultMapping(data) {
			return entriesFromMapping(data)
		}
		return nil
	case []interface{}:
		return entriesFromList(data)
	}
	return nil
}

// isVaultMapping detects the "document is the mapping" shape heuristically:
// it is non-empty and every value is an object carrying a "path" key.
func isVaultMapping(data map[string]interface{}) bool {
	if len(data) == 0 {
		return false
	}
	for _, value := range data {
		obj, ok := value.(map[string]interface{})
		if !ok {
			return false
		}
		if _, ok := obj["path"]; !ok {
			return false
		}
	}
	return true
}

// collectEntries appends the payload's entries to results, de-duplicating by
// resolved path across calls via seen.
func collectEntries(payload interface{}, source string, seen map[string]struct{}, results []Discovered) []Discovered {
	for _, entry := range extractEntries(payload) {
		resolved := ExpandUser(entry.path)
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		results = append(results, Discovered{
			Name:   entry.resolveName(),
			Path:   resolved,
			Source: source,
		})
	}
	return results
}

// Discover scans the candidate configuration files (or a single explicit
// override) and returns the extracted vault entries, de-duplicated by
// resolved path with earlier files taking priority. Missing or unparseable
// files are skipped silently; discovery never fails.
func Discover(explicitConfig string) []Discovered {
	var results []Discovered
	seen := make(map[string]struct{})

	for _, file := range CandidateConfigFiles(explicitConfig) {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}

		var payload interface{}
		if err := json.Unmarshal(data, &payload); err != nil {
			continue
		}

		results = collectEntries(payload, file, seen, results)
	}
	return results
}

// EntriesFromPayload extracts vault entries from a parsed vaults listing,
// as produced by the external tool's own vault enumeration. The accepted
// shapes are the same as for configuration files.
func EntriesFromPayload(payload interface{}, source string) []Discovered {
	return collectEntries(payload, source, make(map[string]struct{}), nil)
}

// ParseVaultsText parses the human-readable table the external tool prints
// when it emits no JSON. Header lines are skipped; each remaining line
// splits on the first tab, or on whitespace with the last field taken as
// the path. Fields that do not look like a path are dropped, and duplicate
// name/path pairs collapse to the first occurrence.
func ParseVaultsText(text, source string) []Discovered {
	var results []Discovered
	seen := make(map[[2]string]struct{})

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "name") && strings.Contains(lower, "path") {
			continue
		}

		var name, path string
		if i := strings.Index(line, "\t"); i >= 0 {
			name = strings.TrimSpace(line[:i])
			path = strings.TrimSpace(line[i+1:])
		} else {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			name = fields[0]
			path = fields[len(fields)-1]
		}

		if name == "" || path == "" {
			continue
		}
		if !strings.Contains(path, "/") && !strings.HasPrefix(path, ".") && !strings.HasPrefix(path, "~") {
			continue
		}

		key := [2]string{name, path}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, Discovered{Name: name, Path: path, Source: source})
	}
	return results
}

// MergeResult summarizes a merge of discovered entries into the registry.
type MergeResult struct {
	Found   int      `json:"found"`
	Merged  int      `json:"merged"`
	Skipped []string `json:"skipped,omitempty"`
}

// Merge writes discovered entries into the document. An existing name is
// skipped unless force is set; a skip is only reported when the stored path
// differs from the discovered one (a same-path re-discovery is a silent
// no-op). Overwrites preserve a previously set workdir, so discovery never
// clears a manually configured working folder. The caller persists once
// after the merge.
func (d *Document) Merge(found []Discovered, force bool) MergeResult {
	result := MergeResult{Found: len(found)}

	if d.Vaults == nil {
		d.Vaults = make(map[string]Record)
	}

	for _, entry := range found {
		existing, exists := d.Vaults[entry.Name]
		if exists && !force {
			if existing.Path != entry.Path {
				result.Skipped = append(result.Skipped,
					fmt.Sprintf("skip %s; already registered at %s", entry.Name, existing.Path))
			}
			continue
		}

		workdir := ""
		if exists {
			workdir = existing.Workdir
		}

		source := entry.Source
		if source == "" {
			source = "obsidian"
		}

		d.Vaults[entry.Name] = Record{
			Path:      entry.Path,
			Workdir:   workdir,
			Source:    source,
			UpdatedAt: utcNow(),
		}
		result.Merged++
	}
	return result
}
