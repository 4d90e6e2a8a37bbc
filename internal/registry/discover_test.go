package registry

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "obsidian.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiscoverShapes(t *testing.T) {
	t.Run("vaults key with mapping", func(t *testing.T) {
		file := writeConfigFile(t, `{"vaults":{"Notes":{"path":"/home/u/notes"}}}`)

		found := Discover(file)
		if len(found) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(found))
		}
		if found[0].Name != "Notes" {
			t.Errorf("expected name 'Notes', got %q", found[0].Name)
		}
		if found[0].Path != "/home/u/notes" {
			t.Errorf("expected path '/home/u/notes', got %q", found[0].Path)
		}
		if found[0].Source != file {
			t.Errorf("expected source %q, got %q", file, found[0].Source)
		}
	})

	t.Run("vaults key with list", func(t *testing.T) {
		file := writeConfigFile(t, `{"vaults":[{"name":"Work","path":"/v/work"},{"label":"Home","path":"/v/home"}]}`)

		found := Discover(file)
		if len(found) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(found))
		}
		if found[0].Name != "Work" || found[1].Name != "Home" {
			t.Errorf("unexpected names: %v", found)
		}
	})

	t.Run("direct name-to-object mapping", func(t *testing.T) {
		file := writeConfigFile(t, `{"personal":{"path":"/v/personal","ts":123},"work":{"path":"/v/work"}}`)

		found := Discover(file)
		if len(found) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(found))
		}
		// Mapping keys are iterated in sorted order.
		if found[0].Name != "personal" || found[1].Name != "work" {
			t.Errorf("unexpected names: %v", found)
		}
	})

	t.Run("top-level list", func(t *testing.T) {
		file := writeConfigFile(t, `[{"name":"A","path":"/v/a"},{"path":"/v/basename"}]`)

		found := Discover(file)
		if len(found) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(found))
		}
		if found[1].Name != "basename" {
			t.Errorf("expected basename fallback, got %q", found[1].Name)
		}
	})

	t.Run("name field beats mapping key", func(t *testing.T) {
		file := writeConfigFile(t, `{"vaults":{"key":{"name":"Label Wins","path":"/v/x"}}}`)

		found := Discover(file)
		if len(found) != 1 || found[0].Name != "Label Wins" {
			t.Errorf("expected name field to win, got %v", found)
		}
	})

	t.Run("objects without path are skipped", func(t *testing.T) {
		file := writeConfigFile(t, `{"vaults":[{"name":"NoPath"},{"path":"/v/ok"}]}`)

		found := Discover(file)
		if len(found) != 1 || found[0].Path != "/v/ok" {
			t.Errorf("expected only the entry with a path, got %v", found)
		}
	})

	t.Run("unrecognized shapes yield nothing", func(t *testing.T) {
		for _, content := range []string{`"just a string"`, `42`, `{"settings":{"theme":"dark"}}`, `[1,2,3]`} {
			file := writeConfigFile(t, content)
			if found := Discover(file); len(found) != 0 {
				t.Errorf("expected no entries for %s, got %v", content, found)
			}
		}
	})

	t.Run("malformed file is skipped silently", func(t *testing.T) {
		file := writeConfigFile(t, `{broken`)
		if found := Discover(file); len(found) != 0 {
			t.Errorf("expected no entries, got %v", found)
		}
	})

	t.Run("missing file yields nothing", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope.json")
		if found := Discover(missing); len(found) != 0 {
			t.Errorf("expected no entries, got %v", found)
		}
	})
}

func TestDiscoverDeduplicatesByPath(t *testing.T) {
	file := writeConfigFile(t, `{"vaults":[{"name":"First","path":"/v/same"},{"name":"Second","path":"/v/same"}]}`)

	found := Discover(file)
	if len(found) != 1 {
		t.Fatalf("expected 1 entry after de-dup, got %d", len(found))
	}
	if found[0].Name != "First" {
		t.Errorf("expected first occurrence to win, got %q", found[0].Name)
	}
}

func TestEntriesFromPayload(t *testing.T) {
	t.Run("vaults list payload", func(t *testing.T) {
		payload := map[string]interface{}{
			"vaults": []interface{}{
				map[string]interface{}{"name": "Work", "path": "/v/work"},
				map[string]interface{}{"label": "Home", "path": "/v/home"},
			},
		}
		found := EntriesFromPayload(payload, "/usr/bin/obsidian")
		if len(found) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(found))
		}
		if found[0].Name != "Work" || found[1].Name != "Home" {
			t.Errorf("unexpected names: %v", found)
		}
		if found[0].Source != "/usr/bin/obsidian" {
			t.Errorf("expected binary source, got %q", found[0].Source)
		}
	})

	t.Run("top-level list payload", func(t *testing.T) {
		payload := []interface{}{
			map[string]interface{}{"name": "A", "path": "/v/a"},
			map[string]interface{}{"name": "Dup", "path": "/v/a"},
		}
		found := EntriesFromPayload(payload, "bin")
		if len(found) != 1 || found[0].Name != "A" {
			t.Errorf("expected de-dup by path with first wins, got %v", found)
		}
	})

	t.Run("unrecognized payload yields nothing", func(t *testing.T) {
		if found := EntriesFromPayload("vaults: 3", "bin"); len(found) != 0 {
			t.Errorf("expected no entries, got %v", found)
		}
	})
}

func TestParseVaultsText(t *testing.T) {
	t.Run("header and tab-separated rows", func(t *testing.T) {
		text := "Name\tPath\nwork\t/v/work\npersonal\t/v/personal\n"
		found := ParseVaultsText(text, "bin")
		if len(found) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(found))
		}
		if found[0].Name != "work" || found[0].Path != "/v/work" {
			t.Errorf("unexpected first entry: %+v", found[0])
		}
	})

	t.Run("space-separated takes last field as path", func(t *testing.T) {
		found := ParseVaultsText("work  (active)  /v/work\n", "bin")
		if len(found) != 1 || found[0].Path != "/v/work" {
			t.Errorf("expected last field as path, got %v", found)
		}
	})

	t.Run("tilde and dot paths accepted", func(t *testing.T) {
		found := ParseVaultsText("home ~/vaults/home\nlocal ./notes\n", "bin")
		if len(found) != 2 {
			t.Errorf("expected 2 entries, got %v", found)
		}
	})

	t.Run("non-path fields dropped", func(t *testing.T) {
		found := ParseVaultsText("work active\nsingleword\n", "bin")
		if len(found) != 0 {
			t.Errorf("expected no entries, got %v", found)
		}
	})

	t.Run("duplicate rows collapse", func(t *testing.T) {
		found := ParseVaultsText("work /v/work\nwork /v/work\n", "bin")
		if len(found) != 1 {
			t.Errorf("expected 1 entry after de-dup, got %v", found)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		if found := ParseVaultsText("", "bin"); len(found) != 0 {
			t.Errorf("expected no entries, got %v", found)
		}
	})
}

func TestMerge(t *testing.T) {
	found := []Discovered{
		{Name: "Notes", Path: "/v/notes", Source: "/cfg/obsidian.json"},
		{Name: "Work", Path: "/v/work", Source: "/cfg/obsidian.json"},
	}

	t.Run("merges new entries", func(t *testing.T) {
		doc := emptyDocument()
		result := doc.Merge(found, false)

		if result.Found != 2 || result.Merged != 2 {
			t.Errorf("unexpected result: %+v", result)
		}
		record := doc.Vaults["Notes"]
		if record.Path != "/v/notes" || record.Source != "/cfg/obsidian.json" {
			t.Errorf("unexpected record: %+v", record)
		}
		if record.UpdatedAt == "" {
			t.Error("expected fresh timestamp")
		}
	})

	t.Run("skips existing without force", func(t *testing.T) {
		doc := emptyDocument()
		doc.Vaults["Notes"] = Record{Path: "/manual/notes", Source: "manual"}

		result := doc.Merge(found, false)
		if result.Merged != 1 {
			t.Errorf("expected 1 merged, got %d", result.Merged)
		}
		if len(result.Skipped) != 1 {
			t.Errorf("expected a skip diagnostic for the differing path, got %v", result.Skipped)
		}
		if doc.Vaults["Notes"].Path != "/manual/notes" {
			t.Errorf("manual entry must not be clobbered, got %+v", doc.Vaults["Notes"])
		}
	})

	t.Run("same-path skip is silent", func(t *testing.T) {
		doc := emptyDocument()
		doc.Vaults["Notes"] = Record{Path: "/v/notes", Source: "manual"}

		result := doc.Merge(found, false)
		if len(result.Skipped) != 0 {
			t.Errorf("expected no diagnostics for same-path re-discovery, got %v", result.Skipped)
		}
	})

	t.Run("force overwrites but preserves workdir", func(t *testing.T) {
		doc := emptyDocument()
		doc.Vaults["Notes"] = Record{Path: "/manual/notes", Workdir: "daily", Source: "manual"}

		result := doc.Merge(found, true)
		if result.Merged != 2 {
			t.Errorf("expected 2 merged, got %d", result.Merged)
		}
		record := doc.Vaults["Notes"]
		if record.Path != "/v/notes" {
			t.Errorf("expected discovered path, got %q", record.Path)
		}
		if record.Workdir != "daily" {
			t.Errorf("workdir must be preserved, got %q", record.Workdir)
		}
	})

	t.Run("idempotent on unchanged input", func(t *testing.T) {
		doc := emptyDocument()
		doc.Merge(found, false)

		namesAndPaths := func() map[string]string {
			out := make(map[string]string)
			for name, record := range doc.Vaults {
				out[name] = record.Path
			}
			return out
		}
		first := namesAndPaths()

		doc.Merge(found, false)
		second := namesAndPaths()

		if !reflect.DeepEqual(first, second) {
			t.Errorf("expected stable registry, got %v then %v", first, second)
		}
	})
}
