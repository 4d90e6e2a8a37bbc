// Package registry maintains the persisted mapping of vault names to
// filesystem paths, default working folders, and the active selection.
//
// The registry is a single JSON document. Every command invocation performs a
// fresh load, mutates the document in memory, and persists it whole; there is
// no locking (single-user local tool).
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mkern/obsctl/internal/atomicfile"
)

// SchemaVersion is the current registry document schema version.
const SchemaVersion = 1

// VaultMarker is the subdirectory that marks a directory as a vault root.
const VaultMarker = ".obsidian"

// Sentinel errors the CLI maps to stable error codes.
var (
	ErrUnknownVault   = errors.New("unknown vault name")
	ErrNameExists     = errors.New("vault name already exists")
	ErrNoActive       = errors.New("no vault specified and no active vault set")
	ErrNotVaultRoot   = errors.New("not a vault root")
	ErrInvalidWorkdir = errors.New("invalid working dir")
)

// Record is one registered vault.
type Record struct {
	Path      string `json:"path"`
	Workdir   string `json:"workdir"`
	Source    string `json:"source"`
	UpdatedAt string `json:"updated_at"`
}

// Document is the persisted registry.
type Document struct {
	SchemaVersion int               `json:"schema_version"`
	Vaults        map[string]Record `json:"vaults"`
	Active        string            `json:"active"`
}

// Entry is a list view of one vault, annotated with the active marker.
type Entry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Workdir  string `json:"workdir"`
	Source   string `json:"source"`
	IsActive bool   `json:"is_active"`
}

// ActiveInfo describes the currently selected vault.
type ActiveInfo struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Workdir     string `json:"workdir"`
	WorkdirPath string `json:"workdir_path"`
}

func emptyDocument() *Document {
	return &Document{
		SchemaVersion: SchemaVersion,
		Vaults:        make(map[string]Record),
	}
}

func utcNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Load reads the registry document from path. A missing or corrupt file
// degrades to an empty registry; corruption is never fatal.
func Load(path string) *Document {
	data, err := os.ReadFile(path)
	if err != nil {
		return emptyDocument()
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return emptyDocument()
	}

	if doc.SchemaVersion == 0 {
		doc.SchemaVersion = SchemaVersion
	}
	if doc.Vaults == nil {
		doc.Vaults = make(map[string]Record)
	}
	return &doc
}

// Save persists the registry document atomically, creating parent
// directories as needed.
func Save(path string, doc *Document) error {
	if doc == nil {
		doc = emptyDocument()
	}
	if doc.SchemaVersion == 0 {
		doc.SchemaVersion = SchemaVersion
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry %s: %w", path, err)
	}
	return nil
}

// IsVaultRoot reports whether path is an existing directory containing the
// vault marker subdirectory.
func IsVaultRoot(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = os.Stat(filepath.Join(path, VaultMarker))
	return err == nil
}

// AddOptions controls Add.
type AddOptions struct {
	// Name is the registry key. Defaults to the path's last segment.
	Name string

	// Path is the vault path (required). Resolved to absolute form.
	Path string

	// Workdir is the default working folder, relative to the vault root.
	Workdir string

	// Source is a provenance label (default "manual").
	Source string

	// Force overwrites an existing name.
	Force bool

	// AllowMissing skips the vault-marker check.
	AllowMissing bool

	// AllowMissingWorkdir skips the workdir existence check.
	AllowMissingWorkdir bool

	// SetActive also selects the vault as active.
	SetActive bool
}

// Add registers a vault, enforcing the structural invariants before mutating
// the document. Returns the resolved name and record.
func (d *Document) Add(opts AddOptions) (string, Record, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return "", Record{}, fmt.Errorf("vault path is required")
	}

	vaultPath, err := filepath.Abs(ExpandUser(opts.Path))
	if err != nil {
		return "", Record{}, fmt.Errorf("failed to resolve vault path: %w", err)
	}

	if !opts.AllowMissing && !IsVaultRoot(vaultPath) {
		return "", Record{}, fmt.Errorf("%w (missing %s): %s", ErrNotVaultRoot, VaultMarker, vaultPath)
	}

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = filepath.Base(vaultPath)
	}

	if _, exists := d.Vaults[name]; exists && !opts.Force {
		return "", Record{}, fmt.Errorf("%w: %s", ErrNameExists, name)
	}

	workdir, err := NormalizeWorkdir(opts.Workdir)
	if err != nil {
		return "", Record{}, err
	}

	if workdir != "" {
		if err := checkWorkdir(vaultPath, workdir, opts.AllowMissingWorkdir); err != nil {
			return "", Record{}, err
		}
	}

	source := strings.TrimSpace(opts.Source)
	if source == "" {
		source = "manual"
	}

	record := Record{
		Path:      vaultPath,
		Workdir:   workdir,
		Source:    source,
		UpdatedAt: utcNow(),
	}
	if d.Vaults == nil {
		d.Vaults = make(map[string]Record)
	}
	d.Vaults[name] = record
	if opts.SetActive {
		d.Active = name
	}
	return name, record, nil
}

// Remove deletes a vault entry. Removing the active vault clears the active
// selection.
func (d *Document) Remove(name string) (Record, error) {
	record, ok := d.Vaults[name]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownVault, name)
	}
	delete(d.Vaults, name)
	if d.Active == name {
		d.Active = ""
	}
	return record, nil
}

// SetActive selects a vault by name.
func (d *Document) SetActive(name string) error {
	if _, ok := d.Vaults[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVault, name)
	}
	d.Active = name
	return nil
}

// SetWorkdir updates the default working folder for a vault. An empty name
// targets the active vault.
func (d *Document) SetWorkdir(name, rawWorkdir string, allowMissing bool) (string, error) {
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSpace(d.Active)
	}
	if name == "" {
		return "", ErrNoActive
	}

	record, ok := d.Vaults[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownVault, name)
	}
	if strings.TrimSpace(record.Path) == "" {
		return "", fmt.Errorf("vault path missing for %s", name)
	}

	workdir, err := NormalizeWorkdir(rawWorkdir)
	if err != nil {
		return "", err
	}

	vaultPath, err := filepath.Abs(ExpandUser(record.Path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve vault path: %w", err)
	}
	if workdir != "" {
		if err := checkWorkdir(vaultPath, workdir, allowMissing); err != nil {
			return "", err
		}
	}

	record.Workdir = workdir
	record.UpdatedAt = utcNow()
	d.Vaults[name] = record
	return name, nil
}

// checkWorkdir verifies a non-empty normalized workdir inside a vault:
// it must exist (unless allowMissing) and must be a directory when it exists.
func checkWorkdir(vaultPath, workdir string, allowMissing bool) error {
	abs := WorkdirAbs(vaultPath, workdir)
	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		if allowMissing {
			return nil
		}
		return fmt.Errorf("%w: does not exist: %s", ErrInvalidWorkdir, abs)
	}
	if err != nil {
		return fmt.Errorf("failed to check working dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: not a directory: %s", ErrInvalidWorkdir, abs)
	}
	return nil
}

// List returns all entries sorted by name, annotated with the active marker.
func (d *Document) List() []Entry {
	names := make([]string, 0, len(d.Vaults))
	for name := range d.Vaults {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		record := d.Vaults[name]
		entries = append(entries, Entry{
			Name:     name,
			Path:     record.Path,
			Workdir:  record.Workdir,
			Source:   record.Source,
			IsActive: name == d.Active,
		})
	}
	return entries
}

// ActiveEntry returns the active vault with its resolved working directory,
// or false when no vault is selected.
func (d *Document) ActiveEntry() (ActiveInfo, bool) {
	name := strings.TrimSpace(d.Active)
	if name == "" {
		return ActiveInfo{}, false
	}
	record, ok := d.Vaults[name]
	if !ok {
		return ActiveInfo{}, false
	}

	workdirPath := ""
	if record.Path != "" {
		workdirPath = WorkdirAbs(record.Path, record.Workdir)
	}
	return ActiveInfo{
		Name:        name,
		Path:        record.Path,
		Workdir:     record.Workdir,
		WorkdirPath: workdirPath,
	}, true
}
