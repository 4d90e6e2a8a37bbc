// Package audit provides an append-only execution log for invoked commands.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry records a single external command invocation, including gate
// refusals that never reached a subprocess.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Command   []string  `json:"command"`
	Binary    string    `json:"binary,omitempty"`
	Vault     string    `json:"vault,omitempty"`
	ExitCode  int       `json:"exit_code"`
	OK        bool      `json:"ok"`
	Blocked   string    `json:"blocked,omitempty"`
}

// Logger appends entries to the execution log.
type Logger struct {
	path    string
	enabled bool
	mu      sync.Mutex
}

// New creates a logger writing to path. If enabled is false, the logger is a
// no-op.
func New(path string, enabled bool) *Logger {
	if !enabled {
		return &Logger{enabled: false}
	}
	return &Logger{path: path, enabled: true}
}

// Log appends an entry to the log. Logging failures are returned so callers
// can warn, but they are never fatal to the command itself.
func (l *Logger) Log(entry Entry) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}
