package gate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultBinary is the external Obsidian CLI binary name.
const DefaultBinary = "obsidian"

// BinaryEnv is the environment variable that overrides the binary when no
// explicit override is given.
const BinaryEnv = "OBSIDIAN_CLI_BIN"

// Options controls a single gated invocation.
type Options struct {
	// Vault is the target vault name. When set and the command needs a
	// vault, a vault=<name> token is prepended unless one is present.
	Vault string

	// Binary is an explicit binary override. Takes priority over
	// $OBSIDIAN_CLI_BIN and FallbackBinary.
	Binary string

	// FallbackBinary is consulted after the explicit override and the
	// environment (typically the config.toml value).
	FallbackBinary string

	// ForceDelete suppresses the destructive-operation gate.
	ForceDelete bool

	// ParseOutput enables JSON detection on stdout.
	ParseOutput bool
}

// Result is the envelope for a single invocation. Exactly one Result is
// produced per call to Run, whether or not a subprocess was attempted.
type Result struct {
	OK       bool        `json:"ok"`
	Command  []string    `json:"command"`
	ExitCode int         `json:"exit_code"`
	Stdout   string      `json:"stdout"`
	Stderr   string      `json:"stderr"`
	Parsed   interface{} `json:"parsed"`
	Raw      string      `json:"raw"`
	Binary   string      `json:"binary"`
	Vault    string      `json:"vault"`
	TS       string      `json:"ts"`

	// BlockedReason is the gate classification tag when the command was
	// refused. Empty for commands that reached the subprocess.
	BlockedReason string `json:"blocked_reason,omitempty"`

	// StderrOnly is set when parsing was requested, stdout was empty, and
	// nothing parsed. It distinguishes silent success from tools that wrote
	// only to stderr.
	StderrOnly *bool `json:"output_stderr_only,omitempty"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ResolveBinary resolves the binary name with precedence:
// explicit override > $OBSIDIAN_CLI_BIN > fallback > "obsidian".
// The returned name is not checked for existence.
func ResolveBinary(override, fallback string) string {
	if candidate := strings.TrimSpace(override); candidate != "" {
		return candidate
	}
	if candidate := strings.TrimSpace(os.Getenv(BinaryEnv)); candidate != "" {
		return candidate
	}
	if candidate := strings.TrimSpace(fallback); candidate != "" {
		return candidate
	}
	return DefaultBinary
}

// lookupBinary resolves a binary name to an invocable path. It searches PATH
// first and falls back to the name itself when it points at an existing file.
func lookupBinary(name string) (string, bool) {
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved, true
	}
	if _, err := os.Stat(name); err == nil {
		return name, true
	}
	return "", false
}

// Run validates, gates, and executes a command, producing exactly one Result.
// All failure modes are encoded in the envelope; Run never returns an error.
func Run(command []string, opts Options) Result {
	if len(command) == 0 {
		return Result{
			Command:  []string{},
			ExitCode: 1,
			Stderr:   "No command provided.",
			Binary:   opts.Binary,
			Vault:    opts.Vault,
			TS:       timestamp(),
		}
	}

	binaryName := ResolveBinary(opts.Binary, opts.FallbackBinary)
	resolved, found := lookupBinary(binaryName)
	if !found {
		return Result{
			Command:  command,
			ExitCode: 1,
			Stderr:   fmt.Sprintf("Obsidian CLI not found: %s", binaryName),
			Binary:   binaryName,
			Vault:    opts.Vault,
			TS:       timestamp(),
		}
	}

	command, vault := injectVault(command, opts.Vault)

	// Classification runs after vault injection: the gate must see the final
	// argument vector the external tool will receive.
	if reason := Classify(command, opts.ForceDelete); reason != "" {
		return Result{
			Command:       command,
			ExitCode:      1,
			Stderr:        fmt.Sprintf("Refusing destructive operation (%s) without --force-delete.", reason),
			Binary:        resolved,
			Vault:         vault,
			TS:            timestamp(),
			BlockedReason: reason,
		}
	}

	cmd := exec.Command(resolved, command...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()

	// Invalid byte sequences are replaced, never fatal.
	stdout := strings.ToValidUTF8(stdoutBuf.String(), "�")
	stderr := strings.ToValidUTF8(stderrBuf.String(), "�")

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
			if stderr == "" {
				stderr = runErr.Error()
			}
		}
	}

	result := Result{
		OK:       exitCode == 0,
		Command:  command,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Raw:      strings.TrimSpace(stdout),
		Binary:   resolved,
		Vault:    vault,
		TS:       timestamp(),
	}

	if opts.ParseOutput {
		result.Parsed = parseJSONOutput(stdout)
		if result.Parsed == nil && strings.TrimSpace(stdout) == "" {
			stderrOnly := strings.TrimSpace(stderr) != ""
			result.StderrOnly = &stderrOnly
		}
	}

	return result
}

// parseJSONOutput decodes stdout when it looks like JSON. Decode failures are
// not an error condition; they simply leave the parsed value absent.
func parseJSONOutput(stdout string) interface{} {
	trimmed := strings.TrimLeft(stdout, " \t\r\n")
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil
	}
	var parsed interface{}
	if err := json.Unmarshal([]byte(stdout), &parsed); err != nil {
		return nil
	}
	return parsed
}
