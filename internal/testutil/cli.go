package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

var (
	// binaryPath caches the path to the built obsctl binary.
	binaryPath string
	buildMu    sync.Mutex
	buildErr   error
)

// CLIResult represents a parsed registry-surface response.
type CLIResult struct {
	OK       bool
	Data     map[string]interface{}
	Error    *CLIError
	Warnings []CLIWarning
	Meta     *CLIMeta
	RawJSON  string
	ExitCode int
}

// CLIError represents a structured error from the CLI.
type CLIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// CLIWarning represents a warning from the CLI.
type CLIWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CLIMeta contains metadata from the response.
type CLIMeta struct {
	Count int `json:"count,omitempty"`
}

// BuildCLI builds the obsctl binary once per test run and returns its path.
func BuildCLI(t *testing.T) string {
	t.Helper()

	buildMu.Lock()
	defer buildMu.Unlock()

	if binaryPath != "" {
		if _, err := os.Stat(binaryPath); err == nil {
			return binaryPath
		}
		binaryPath = ""
		buildErr = nil
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		buildErr = err
	} else {
		tmpDir, err := os.MkdirTemp("", "obsctl-bin-*")
		if err != nil {
			buildErr = err
		} else {
			binName := "obsctl"
			if runtime.GOOS == "windows" {
				binName = "obsctl.exe"
			}

			binaryPath = filepath.Join(tmpDir, binName)
			cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/obsctl")
			cmd.Dir = projectRoot
			if output, err := cmd.CombinedOutput(); err != nil {
				buildErr = errors.New(err.Error() + "\n" + string(output))
				binaryPath = ""
			}
		}
	}

	if buildErr != nil {
		t.Fatalf("failed to build CLI: %v", buildErr)
	}
	return binaryPath
}

// findProjectRoot walks up the directory tree to find go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// exec runs the binary with the skill's location flags plus args.
// extraEnv entries are appended to the inherited environment.
func (s *TestSkill) exec(extraEnv []string, args ...string) (string, string, int) {
	s.t.Helper()

	binary := BuildCLI(s.t)
	cmdArgs := []string{
		"--skill-root", s.SkillRoot,
		"--data-root", s.DataRoot,
		"--config", s.configPath(),
	}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.Command(binary, cmdArgs...)
	cmd.Env = append(os.Environ(), extraEnv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	return stdout.String(), stderr.String(), exitCode
}

// configPath lazily writes an empty config file so tests never pick up the
// developer's real ~/.config/obsctl/config.toml.
func (s *TestSkill) configPath() string {
	path := filepath.Join(s.SkillRoot, "config.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
			s.t.Fatalf("failed to write config: %v", err)
		}
	}
	return path
}

// RunCLI executes a registry-surface command with --json and parses the
// standard response envelope.
func (s *TestSkill) RunCLI(args ...string) *CLIResult {
	s.t.Helper()

	cmdArgs := append([]string{"--json"}, args...)
	stdout, _, exitCode := s.exec(nil, cmdArgs...)

	result := &CLIResult{
		RawJSON:  stdout,
		ExitCode: exitCode,
	}

	var resp struct {
		OK       bool                   `json:"ok"`
		Data     map[string]interface{} `json:"data,omitempty"`
		Error    *CLIError              `json:"error,omitempty"`
		Warnings []CLIWarning           `json:"warnings,omitempty"`
		Meta     *CLIMeta               `json:"meta,omitempty"`
	}
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		result.OK = false
		result.Error = &CLIError{
			Code:    "PARSE_ERROR",
			Message: "failed to parse JSON output: " + err.Error() + "\nraw: " + stdout,
		}
		return result
	}

	result.OK = resp.OK
	result.Data = resp.Data
	result.Error = resp.Error
	result.Warnings = resp.Warnings
	result.Meta = resp.Meta
	return result
}

// RunEnvelope executes 'obsctl run' and parses the flat invocation envelope.
// The envelope is returned as a generic map alongside the process exit code.
func (s *TestSkill) RunEnvelope(extraEnv []string, args ...string) (map[string]interface{}, int) {
	s.t.Helper()

	stdout, _, exitCode := s.exec(extraEnv, args...)

	var envelope map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &envelope); err != nil {
		s.t.Fatalf("failed to parse envelope: %v\nraw: %s", err, stdout)
	}
	return envelope, exitCode
}

// RunRaw executes the binary and returns stdout, stderr, and the exit code
// without any parsing.
func (s *TestSkill) RunRaw(extraEnv []string, args ...string) (string, string, int) {
	s.t.Helper()
	return s.exec(extraEnv, args...)
}

// MustSucceed fails the test if the CLI command did not succeed.
func (r *CLIResult) MustSucceed(t *testing.T) *CLIResult {
	t.Helper()
	if !r.OK {
		errMsg := "unknown error"
		if r.Error != nil {
			errMsg = r.Error.Code + ": " + r.Error.Message
		}
		t.Fatalf("expected command to succeed, got error: %s\nRaw output: %s", errMsg, r.RawJSON)
	}
	return r
}

// MustFail fails the test if the CLI command did not fail with the expected code.
func (r *CLIResult) MustFail(t *testing.T, expectedCode string) *CLIResult {
	t.Helper()
	if r.OK {
		t.Fatalf("expected command to fail with code %s, but it succeeded\nRaw output: %s", expectedCode, r.RawJSON)
	}
	if r.Error == nil {
		t.Fatalf("expected error with code %s, but error is nil\nRaw output: %s", expectedCode, r.RawJSON)
	}
	if r.Error.Code != expectedCode {
		t.Fatalf("expected error code %s, got %s: %s", expectedCode, r.Error.Code, r.Error.Message)
	}
	return r
}

// DataString extracts a string from the Data field.
func (r *CLIResult) DataString(key string) string {
	if r.Data == nil {
		return ""
	}
	if s, ok := r.Data[key].(string); ok {
		return s
	}
	return ""
}

// DataList extracts a list from the Data field.
func (r *CLIResult) DataList(key string) []interface{} {
	if r.Data == nil {
		return nil
	}
	if list, ok := r.Data[key].([]interface{}); ok {
		return list
	}
	return nil
}
