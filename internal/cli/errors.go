// Package cli implements the command-line interface.
package cli

// Error codes for structured error responses.
// These codes are stable and can be relied upon by agents.
const (
	// Registry errors
	ErrVaultNotFound  = "VAULT_NOT_FOUND"
	ErrNoActiveVault  = "NO_ACTIVE_VAULT"
	ErrDuplicateName  = "DUPLICATE_NAME"
	ErrNotVaultRoot   = "NOT_VAULT_ROOT"
	ErrInvalidWorkdir = "INVALID_WORKDIR"

	// Execution errors
	ErrBinaryNotFound     = "BINARY_NOT_FOUND"
	ErrDestructiveBlocked = "DESTRUCTIVE_BLOCKED"
	ErrCommandFailed      = "COMMAND_FAILED"

	// Config errors
	ErrConfigInvalid = "CONFIG_INVALID"

	// File errors
	ErrFileWriteError = "FILE_WRITE_ERROR"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"
)

// Warning codes for non-fatal issues.
const (
	WarnMergeSkipped = "MERGE_SKIPPED"
)
