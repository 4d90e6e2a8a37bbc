// Package gate validates and executes Obsidian CLI commands.
//
// Every invocation passes through a safety gate that refuses destructive
// operations unless force-delete is set, then invokes the external binary and
// normalizes its output into a single result envelope. No failure mode
// escapes the package as an error or panic; everything is encoded in Result.
package gate

import "strings"

// vaultAgnosticVerbs are primary verbs that do not operate on a vault, so no
// vault= token is injected for them.
var vaultAgnosticVerbs = map[string]struct{}{
	"help":       {},
	"version":    {},
	"reload":     {},
	"restart":    {},
	"vault":      {},
	"vaults":     {},
	"vault:open": {},
}

// primaryVerb returns the first token that is not a vault= selector, and its
// index. A prepended vault token must never shift the verb the gate inspects.
func primaryVerb(command []string) (string, int) {
	for i, token := range command {
		if strings.HasPrefix(token, "vault=") {
			continue
		}
		return token, i
	}
	return "", -1
}

// NeedsVault reports whether the command's primary verb targets a vault.
func NeedsVault(command []string) bool {
	primary, _ := primaryVerb(command)
	if primary == "" {
		return false
	}
	_, agnostic := vaultAgnosticVerbs[primary]
	return !agnostic
}

// Classify returns a reason tag when the command is a destructive operation,
// or "" when it is safe to run. forceDelete suppresses all classifications.
//
// Classification is a pure function of the final token sequence the external
// tool will receive, so it cannot be bypassed by caller omission. The primary
// verb is resolved past any vault= tokens; vault injection must not change
// what the gate sees.
func Classify(command []string, forceDelete bool) string {
	if forceDelete {
		return ""
	}

	primary, idx := primaryVerb(command)
	if primary == "" {
		return ""
	}
	flags := make(map[string]struct{}, len(command)-idx-1)
	for _, token := range command[idx+1:] {
		flags[token] = struct{}{}
	}

	if primary == "delete" {
		if _, ok := flags["permanent"]; ok {
			return "delete-permanent"
		}
		return "delete"
	}

	switch primary {
	case "plugin:uninstall":
		return "plugin-uninstall"
	case "publish:remove":
		return "publish-remove"
	case "workspace:delete":
		return "workspace-delete"
	}

	// Catch-all for namespaced delete verbs. task:delete completes a task
	// rather than destroying data, so it stays allowed.
	if strings.HasSuffix(primary, ":delete") && primary != "task:delete" {
		return "command-" + primary
	}

	return ""
}

// hasVaultToken reports whether the command already carries a vault= flag.
func hasVaultToken(command []string) bool {
	for _, token := range command {
		if strings.HasPrefix(token, "vault=") {
			return true
		}
	}
	return false
}

// injectVault prepends a vault=<name> token when the command targets a vault,
// a vault name was supplied, and the tokens do not already carry one.
//
// It returns the (possibly augmented) command and the vault name to record in
// the envelope. When the caller supplied no name but the tokens carry an
// explicit vault= flag, the recorded vault stays empty: the envelope reflects
// the caller-supplied name only and is never re-derived from the tokens.
func injectVault(command []string, vault string) ([]string, string) {
	if !NeedsVault(command) {
		return command, vault
	}

	if vault != "" {
		if !hasVaultToken(command) {
			augmented := make([]string, 0, len(command)+1)
			augmented = append(augmented, "vault="+vault)
			augmented = append(augmented, command...)
			return augmented, vault
		}
		return command, vault
	}

	if hasVaultToken(command) {
		return command, ""
	}
	return command, vault
}
