package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkern/obsctl/internal/audit"
	"github.com/mkern/obsctl/internal/gate"
	"github.com/mkern/obsctl/internal/registry"
	"github.com/mkern/obsctl/internal/shellquote"
)

var (
	runVault       string
	runBinary      string
	runRaw         bool
	runForceDelete bool
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <args...>",
	Short: "Execute an Obsidian CLI command through the safety gate",
	Long: `Execute an Obsidian CLI command through the safety gate.

The argument vector after -- is passed to the external binary unchanged,
except that a vault=<name> token is injected when the command targets a
vault and one is selected (via --vault or the active registry entry).

Destructive operations (delete, plugin:uninstall, publish:remove,
workspace:delete, and *:delete variants) are refused unless --force-delete
is set. The result is printed as a single JSON envelope; --raw streams the
subprocess output verbatim instead.`,
	Args: cobra.ArbitraryArgs,
	// The envelope already carries the failure; keep Cobra quiet.
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		vault := runVault
		if vault == "" {
			doc := registry.Load(location().RegistryPath())
			if active, ok := doc.ActiveEntry(); ok {
				vault = active.Name
			}
		}

		opts := gate.Options{
			Vault:          vault,
			Binary:         runBinary,
			FallbackBinary: getConfig().Binary,
			ForceDelete:    runForceDelete,
			ParseOutput:    !runRaw,
		}
		result := gate.Run(args, opts)

		if result.BlockedReason != "" && shouldPromptForConfirm() {
			display := shellquote.Join(append([]string{result.Binary}, result.Command...))
			prompt := fmt.Sprintf("Destructive operation (%s): %s\nRun anyway?", result.BlockedReason, display)
			if promptForConfirm(prompt) {
				opts.ForceDelete = true
				result = gate.Run(args, opts)
			}
		}

		logExecution(result)

		if runRaw {
			if result.Stdout != "" {
				fmt.Print(result.Stdout)
			}
			if result.Stderr != "" {
				fmt.Fprint(os.Stderr, result.Stderr)
			}
		} else {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(result)
		}

		if !result.OK {
			return fmt.Errorf("command failed with exit code %d", result.ExitCode)
		}
		return nil
	},
}

// logExecution appends the invocation to the audit log. Failures are warned
// on stderr, never fatal.
func logExecution(result gate.Result) {
	logger := audit.New(location().LogPath(), getConfig().IsAuditLogEnabled())
	err := logger.Log(audit.Entry{
		Command:  result.Command,
		Binary:   result.Binary,
		Vault:    result.Vault,
		ExitCode: result.ExitCode,
		OK:       result.OK,
		Blocked:  result.BlockedReason,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

func init() {
	runCmd.Flags().StringVarP(&runVault, "vault", "v", "", "Target vault name (default: active registry entry)")
	runCmd.Flags().StringVar(&runBinary, "binary", "", "Obsidian CLI binary (overrides $OBSIDIAN_CLI_BIN and config)")
	runCmd.Flags().BoolVar(&runRaw, "raw", false, "Stream subprocess output verbatim instead of the JSON envelope")
	runCmd.Flags().BoolVar(&runForceDelete, "force-delete", false, "Allow destructive operations")

	rootCmd.AddCommand(runCmd)
}
