package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkern/obsctl/internal/gate"
	"github.com/mkern/obsctl/internal/registry"
	"github.com/mkern/obsctl/internal/ui"
)

var (
	vaultAddName                string
	vaultAddPath                string
	vaultAddWorkdir             string
	vaultAddSource              string
	vaultAddForce               bool
	vaultAddAllowMissing        bool
	vaultAddAllowMissingWorkdir bool
	vaultAddSetActive           bool

	vaultWorkdirName         string
	vaultWorkdirAllowMissing bool

	vaultDiscoverMerge      bool
	vaultDiscoverForce      bool
	vaultDiscoverFile       string
	vaultDiscoverFromBinary bool
)

// discoverFromBinary asks the external tool itself for its vault list,
// preferring a parsed JSON payload and falling back to its text table.
func discoverFromBinary() []registry.Discovered {
	result := gate.Run([]string{"vaults", "verbose"}, gate.Options{
		FallbackBinary: getConfig().Binary,
		ParseOutput:    true,
		ForceDelete:    true,
	})
	if !result.OK {
		return nil
	}

	if result.Parsed != nil {
		if found := registry.EntriesFromPayload(result.Parsed, result.Binary); len(found) > 0 {
			return found
		}
	}
	return registry.ParseVaultsText(result.Stdout, result.Binary)
}

// registryErrCode maps registry sentinel errors to stable error codes.
func registryErrCode(err error) string {
	switch {
	case errors.Is(err, registry.ErrUnknownVault):
		return ErrVaultNotFound
	case errors.Is(err, registry.ErrNameExists):
		return ErrDuplicateName
	case errors.Is(err, registry.ErrNotVaultRoot):
		return ErrNotVaultRoot
	case errors.Is(err, registry.ErrInvalidWorkdir):
		return ErrInvalidWorkdir
	case errors.Is(err, registry.ErrNoActive):
		return ErrNoActiveVault
	}
	return ErrInvalidInput
}

func runVaultList(cmd *cobra.Command, args []string) error {
	registryPath := location().RegistryPath()
	doc := registry.Load(registryPath)
	entries := doc.List()

	if isJSONOutput() {
		outputSuccess(map[string]interface{}{
			"registry_path": registryPath,
			"active":        doc.Active,
			"vaults":        entries,
		}, &Meta{Count: len(entries)})
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No vaults registered.")
		fmt.Printf("registry: %s\n", registryPath)
		fmt.Println()
		fmt.Println("Register a vault:")
		fmt.Println()
		fmt.Println("  obsctl vault add --path /path/to/vault")
		fmt.Println("  obsctl vault discover --merge")
		return nil
	}

	for _, entry := range entries {
		prefix := "  "
		if entry.IsActive {
			prefix = "> "
		}
		line := fmt.Sprintf("%s %-12s -> %s", prefix, entry.Name, ui.FilePath(entry.Path))
		if entry.Workdir != "" {
			line += " " + ui.Hint("(workdir: "+entry.Workdir+")")
		}
		fmt.Println(line)
	}

	fmt.Println()
	fmt.Println("> = active vault")
	fmt.Printf("registry: %s\n", registryPath)
	return nil
}

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the vault registry and active selection",
	Long: `Manage the vault registry and active selection.

The registry is a JSON document under <data-root>/<skill-name>/vaults.json,
mapping vault names to filesystem paths. The active vault is the default
target for 'obsctl run' when no --vault is given.`,
	Args: cobra.NoArgs,
	RunE: runVaultList,
}

var vaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered vaults",
	Args:  cobra.NoArgs,
	RunE:  runVaultList,
}

var vaultAddCmd = &cobra.Command{
	Use:   "add --path <path> [--name <name>]",
	Short: "Register a vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(vaultAddPath) == "" {
			return handleErrorMsg(ErrMissingArgument, "vault path is required", "Use --path /path/to/vault")
		}

		registryPath := location().RegistryPath()
		doc := registry.Load(registryPath)

		name, record, err := doc.Add(registry.AddOptions{
			Name:                vaultAddName,
			Path:                vaultAddPath,
			Workdir:             vaultAddWorkdir,
			Source:              vaultAddSource,
			Force:               vaultAddForce,
			AllowMissing:        vaultAddAllowMissing,
			AllowMissingWorkdir: vaultAddAllowMissingWorkdir,
			SetActive:           vaultAddSetActive,
		})
		if err != nil {
			suggestion := ""
			if errors.Is(err, registry.ErrNameExists) {
				suggestion = "Use --force to overwrite the existing entry"
			}
			if errors.Is(err, registry.ErrNotVaultRoot) {
				suggestion = "Use --allow-missing to register the path anyway"
			}
			return handleError(registryErrCode(err), err, suggestion)
		}

		if err := registry.Save(registryPath, doc); err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"name":          name,
				"path":          record.Path,
				"workdir":       record.Workdir,
				"source":        record.Source,
				"active":        doc.Active,
				"registry_path": registryPath,
			}, nil)
			return nil
		}

		fmt.Println(ui.Successf("Registered vault '%s' -> %s", name, record.Path))
		if vaultAddSetActive {
			fmt.Printf("Active vault set to '%s'.\n", name)
		}
		fmt.Printf("registry: %s\n", registryPath)
		return nil
	},
}

var vaultRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a vault from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		if name == "" {
			return handleErrorMsg(ErrMissingArgument, "vault name is required", "")
		}

		registryPath := location().RegistryPath()
		doc := registry.Load(registryPath)

		wasActive := doc.Active == name
		record, err := doc.Remove(name)
		if err != nil {
			return handleError(registryErrCode(err), err, "Run 'obsctl vault list' to see registered vaults")
		}

		if err := registry.Save(registryPath, doc); err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"name":           name,
				"removed_path":   record.Path,
				"active_cleared": wasActive,
				"registry_path":  registryPath,
			}, nil)
			return nil
		}

		fmt.Println(ui.Successf("Removed vault '%s' (%s)", name, record.Path))
		if wasActive {
			fmt.Println("Cleared active vault.")
		}
		return nil
	},
}

var vaultActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "Show the active vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc := registry.Load(location().RegistryPath())

		info, ok := doc.ActiveEntry()
		if !ok {
			return handleErrorMsg(ErrNoActiveVault, "no active vault set", "Run 'obsctl vault set-active <name>'")
		}

		if isJSONOutput() {
			outputSuccess(info, nil)
			return nil
		}

		fmt.Printf("active:  %s\n", ui.VaultName(info.Name))
		fmt.Printf("path:    %s\n", info.Path)
		if info.Workdir != "" {
			fmt.Printf("workdir: %s (%s)\n", info.Workdir, info.WorkdirPath)
		}
		return nil
	},
}

var vaultSetActiveCmd = &cobra.Command{
	Use:   "set-active <name>",
	Short: "Select the active vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])

		registryPath := location().RegistryPath()
		doc := registry.Load(registryPath)

		if err := doc.SetActive(name); err != nil {
			return handleError(registryErrCode(err), err, "Run 'obsctl vault list' to see registered vaults")
		}

		if err := registry.Save(registryPath, doc); err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"active": name,
				"path":   doc.Vaults[name].Path,
			}, nil)
			return nil
		}

		fmt.Println(ui.Successf("Active vault set to '%s' -> %s", name, doc.Vaults[name].Path))
		return nil
	},
}

var vaultSetWorkdirCmd = &cobra.Command{
	Use:   "set-workdir [workdir]",
	Short: "Set the default working folder for a vault",
	Long: `Set the default working folder for a vault.

The workdir is stored relative to the vault root. Omitting the argument
clears it. Without --name the active vault is targeted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workdir := ""
		if len(args) == 1 {
			workdir = args[0]
		}

		registryPath := location().RegistryPath()
		doc := registry.Load(registryPath)

		name, err := doc.SetWorkdir(vaultWorkdirName, workdir, vaultWorkdirAllowMissing)
		if err != nil {
			suggestion := ""
			if errors.Is(err, registry.ErrNoActive) {
				suggestion = "Use --name <vault> or run 'obsctl vault set-active <name>' first"
			}
			return handleError(registryErrCode(err), err, suggestion)
		}

		if err := registry.Save(registryPath, doc); err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		stored := doc.Vaults[name].Workdir
		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"name":    name,
				"workdir": stored,
			}, nil)
			return nil
		}

		if stored == "" {
			fmt.Println(ui.Successf("Cleared workdir for vault '%s'", name))
		} else {
			fmt.Println(ui.Successf("Workdir for vault '%s' set to %s", name, stored))
		}
		return nil
	},
}

var vaultDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover vaults from Obsidian's configuration files",
	Long: `Discover vaults from Obsidian's configuration files.

Scans the platform-conventional Obsidian config locations (or a single
--file override) for vault lists; --from-binary instead asks the external
tool itself via its vaults listing. Without --merge the findings are only
printed; with --merge they are written into the registry. Existing names
are never overwritten unless --force is set, and a manually configured
workdir survives a forced overwrite.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var found []registry.Discovered
		if vaultDiscoverFromBinary {
			found = discoverFromBinary()
		} else {
			found = registry.Discover(vaultDiscoverFile)
		}

		if !vaultDiscoverMerge {
			if isJSONOutput() {
				outputSuccess(map[string]interface{}{
					"found":  found,
					"merged": false,
				}, &Meta{Count: len(found)})
				return nil
			}

			if len(found) == 0 {
				fmt.Println("No vaults discovered.")
				return nil
			}
			for _, entry := range found {
				fmt.Printf("  %-12s -> %s %s\n", entry.Name, ui.FilePath(entry.Path), ui.Hint("("+entry.Source+")"))
			}
			fmt.Println()
			fmt.Println("Run 'obsctl vault discover --merge' to add these to the registry.")
			return nil
		}

		registryPath := location().RegistryPath()
		doc := registry.Load(registryPath)
		result := doc.Merge(found, vaultDiscoverForce)

		if result.Merged > 0 {
			if err := registry.Save(registryPath, doc); err != nil {
				return handleError(ErrFileWriteError, err, "")
			}
		}

		if isJSONOutput() {
			warnings := make([]Warning, 0, len(result.Skipped))
			for _, msg := range result.Skipped {
				warnings = append(warnings, Warning{Code: WarnMergeSkipped, Message: msg})
			}
			outputSuccessWithWarnings(map[string]interface{}{
				"found":         result.Found,
				"merged":        result.Merged,
				"registry_path": registryPath,
			}, warnings, &Meta{Count: result.Merged})
			return nil
		}

		fmt.Println(ui.Successf("Discovered %d vault(s), merged %d", result.Found, result.Merged))
		for _, msg := range result.Skipped {
			fmt.Println(ui.Warning(msg))
		}
		fmt.Printf("registry: %s\n", registryPath)
		return nil
	},
}

func init() {
	vaultCmd.AddCommand(vaultListCmd)
	vaultCmd.AddCommand(vaultAddCmd)
	vaultCmd.AddCommand(vaultRemoveCmd)
	vaultCmd.AddCommand(vaultActiveCmd)
	vaultCmd.AddCommand(vaultSetActiveCmd)
	vaultCmd.AddCommand(vaultSetWorkdirCmd)
	vaultCmd.AddCommand(vaultDiscoverCmd)

	vaultAddCmd.Flags().StringVar(&vaultAddName, "name", "", "Vault name (default: path basename)")
	vaultAddCmd.Flags().StringVar(&vaultAddPath, "path", "", "Vault path (required)")
	vaultAddCmd.Flags().StringVar(&vaultAddWorkdir, "workdir", "", "Default working folder relative to the vault root")
	vaultAddCmd.Flags().StringVar(&vaultAddSource, "source", "", "Provenance label (default: manual)")
	vaultAddCmd.Flags().BoolVar(&vaultAddForce, "force", false, "Overwrite an existing entry with the same name")
	vaultAddCmd.Flags().BoolVar(&vaultAddAllowMissing, "allow-missing", false, "Skip the .obsidian marker check")
	vaultAddCmd.Flags().BoolVar(&vaultAddAllowMissingWorkdir, "allow-missing-workdir", false, "Skip the workdir existence check")
	vaultAddCmd.Flags().BoolVar(&vaultAddSetActive, "set-active", false, "Also select this vault as active")

	vaultSetWorkdirCmd.Flags().StringVar(&vaultWorkdirName, "name", "", "Vault name (default: active vault)")
	vaultSetWorkdirCmd.Flags().BoolVar(&vaultWorkdirAllowMissing, "allow-missing", false, "Skip the workdir existence check")

	vaultDiscoverCmd.Flags().BoolVar(&vaultDiscoverMerge, "merge", false, "Write discovered vaults into the registry")
	vaultDiscoverCmd.Flags().BoolVar(&vaultDiscoverForce, "force", false, "Overwrite existing entries (workdir is preserved)")
	vaultDiscoverCmd.Flags().StringVar(&vaultDiscoverFile, "file", "", "Explicit Obsidian config file to scan")
	vaultDiscoverCmd.Flags().BoolVar(&vaultDiscoverFromBinary, "from-binary", false, "Ask the Obsidian CLI itself for its vault list")

	rootCmd.AddCommand(vaultCmd)
}
