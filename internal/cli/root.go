// Package cli implements the command-line interface.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mkern/obsctl/internal/config"
	"github.com/mkern/obsctl/internal/registry"
	"github.com/mkern/obsctl/internal/ui"
)

var (
	// Global flags
	configPath      string
	skillRootFlag   string
	skillNameFlag   string
	dataRootFlag    string
	projectRootFlag string

	// Resolved values
	resolvedConfigPath string
	cfg                *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "obsctl",
	Short: "Safe executor and vault registry for the Obsidian CLI",
	Long: `obsctl wraps the external Obsidian CLI for agent and script use.

Commands are screened before execution: destructive operations are refused
unless explicitly forced, a vault target is injected when one is configured,
and every result comes back as a single JSON envelope. The vault registry
maps names to filesystem paths and tracks the active selection, with
discovery from Obsidian's own configuration files.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, resolvedConfigPath, err = loadGlobalConfigWithPath()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		ui.ConfigureTheme(cfg.UI.Accent)
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to obsctl config file")
	addLocationFlags(rootCmd.PersistentFlags())
}

// addLocationFlags registers the registry-location overrides on a flag set.
func addLocationFlags(flags *pflag.FlagSet) {
	flags.StringVar(&skillRootFlag, "skill-root", "", "Skill directory containing SKILL.md")
	flags.StringVar(&skillNameFlag, "skill-name", "", "Override the skill name used for the data directory")
	flags.StringVar(&dataRootFlag, "data-root", "", "Override the data directory (default: <project-root>/.skills-data)")
	flags.StringVar(&projectRootFlag, "project-root", "", "Override the guessed project root")
}

// getConfig returns the loaded config.
func getConfig() *config.Config {
	if cfg == nil {
		return &config.Config{}
	}
	return cfg
}

// location resolves the registry location from flags with config fallbacks.
func location() registry.Location {
	loc := registry.Location{
		SkillRoot:   skillRootFlag,
		SkillName:   skillNameFlag,
		DataRoot:    dataRootFlag,
		ProjectRoot: projectRootFlag,
	}
	conf := getConfig()
	if loc.DataRoot == "" {
		loc.DataRoot = conf.DataRoot
	}
	if loc.SkillName == "" {
		loc.SkillName = conf.SkillName
	}
	return loc
}

func loadGlobalConfigWithPath() (*config.Config, string, error) {
	resolvedPath := config.ResolveConfigPath(configPath)

	var loadedCfg *config.Config
	var err error
	if strings.TrimSpace(configPath) != "" {
		loadedCfg, err = config.LoadFrom(configPath)
	} else {
		loadedCfg, err = config.Load()
	}
	if err != nil {
		return nil, "", err
	}
	if loadedCfg == nil {
		loadedCfg = &config.Config{}
	}

	return loadedCfg, resolvedPath, nil
}
