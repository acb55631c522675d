package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/paths"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize librarian storage",
		Long: `Create the configuration and data directories, write a default config.yaml
when there is none, and create the empty catalog files.`,
		Args: args(cobra.NoArgs),
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, _ []string) error {
	if err := os.MkdirAll(a.configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	cfg, err := a.libraryConfig()
	if err != nil {
		return err
	}

	// Record the data dir in a new config only when it was chosen by flag.
	recorded := ""
	if a.flags.dataDir != "" {
		recorded = cfg.DataDir
	}
	created, err := writeConfigIfMissing(paths.ConfigFile(a.configDir), recorded)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	err = a.withLibrary(func(types.Library) error { return nil })
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Librarian initialized successfully")
	fmt.Fprintln(out, "  config:", a.configDir)
	if created {
		fmt.Fprintln(out, "  wrote: ", paths.ConfigFile(a.configDir))
	}
	fmt.Fprintln(out, "  data:  ", cfg.DataDir)
	return nil
}
