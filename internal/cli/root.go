// Package cli implements the librarian command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/librarian/internal/paths"
	"github.com/mesh-intelligence/librarian/internal/plan"
	"github.com/mesh-intelligence/librarian/pkg/librarian"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
	logFormat string
	jsonMode  bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags     rootFlags
	configDir string
	config    *viper.Viper
	log       *logrus.Logger
}

// NewRootCmd creates the top-level "librarian" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{log: logrus.New()}

	root := &cobra.Command{
		Use:   "librarian",
		Short: "Reorganize a catalog's category tree",
		Long: `Librarian edits the category tree of a text catalog: it moves indexes and
whole subtrees, creates, renames and deletes categories, and applies
declarative migration plans with a resumable journal.`,
		Version:           librarian.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErr(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: ./.librarian or the platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: ./.librarian-db)")
	pf.StringVar(&a.flags.logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&a.flags.logFormat, "log-format", defaultLogFormat, "log format (text, json)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newCategoryCmd(),
		a.newIndexCmd(),
		a.newTermCmd(),
		a.newTOCCmd(),
		a.newApplyCmd(),
		a.newJournalCmd(),
		a.newGetCmd(),
		a.newListCmd(),
		a.newImportCmd(),
		a.newExportCmd(),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "librarian:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// setup resolves the config directory, loads the configuration and
// configures logging. It runs before every subcommand.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	dir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(dir)
	if err != nil {
		return err
	}
	pf := cmd.Root().PersistentFlags()
	if err := v.BindPFlag(cfgKeyLogLevel, pf.Lookup("log-level")); err != nil {
		return err
	}
	if err := v.BindPFlag(cfgKeyLogFormat, pf.Lookup("log-format")); err != nil {
		return err
	}

	a.configDir = dir
	a.config = v
	return configureLogger(a.log, cmd.ErrOrStderr(), v.GetString(cfgKeyLogLevel), v.GetString(cfgKeyLogFormat))
}

// usageError marks errors caused by how the command was invoked.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErr(err error) error { return &usageError{err: err} }

// args wraps a cobra argument validator so its failures count as usage
// errors.
func args(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := v(cmd, a); err != nil {
			return usageErr(err)
		}
		return nil
	}
}

// userErrors are the failures caused by the request rather than the system.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrTableNotFound,
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrInvalidFilter,
	types.ErrInvalidName,
	types.ErrInvalidPath,
	types.ErrInvalidTitle,
	types.ErrInvalidLanguage,
	types.ErrInvalidCategory,
	types.ErrInvalidIndex,
	types.ErrDuplicatePath,
	types.ErrDuplicateName,
	types.ErrDuplicatePrimary,
	types.ErrMissingPrimary,
	types.ErrTitleNotFound,
	types.ErrParentNotFound,
	types.ErrTermNotFound,
	types.ErrTermNamesRequired,
	types.ErrCyclicMove,
	types.ErrCategoryNotEmpty,
	plan.ErrNoName,
	plan.ErrNoSteps,
	plan.ErrUnknownOp,
	plan.ErrMissingField,
	errTOCProblems,
}

// exitCode maps an error to the process exit code: 1 for user errors,
// 2 for everything else.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ue *usageError
	if errors.As(err, &ue) {
		return exitUserError
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}
