package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/reorg"
	"github.com/mesh-intelligence/librarian/pkg/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// withLibrary attaches the configured store, runs fn and detaches.
func (a *app) withLibrary(fn func(lib types.Library) error) error {
	cfg, err := a.libraryConfig()
	if err != nil {
		return err
	}

	lib := sqlite.NewBackend()
	if err := lib.Attach(cfg); err != nil {
		return fmt.Errorf("attach library: %w", err)
	}
	err = fn(lib)
	if derr := lib.Detach(); err == nil && derr != nil {
		err = fmt.Errorf("detach library: %w", derr)
	}
	return err
}

// reorganize runs fn against a reorganizer bound to a single transaction,
// so a failing command leaves the catalog unchanged.
func (a *app) reorganize(fn func(r *reorg.Reorganizer) error) error {
	opts, err := a.reorgOptions()
	if err != nil {
		return err
	}
	return a.withLibrary(func(lib types.Library) error {
		return lib.Transaction(func(tx types.TableSource) error {
			return fn(reorg.New(tx, opts...))
		})
	})
}

// emit writes v as JSON when --json is set and calls human otherwise.
func (a *app) emit(cmd *cobra.Command, v any, human func(w io.Writer)) error {
	if a.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	human(cmd.OutOrStdout())
	return nil
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func printMoved(w io.Writer, verb string, rep reorg.MoveReport) {
	fmt.Fprintf(w, "%s: %d categories, %d indexes rewritten\n", verb, rep.Categories, rep.Indexes)
}

// intoFlag returns the parent category named by --into, or nil for the top
// level.
func intoFlag(r *reorg.Reorganizer, into string) (*types.Category, error) {
	p := types.ParsePath(into)
	if p.IsRoot() {
		return nil, nil
	}
	return r.Category(p)
}
