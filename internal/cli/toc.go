package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/toc"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// errTOCProblems is returned by "toc check" when the report is not clean.
var errTOCProblems = errors.New("table of contents has problems")

func (a *app) newTOCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toc",
		Short: "Build and inspect the table of contents",
	}
	cmd.AddCommand(a.newTOCRebuildCmd(), a.newTOCShowCmd(), a.newTOCCheckCmd())
	return cmd
}

func (a *app) newTOCRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the table of contents and write toc.json",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rep toc.Report
			err := a.withLibrary(func(lib types.Library) error {
				tree, err := toc.Rebuild(lib, lib.DataDir())
				if err != nil {
					return err
				}
				rep = tree.Report()
				return nil
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, rep, func(w io.Writer) {
				fmt.Fprintln(w, "table of contents rebuilt")
				printReport(w, rep)
			})
		},
	}
}

func (a *app) newTOCShowCmd() *cobra.Command {
	var hidden bool
	cmd := &cobra.Command{
		Use:   "show [path]",
		Short: "Print the category tree with its indexes",
		Args:  args(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			var tree *toc.Tree
			err := a.withLibrary(func(lib types.Library) error {
				var err error
				tree, err = toc.Build(lib)
				return err
			})
			if err != nil {
				return err
			}

			start := tree.Root
			if len(argv) == 1 {
				p := types.ParsePath(argv[0])
				n, ok := tree.Find(p)
				if !ok {
					return fmt.Errorf("category %q: %w", p.String(), types.ErrNotFound)
				}
				start = n
			}
			return a.emit(cmd, start, func(w io.Writer) { printTree(w, start, hidden) })
		},
	}
	cmd.Flags().BoolVar(&hidden, "hidden", false, "include hidden indexes")
	return cmd
}

func (a *app) newTOCCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report orphan indexes, unreachable and empty categories",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rep toc.Report
			err := a.withLibrary(func(lib types.Library) error {
				tree, err := toc.Build(lib)
				if err != nil {
					return err
				}
				rep = tree.Report()
				return nil
			})
			if err != nil {
				return err
			}
			if err := a.emit(cmd, rep, func(w io.Writer) { printReport(w, rep) }); err != nil {
				return err
			}
			if !rep.Clean() {
				return errTOCProblems
			}
			return nil
		},
	}
}

func printTree(w io.Writer, n *toc.Node, hidden bool) {
	var visit func(n *toc.Node, depth int)
	visit = func(n *toc.Node, depth int) {
		indent := strings.Repeat("  ", depth)
		if n.Name != "" {
			fmt.Fprintf(w, "%s%s/\n", indent, n.Name)
			indent += "  "
		}
		for _, e := range n.Indexes {
			if e.Hidden && !hidden {
				continue
			}
			fmt.Fprintf(w, "%s%s\n", indent, e.Title)
		}
		next := depth
		if n.Name != "" {
			next++
		}
		for _, c := range n.Children {
			visit(c, next)
		}
	}
	visit(n, 0)
}

func printReport(w io.Writer, rep toc.Report) {
	if rep.Clean() {
		fmt.Fprintln(w, "no problems found")
		return
	}
	for _, title := range rep.OrphanIndexes {
		fmt.Fprintf(w, "orphan index: %s\n", title)
	}
	for _, p := range rep.OrphanCategories {
		fmt.Fprintf(w, "unreachable category: %s\n", p)
	}
	for _, p := range rep.EmptyCategories {
		fmt.Fprintf(w, "empty category: %s\n", p)
	}
}
