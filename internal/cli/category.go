package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/reorg"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func (a *app) newCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Create, move, rename and delete categories",
		Long: `Category paths are written as segments separated by "/", for example
"Talmud/Bavli" or "Talmud / Bavli".`,
	}
	cmd.AddCommand(
		a.newCategoryCreateCmd(),
		a.newCategoryMoveCmd(false),
		a.newCategoryMoveCmd(true),
		a.newCategoryRenameCmd(false),
		a.newCategoryRenameCmd(true),
		a.newCategoryRewriteCmd(),
		a.newCategoryDeleteCmd(),
		a.newCategoryListCmd(),
	)
	return cmd
}

func (a *app) newCategoryCreateCmd() *cobra.Command {
	var en, he string
	cmd := &cobra.Command{
		Use:   "create <path>",
		Short: "Create a category, and its term when none exists",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			var cat *types.Category
			err := a.reorganize(func(r *reorg.Reorganizer) error {
				var err error
				cat, err = r.CreateCategory(types.ParsePath(argv[0]), en, he)
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, cat, func(w io.Writer) {
				fmt.Fprintf(w, "created %s (%s)\n", cat.Path, cat.CategoryID)
			})
		},
	}
	cmd.Flags().StringVar(&en, "en", "", "English primary title for a new term")
	cmd.Flags().StringVar(&he, "he", "", "Hebrew primary title for a new term")
	return cmd
}

func (a *app) newCategoryMoveCmd(children bool) *cobra.Command {
	var into string
	use, short := "move <path>", "Move a category and its subtree under another category"
	if children {
		use, short = "move-children <path>", "Move every child of a category under another category"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			var rep reorg.MoveReport
			err := a.reorganize(func(r *reorg.Reorganizer) error {
				cat, err := r.Category(types.ParsePath(argv[0]))
				if err != nil {
					return err
				}
				parent, err := intoFlag(r, into)
				if err != nil {
					return err
				}
				if children {
					rep, err = r.MoveChildrenInto(cat, parent)
				} else {
					rep, err = r.MoveCategoryInto(cat, parent)
				}
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, rep, func(w io.Writer) { printMoved(w, "moved", rep) })
		},
	}
	cmd.Flags().StringVar(&into, "into", "", "destination parent path (default: top level)")
	return cmd
}

func (a *app) newCategoryRenameCmd(segment bool) *cobra.Command {
	use, short := "rename <path> <name>", "Rename a category's terminal segment, leaving descendants as they are"
	if segment {
		use, short = "rename-segment <path> <name>", "Rename a category and rewrite every path below it"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			var rep reorg.MoveReport
			var cat *types.Category
			err := a.reorganize(func(r *reorg.Reorganizer) error {
				var err error
				if cat, err = r.Category(types.ParsePath(argv[0])); err != nil {
					return err
				}
				if segment {
					rep, err = r.RenameSegment(cat, argv[1])
					return err
				}
				rep.Categories = 1
				return r.RenameCategory(cat, argv[1])
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, rep, func(w io.Writer) {
				printMoved(w, "renamed to "+cat.Path.String(), rep)
			})
		},
	}
}

func (a *app) newCategoryRewriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rewrite <old-prefix> <new-prefix>",
		Short: "Replace a path prefix on every category and index",
		Args:  args(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			var rep reorg.MoveReport
			err := a.reorganize(func(r *reorg.Reorganizer) error {
				var err error
				rep, err = r.RewritePrefix(types.ParsePath(argv[0]), types.ParsePath(argv[1]))
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, rep, func(w io.Writer) { printMoved(w, "rewrote", rep) })
		},
	}
}

func (a *app) newCategoryDeleteCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a category record",
		Long: `Delete removes only the category record. Descendant categories and attached
indexes are kept and left pointing at the deleted path; "toc check" lists
them. With --strict (or strict_delete in config.yaml) a category that still
has descendants or indexes is refused.`,
		Args: args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if strict {
				a.config.Set(cfgKeyStrictDelete, true)
			}
			path := types.ParsePath(argv[0])
			err := a.reorganize(func(r *reorg.Reorganizer) error {
				cat, err := r.Category(path)
				if err != nil {
					return err
				}
				return r.DeleteCategory(cat)
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, map[string]any{"deleted": path}, func(w io.Writer) {
				fmt.Fprintf(w, "deleted %s\n", path)
			})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "refuse to delete a category that is not empty")
	return cmd
}

func (a *app) newCategoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [prefix]",
		Short: "List categories, optionally only those under a prefix",
		Args:  args(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			filter := types.Filter{}
			if len(argv) == 1 {
				filter[types.FilterPathPrefix] = types.ParsePath(argv[0])
			}
			var cats []*types.Category
			err := a.withLibrary(func(lib types.Library) error {
				tbl, err := lib.GetTable(types.TableCategories)
				if err != nil {
					return err
				}
				rows, err := tbl.Fetch(filter)
				if err != nil {
					return err
				}
				for _, row := range rows {
					cats = append(cats, row.(*types.Category))
				}
				return nil
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, cats, func(w io.Writer) {
				for _, c := range cats {
					fmt.Fprintln(w, c.Path)
				}
			})
		},
	}
}
