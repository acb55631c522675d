package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/reorg"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func (a *app) newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Add, move and update indexes",
	}
	cmd.AddCommand(
		a.newIndexAddCmd(),
		a.newIndexMoveCmd(),
		a.newIndexOrderCmd(),
		a.newIndexUpdateCmd("hide", "Hide an index from the table of contents", (*reorg.Reorganizer).HideIndex),
		a.newIndexUpdateCmd("clear-dependence", "Clear an index's dependence and base texts", (*reorg.Reorganizer).ClearDependence),
		a.newIndexListCmd(),
	)
	return cmd
}

func (a *app) newIndexAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <title> <category>",
		Short: "Create an index attached to a category",
		Args:  args(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			var idx *types.Index
			err := a.reorganize(func(r *reorg.Reorganizer) error {
				cat, err := r.Category(types.ParsePath(argv[1]))
				if err != nil {
					return err
				}
				idx, err = r.AddIndex(argv[0], cat)
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, idx, func(w io.Writer) {
				fmt.Fprintf(w, "added %s under %s (%s)\n", idx.Title, idx.Categories, idx.IndexID)
			})
		},
	}
}

func (a *app) newIndexMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <title> <category>",
		Short: "Attach an index to another category",
		Args:  args(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			var idx *types.Index
			err := a.reorganize(func(r *reorg.Reorganizer) error {
				var err error
				if idx, err = r.Index(argv[0]); err != nil {
					return err
				}
				cat, err := r.Category(types.ParsePath(argv[1]))
				if err != nil {
					return err
				}
				return r.MoveIndexInto(idx, cat)
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, idx, func(w io.Writer) {
				fmt.Fprintf(w, "moved %s to %s\n", idx.Title, idx.Categories)
			})
		},
	}
}

func (a *app) newIndexOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order <title> <position>...",
		Short: "Set an index's position among its siblings",
		Args:  args(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			order := make([]int, 0, len(argv)-1)
			for _, s := range argv[1:] {
				n, err := strconv.Atoi(s)
				if err != nil {
					return usageErr(fmt.Errorf("invalid position %q", s))
				}
				order = append(order, n)
			}
			var idx *types.Index
			err := a.reorganize(func(r *reorg.Reorganizer) error {
				var err error
				if idx, err = r.Index(argv[0]); err != nil {
					return err
				}
				return r.SetIndexOrder(idx, order)
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, idx, func(w io.Writer) {
				fmt.Fprintf(w, "%s order %v\n", idx.Title, idx.Order)
			})
		},
	}
}

func (a *app) newIndexUpdateCmd(name, short string, update func(*reorg.Reorganizer, *types.Index) error) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <title>",
		Short: short,
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			var idx *types.Index
			err := a.reorganize(func(r *reorg.Reorganizer) error {
				var err error
				if idx, err = r.Index(argv[0]); err != nil {
					return err
				}
				return update(r, idx)
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, idx, func(w io.Writer) {
				fmt.Fprintf(w, "updated %s\n", idx.Title)
			})
		},
	}
}

func (a *app) newIndexListCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "list [category]",
		Short: "List indexes, optionally only those attached to a category",
		Args:  args(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			filter := types.Filter{}
			if len(argv) == 1 {
				key := types.FilterCategories
				if recursive {
					key = types.FilterCategoriesPrefix
				}
				filter[key] = types.ParsePath(argv[0])
			}
			var idxs []*types.Index
			err := a.withLibrary(func(lib types.Library) error {
				tbl, err := lib.GetTable(types.TableIndexes)
				if err != nil {
					return err
				}
				rows, err := tbl.Fetch(filter)
				if err != nil {
					return err
				}
				for _, row := range rows {
					idxs = append(idxs, row.(*types.Index))
				}
				return nil
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, idxs, func(w io.Writer) {
				for _, idx := range idxs {
					fmt.Fprintf(w, "%s\t%s\n", idx.Title, idx.Categories)
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "include indexes in descendant categories")
	return cmd
}
