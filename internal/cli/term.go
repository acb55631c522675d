package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/reorg"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func (a *app) newTermCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "term",
		Short: "Manage the terms that name categories",
	}
	cmd.AddCommand(a.newTermAddCmd(), a.newTermPrimaryCmd(), a.newTermShowCmd())
	return cmd
}

func (a *app) newTermAddCmd() *cobra.Command {
	var en, he, scope string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a term with English and Hebrew primary titles",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			var term *types.Term
			err := a.reorganize(func(r *reorg.Reorganizer) error {
				var err error
				term, err = r.CreateTerm(argv[0], types.ParsePath(scope), en, he)
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, term, func(w io.Writer) {
				fmt.Fprintf(w, "created term %s (%s)\n", term.Name, term.TermID)
			})
		},
	}
	cmd.Flags().StringVar(&en, "en", "", "English primary title (required)")
	cmd.Flags().StringVar(&he, "he", "", "Hebrew primary title (required)")
	cmd.Flags().StringVar(&scope, "scope", "", "parent path for a parent-scoped term")
	return cmd
}

func (a *app) newTermPrimaryCmd() *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "primary <name> <lang> <title>",
		Short: "Make title the primary title of a term in lang",
		Args:  args(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			var term *types.Term
			err := a.reorganize(func(r *reorg.Reorganizer) error {
				p := types.ParsePath(scope)
				if err := r.SetTermPrimary(argv[0], p, argv[1], argv[2]); err != nil {
					return err
				}
				var err error
				term, err = r.Term(argv[0], p)
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, term, func(w io.Writer) { printTerm(w, term) })
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "parent path for a parent-scoped term")
	return cmd
}

func (a *app) newTermShowCmd() *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a term and its titles",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			opts, err := a.reorgOptions()
			if err != nil {
				return err
			}
			var term *types.Term
			err = a.withLibrary(func(lib types.Library) error {
				var err error
				term, err = reorg.New(lib, opts...).Term(argv[0], types.ParsePath(scope))
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, term, func(w io.Writer) { printTerm(w, term) })
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "parent path for a parent-scoped term")
	return cmd
}

func printTerm(w io.Writer, t *types.Term) {
	fmt.Fprintf(w, "Name:    %s\n", t.Name)
	fmt.Fprintf(w, "ID:      %s\n", t.TermID)
	fmt.Fprintf(w, "Scheme:  %s\n", t.Scheme)
	if !t.Scope.IsRoot() {
		fmt.Fprintf(w, "Scope:   %s\n", t.Scope)
	}
	fmt.Fprintln(w, "Titles:")
	for _, tt := range t.Titles {
		mark := " "
		if tt.Primary {
			mark = "*"
		}
		fmt.Fprintf(w, "  %s [%s] %s\n", mark, tt.Lang, tt.Text)
	}
}
