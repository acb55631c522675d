package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/dump"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load terms, categories and indexes from a JSON catalog file",
		Long: `Import reads a catalog document written by "export" (use "-" for stdin) and
stores every entity under its original ID. The import is all or nothing.`,
		Args: args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			in := cmd.InOrStdin()
			if argv[0] != "-" {
				f, err := os.Open(argv[0])
				if err != nil {
					return usageErr(fmt.Errorf("open catalog: %w", err))
				}
				defer f.Close()
				in = f
			}
			doc, err := dump.Read(in)
			if err != nil {
				return usageErr(err)
			}

			var st dump.Stats
			err = a.withLibrary(func(lib types.Library) error {
				return lib.Transaction(func(tx types.TableSource) error {
					var err error
					st, err = dump.Import(tx, doc)
					return err
				})
			})
			if err != nil {
				return err
			}
			a.log.WithFields(logrus.Fields{
				"terms":      st.Terms,
				"categories": st.Categories,
				"indexes":    st.Indexes,
			}).Info("imported catalog")
			return a.emit(cmd, st, func(w io.Writer) {
				fmt.Fprintf(w, "imported %d terms, %d categories, %d indexes\n", st.Terms, st.Categories, st.Indexes)
			})
		},
	}
}

func (a *app) newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole catalog as a JSON document",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var doc *dump.Document
			err := a.withLibrary(func(lib types.Library) error {
				var err error
				doc, err = dump.Export(lib)
				return err
			})
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return dump.Write(cmd.OutOrStdout(), doc)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := dump.Write(f, doc); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
