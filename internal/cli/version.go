package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/pkg/librarian"
)

const modulePath = "github.com/mesh-intelligence/librarian"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the librarian version",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "librarian v%s\nmodule: %s\n", librarian.Version, modulePath)
			return nil
		},
	}
}
