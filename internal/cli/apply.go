package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/plan"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func (a *app) newApplyCmd() *cobra.Command {
	var atomic bool
	cmd := &cobra.Command{
		Use:   "apply <plan.yaml>",
		Short: "Apply a migration plan",
		Long: `Apply runs the steps of a YAML migration plan in order. Each applied step is
recorded in the journal together with its changes, so running the same plan
again skips the steps that are already done. With --atomic (or "atomic: true"
in the plan) either every step is applied or none is.`,
		Args: args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			p, err := plan.Load(argv[0])
			if err != nil {
				return usageErr(err)
			}
			if atomic {
				p.Atomic = true
			}
			opts, err := a.reorgOptions()
			if err != nil {
				return err
			}

			var res *plan.Result
			err = a.withLibrary(func(lib types.Library) error {
				var err error
				res, err = plan.NewRunner(lib, a.log, opts...).Run(cmd.Context(), p)
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "plan %s: %d applied, %d already done\n", p.Name, res.Applied, res.Skipped)
				printMoved(w, "rewritten", res.Moved)
				if res.TOC != nil {
					printReport(w, *res.TOC)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&atomic, "atomic", false, "apply every step in one transaction")
	return cmd
}

func (a *app) newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the record of applied plan steps",
	}
	var planName string
	list := &cobra.Command{
		Use:   "list",
		Short: "List applied steps",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := types.Filter{}
			if planName != "" {
				filter[types.FilterPlan] = planName
			}
			var entries []*types.JournalEntry
			err := a.withLibrary(func(lib types.Library) error {
				tbl, err := lib.GetTable(types.TableJournal)
				if err != nil {
					return err
				}
				rows, err := tbl.Fetch(filter)
				if err != nil {
					return err
				}
				for _, row := range rows {
					entries = append(entries, row.(*types.JournalEntry))
				}
				return nil
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, entries, func(w io.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%s  %s #%d %s\n", e.AppliedAt.Format("2006-01-02 15:04:05"), e.Plan, e.Step, e.Op)
				}
			})
		},
	}
	list.Flags().StringVar(&planName, "plan", "", "only steps of this plan")
	cmd.AddCommand(list)
	return cmd
}
