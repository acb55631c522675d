package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

var validTableNamesStr = strings.Join(types.StandardTableNames, ", ")

func (a *app) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Get an entity by ID",
		Long: `Get retrieves an entity from the specified table by its ID and prints it
as JSON.

Valid table names: ` + validTableNamesStr,
		Args: args(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			tableName, id := argv[0], argv[1]
			var entity any
			err := a.withLibrary(func(lib types.Library) error {
				tbl, err := lib.GetTable(tableName)
				if err != nil {
					return fmt.Errorf("unknown table %q (valid: %s): %w", tableName, validTableNamesStr, err)
				}
				if entity, err = tbl.Get(id); err != nil {
					return fmt.Errorf("entity %q in table %q: %w", id, tableName, err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), entity)
		},
	}
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <table> [key=value...]",
		Short: "List entities with optional filters",
		Long: `List queries entities from the specified table and prints them as JSON.

Filters are key=value pairs and are ANDed together. Path filters take JSON
arrays:

  librarian list categories 'path_prefix=["Talmud"]'
  librarian list indexes title=Berakhot
  librarian list journal plan=bavli-minor-tractates limit=10

Valid table names: ` + validTableNamesStr,
		Args: args(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			tableName := argv[0]
			filter, err := parseFilter(argv[1:])
			if err != nil {
				return err
			}

			var entities []any
			err = a.withLibrary(func(lib types.Library) error {
				tbl, err := lib.GetTable(tableName)
				if err != nil {
					return fmt.Errorf("unknown table %q (valid: %s): %w", tableName, validTableNamesStr, err)
				}
				entities, err = tbl.Fetch(filter)
				return err
			})
			if err != nil {
				return err
			}
			if entities == nil {
				entities = []any{}
			}
			return writeJSON(cmd.OutOrStdout(), entities)
		},
	}
}

// parseFilter turns key=value arguments into a Filter. Values starting with
// "[" are decoded as JSON arrays, limit and offset as integers, and anything
// else is kept as a string.
func parseFilter(argv []string) (types.Filter, error) {
	filter := types.Filter{}
	for _, arg := range argv {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, usageErr(fmt.Errorf("invalid filter %q (expected key=value)", arg))
		}
		switch {
		case strings.HasPrefix(value, "["):
			var arr []any
			if err := json.Unmarshal([]byte(value), &arr); err != nil {
				return nil, usageErr(fmt.Errorf("invalid filter %q: %w", arg, err))
			}
			filter[key] = arr
		case key == types.FilterLimit || key == types.FilterOffset:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, usageErr(fmt.Errorf("invalid filter %q: not a number", arg))
			}
			filter[key] = n
		default:
			filter[key] = value
		}
	}
	return filter, nil
}
