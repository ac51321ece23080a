package main

import (
	"fmt"

	"github.com/Sternrassler/ninox-connector/pkg/connector"
	"github.com/spf13/cobra"
)

func newScriptCmd(a *app) *cobra.Command {
	var readOnly, parseJSON, split, fetch bool

	cmd := &cobra.Command{
		Use:   "script <ninox-script>",
		Short: "Run a Ninox script against the configured database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.connector(cmd.Context())
			if err != nil {
				return err
			}

			params := connector.MapParams{
				"teamId":         a.cfg.Team,
				"databaseId":     a.cfg.Database,
				"script":         args[0],
				"readOnlyQuery":  readOnly,
				"parseAsJson":    parseJSON,
				"splitIntoItems": split,
				"fetchAsRecords": fetch,
			}

			items, err := conn.Execute(cmd.Context(), "script.run", params, connector.Item{})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), itemsJSON(items))
		},
	}

	cmd.Flags().BoolVar(&readOnly, "read-only", false, "run as a read-only query (GET)")
	cmd.Flags().BoolVar(&parseJSON, "json", false, "parse the script result as JSON")
	cmd.Flags().BoolVar(&split, "split", false, "emit one item per array element")
	cmd.Flags().BoolVar(&fetch, "fetch", false, "treat split elements as record ids and fetch them")

	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "schema [database|tables|table|fields]",
		Short:     "Print schema information",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"database", "tables", "table", "fields"},
		RunE: func(cmd *cobra.Command, args []string) error {
			what := "tables"
			if len(args) == 1 {
				what = args[0]
			}

			conn, err := a.connector(cmd.Context())
			if err != nil {
				return err
			}

			items, err := conn.Execute(cmd.Context(), fmt.Sprintf("schema.%s", what), a.tableParams(), connector.Item{})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), itemsJSON(items))
		},
	}
}
