package main

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/ninox-connector/pkg/connector"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var (
		all        bool
		limit      int
		page       int
		filters    []string
		sinceSq    int64
		sortUpdate bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the records of a table as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filterMap, err := parseFilters(filters)
			if err != nil {
				return err
			}

			conn, err := a.connector(cmd.Context())
			if err != nil {
				return err
			}

			params := a.tableParams()
			params["returnAll"] = all
			params["limit"] = limit
			params["sinceSq"] = sinceSq
			params["sortUpdate"] = sortUpdate
			if cmd.Flags().Changed("page") {
				params["page"] = page
			}
			if len(filterMap) > 0 {
				params["filters"] = filterMap
			}

			items, err := conn.Execute(cmd.Context(), "record.list", params, connector.Item{})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), itemsJSON(items))
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "fetch every page instead of stopping at --limit")
	cmd.Flags().IntVar(&limit, "limit", connector.DefaultListLimit, "maximum number of records")
	cmd.Flags().IntVar(&page, "page", 0, "fetch only this page of --limit records")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "field=value equality filter (repeatable)")
	cmd.Flags().Int64Var(&sinceSq, "since-sq", 0, "only records changed after this sequence")
	cmd.Flags().BoolVar(&sortUpdate, "updated", false, "sort by last modification, newest first")

	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <record-id>",
		Short: "Read one record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.connector(cmd.Context())
			if err != nil {
				return err
			}

			params := a.tableParams()
			params["recordId"] = args[0]

			items, err := conn.Execute(cmd.Context(), "record.read", params, connector.Item{})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), itemsJSON(items)[0])
		},
	}
}

// parseFilters turns "field=value" pairs into a filter object.
func parseFilters(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid filter %q: want field=value", pair)
		}
		out[field] = value
	}
	return out, nil
}
