package connector

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/Sternrassler/ninox-connector/pkg/ninox"
)

func schemaActions() []Action {
	return []Action{
		newAction("schema.database", "Get the schema of a database", buildDatabase, sendDatabaseSchema, transformRaw),
		newAction("schema.tables", "Get the schema of all tables", buildDatabase, sendTables, transformTables),
		newAction("schema.table", "Get the schema of one table", buildTable, sendTable, transformTable),
		newAction("schema.fields", "List the fields of a table with their value kinds", buildTable, sendTable, transformFields),
	}
}

func buildDatabase(p Params, _ Item) (ninox.DatabaseRef, error) {
	return databaseRef(p)
}

func buildTable(p Params, _ Item) (ninox.TableRef, error) {
	return tableRef(p)
}

func sendDatabaseSchema(ctx context.Context, c *Connector, db ninox.DatabaseRef) (json.RawMessage, error) {
	return c.api.DatabaseSchema(ctx, db)
}

func transformRaw(_ context.Context, _ *Connector, _ ninox.DatabaseRef, raw json.RawMessage) ([]Item, error) {
	item, err := rawToItem(raw, "schema")
	if err != nil {
		return nil, err
	}
	return []Item{item}, nil
}

func sendTables(ctx context.Context, c *Connector, db ninox.DatabaseRef) ([]ninox.Table, error) {
	return c.api.Tables(ctx, db)
}

func transformTables(_ context.Context, _ *Connector, _ ninox.DatabaseRef, tables []ninox.Table) ([]Item, error) {
	items := make([]Item, 0, len(tables))
	for _, t := range tables {
		item, err := toItem(t, "table")
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func sendTable(ctx context.Context, c *Connector, table ninox.TableRef) (*ninox.Table, error) {
	return c.api.Table(ctx, table)
}

func transformTable(_ context.Context, _ *Connector, _ ninox.TableRef, t *ninox.Table) ([]Item, error) {
	item, err := toItem(t, "table")
	if err != nil {
		return nil, err
	}
	return []Item{item}, nil
}

func transformFields(_ context.Context, _ *Connector, _ ninox.TableRef, t *ninox.Table) ([]Item, error) {
	fields := ninox.MapFields(t.Fields)
	items := make([]Item, 0, len(fields))
	for _, f := range fields {
		item, err := toItem(f, "field")
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// searchRequest lists one level of the team → database → table hierarchy.
type searchRequest struct {
	team   string
	db     ninox.DatabaseRef
	filter string
}

// searchResult is a named id, as shown in resource pickers.
type searchResult struct {
	Name  string
	Value string
}

func searchActions() []Action {
	return []Action{
		newAction("search.teams", "Search teams by name or id", buildSearch(false, false), sendSearchTeams, transformSearch),
		newAction("search.databases", "Search the databases of a team", buildSearch(true, false), sendSearchDatabases, transformSearch),
		newAction("search.tables", "Search the tables of a database", buildSearch(true, true), sendSearchTables, transformSearch),
	}
}

func buildSearch(needTeam, needDatabase bool) func(Params, Item) (searchRequest, error) {
	return func(p Params, _ Item) (searchRequest, error) {
		var req searchRequest
		var err error

		switch {
		case needDatabase:
			if req.db, err = databaseRef(p); err != nil {
				return searchRequest{}, err
			}
		case needTeam:
			raw, err := requiredString(p, "teamId")
			if err != nil {
				return searchRequest{}, err
			}
			if req.team, err = ninox.ParseTeamLocator(raw); err != nil {
				return searchRequest{}, &ParamError{Param: "teamId", Reason: "invalid", Err: err}
			}
		}

		if req.filter, err = optString(p, "filter"); err != nil {
			return searchRequest{}, err
		}
		return req, nil
	}
}

func sendSearchTeams(ctx context.Context, c *Connector, _ searchRequest) ([]searchResult, error) {
	teams, err := c.api.Teams(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]searchResult, len(teams))
	for i, t := range teams {
		out[i] = searchResult{Name: t.Name, Value: t.ID}
	}
	return out, nil
}

func sendSearchDatabases(ctx context.Context, c *Connector, req searchRequest) ([]searchResult, error) {
	dbs, err := c.api.Databases(ctx, req.team)
	if err != nil {
		return nil, err
	}
	out := make([]searchResult, len(dbs))
	for i, d := range dbs {
		out[i] = searchResult{Name: d.Name, Value: d.ID}
	}
	return out, nil
}

func sendSearchTables(ctx context.Context, c *Connector, req searchRequest) ([]searchResult, error) {
	tables, err := c.api.Tables(ctx, req.db)
	if err != nil {
		return nil, err
	}
	out := make([]searchResult, len(tables))
	for i, t := range tables {
		out[i] = searchResult{Name: t.Name, Value: t.ID}
	}
	return out, nil
}

// transformSearch keeps entries whose name contains the filter
// (case-insensitive) or whose id equals it, sorted by lower-case name.
func transformSearch(_ context.Context, _ *Connector, req searchRequest, results []searchResult) ([]Item, error) {
	needle := strings.ToLower(req.filter)
	kept := results[:0:0]
	for _, r := range results {
		if needle == "" || strings.Contains(strings.ToLower(r.Name), needle) || r.Value == req.filter {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return strings.ToLower(kept[i].Name) < strings.ToLower(kept[j].Name)
	})

	items := make([]Item, len(kept))
	for i, r := range kept {
		items[i] = Item{JSON: map[string]any{"name": r.Name, "value": r.Value}}
	}
	return items, nil
}
