package connector

import (
	"context"
	"testing"

	"github.com/Sternrassler/ninox-connector/internal/testutil"
	"github.com/Sternrassler/ninox-connector/pkg/ninox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tablesJSON = `[
	{"id":"A","name":"customers","fields":[{"id":"A","name":"Name","type":"text"},{"id":"B","name":"Since","type":"date"}]},
	{"id":"B","name":"Invoices","fields":[{"id":"A","name":"Total","type":"currency"}]}
]`

func TestSchemaDatabase(t *testing.T) {
	c, mock := newTestConnector(t, 10)
	mock.SetResponse("/"+table.DatabaseRef().DatabasePath(), testutil.NewJSONResponse(`{"settings":{"name":"CRM"},"schema":{"version":4}}`))

	items, err := c.Execute(context.Background(), "schema.database", tableParams(nil), Item{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{"name": "CRM"}, items[0].JSON["settings"])
}

func TestSchemaTables(t *testing.T) {
	c, mock := newTestConnector(t, 10)
	mock.SetResponse("/"+table.DatabaseRef().TablesPath(), testutil.NewJSONResponse(tablesJSON))

	items, err := c.Execute(context.Background(), "schema.tables", tableParams(nil), Item{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Invoices", items[1].JSON["name"])
}

func TestSchemaFields(t *testing.T) {
	c, mock := newTestConnector(t, 10)
	mock.SetResponse("/"+table.TablePath(), testutil.NewJSONResponse(
		`{"id":"A","name":"customers","fields":[{"id":"A","name":"Name","type":"text"},{"id":"B","name":"Since","type":"date"},{"id":"C","name":"Calls","type":"duration"}]}`))

	items, err := c.Execute(context.Background(), "schema.fields", tableParams(nil), Item{})
	require.NoError(t, err)
	require.Len(t, items, 3)

	kinds := make([]any, len(items))
	for i, it := range items {
		kinds[i] = it.JSON["type"]
	}
	assert.Equal(t, []any{string(ninox.KindString), string(ninox.KindDateTime), string(ninox.KindNumber)}, kinds)
	assert.Equal(t, "Name", items[0].JSON["displayName"])
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name   string
		action string
		params MapParams
		filter string
		want   []string
	}{
		{"teams unfiltered sorted", "search.teams", MapParams{}, "", []string{"alpha", "Beta", "gamma"}},
		{"teams by name", "search.teams", MapParams{}, "ET", []string{"Beta"}},
		{"teams by exact id", "search.teams", MapParams{}, "t3", []string{"gamma"}},
		{"databases", "search.databases", MapParams{"teamId": "t1"}, "", []string{"CRM", "hr"}},
		{"tables", "search.tables", MapParams{"teamId": "t1", "databaseId": "db1"}, "", []string{"customers", "Invoices"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock := newTestConnector(t, 10)
			mock.SetResponse("/teams", testutil.NewJSONResponse(`[{"id":"t2","name":"Beta"},{"id":"t3","name":"gamma"},{"id":"t1","name":"alpha"}]`))
			mock.SetResponse("/"+ninox.DatabasesPath("t1"), testutil.NewJSONResponse(`[{"id":"db2","name":"hr"},{"id":"db1","name":"CRM"}]`))
			mock.SetResponse("/"+table.DatabaseRef().TablesPath(), testutil.NewJSONResponse(tablesJSON))

			params := MapParams{}
			for k, v := range tt.params {
				params[k] = v
			}
			if tt.filter != "" {
				params["filter"] = tt.filter
			}

			items, err := c.Execute(context.Background(), tt.action, params, Item{})
			require.NoError(t, err)

			got := make([]string, len(items))
			for i, it := range items {
				got[i] = it.JSON["name"].(string)
				assert.NotEmpty(t, it.JSON["value"])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
