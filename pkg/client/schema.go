package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/ninox-connector/pkg/ninox"
)

// Teams lists the workspaces the token can access.
func (c *Client) Teams(ctx context.Context) ([]ninox.Team, error) {
	var teams []ninox.Team
	if err := c.getCachedJSON(ctx, "schema.teams", "teams", &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// Databases lists the databases of a team.
func (c *Client) Databases(ctx context.Context, team string) ([]ninox.Database, error) {
	if team == "" {
		return nil, fmt.Errorf("%w: team=%q", ninox.ErrMissingReference, team)
	}

	var dbs []ninox.Database
	if err := c.getCachedJSON(ctx, "schema.databases", ninox.DatabasesPath(team), &dbs); err != nil {
		return nil, err
	}
	return dbs, nil
}

// DatabaseSchema returns the raw schema document of a database.
func (c *Client) DatabaseSchema(ctx context.Context, db ninox.DatabaseRef) (json.RawMessage, error) {
	if err := db.Validate(); err != nil {
		return nil, err
	}

	var schema json.RawMessage
	if err := c.getCachedJSON(ctx, "schema.database", db.DatabasePath(), &schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// Tables lists the tables of a database with their fields.
func (c *Client) Tables(ctx context.Context, db ninox.DatabaseRef) ([]ninox.Table, error) {
	if err := db.Validate(); err != nil {
		return nil, err
	}

	var tables []ninox.Table
	if err := c.getCachedJSON(ctx, "schema.tables", db.TablesPath(), &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// Table returns the schema of one table.
func (c *Client) Table(ctx context.Context, table ninox.TableRef) (*ninox.Table, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	var t ninox.Table
	if err := c.getCachedJSON(ctx, "schema.table", table.TablePath(), &t); err != nil {
		return nil, err
	}
	return &t, nil
}
