package ninox

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ErrMissingReference is returned when a team, database or table id is empty.
var ErrMissingReference = errors.New("missing team, database or table id")

// DatabasesPath returns the database list endpoint path of a team.
func DatabasesPath(team string) string {
	return "teams/" + url.PathEscape(team) + "/databases"
}

// DatabaseRef addresses a database inside a team.
type DatabaseRef struct {
	Team     string
	Database string
}

// Validate reports whether both segments are present.
func (d DatabaseRef) Validate() error {
	if d.Team == "" || d.Database == "" {
		return fmt.Errorf("%w: team=%q database=%q", ErrMissingReference, d.Team, d.Database)
	}
	return nil
}

// DatabasePath returns the database endpoint path.
func (d DatabaseRef) DatabasePath() string {
	return DatabasesPath(d.Team) + "/" + url.PathEscape(d.Database)
}

// TablesPath returns the table list endpoint path.
func (d DatabaseRef) TablesPath() string {
	return d.DatabasePath() + "/tables"
}

// QueryPath returns the script endpoint path.
func (d DatabaseRef) QueryPath() string {
	return d.DatabasePath() + "/query"
}

// Table addresses a table of this database.
func (d DatabaseRef) Table(table string) TableRef {
	return TableRef{Team: d.Team, Database: d.Database, Table: table}
}

// TableRef addresses a table inside a database.
type TableRef struct {
	Team     string
	Database string
	Table    string
}

// DatabaseRef returns the parent database reference.
func (t TableRef) DatabaseRef() DatabaseRef {
	return DatabaseRef{Team: t.Team, Database: t.Database}
}

// Validate reports whether all three segments are present.
func (t TableRef) Validate() error {
	if t.Team == "" || t.Database == "" || t.Table == "" {
		return fmt.Errorf("%w: team=%q database=%q table=%q", ErrMissingReference, t.Team, t.Database, t.Table)
	}
	return nil
}

// String returns team/database/table.
func (t TableRef) String() string {
	return t.Team + "/" + t.Database + "/" + t.Table
}

// TablePath returns the table schema endpoint path.
func (t TableRef) TablePath() string {
	return t.DatabaseRef().TablesPath() + "/" + url.PathEscape(t.Table)
}

// RecordsPath returns the paged records collection path.
func (t TableRef) RecordsPath() string {
	return t.TablePath() + "/records"
}

// RecordPath returns the path of a single record.
func (t TableRef) RecordPath(id RecordID) string {
	return t.RecordsPath() + "/" + url.PathEscape(string(id))
}

// FilesPath returns the attachment collection path of a record.
func (t TableRef) FilesPath(id RecordID) string {
	return t.RecordPath(id) + "/files"
}

// FilePath returns the path of one attachment.
func (t TableRef) FilePath(id RecordID, name string) string {
	return t.FilesPath(id) + "/" + url.PathEscape(name)
}

// ListQuery holds the optional filters of a records listing.
// Zero values are omitted from the request.
type ListQuery struct {
	// Filters maps field ids or names to the value they must equal.
	Filters map[string]any

	// SinceID returns only records with a larger id.
	SinceID int64

	// SinceSequence returns only records created or modified after this
	// sequence number.
	SinceSequence int64

	// Order names a field to sort on; Desc flips the direction.
	Order string
	Desc  bool

	// NewestFirst sorts by creation, newest first.
	NewestFirst bool

	// Updated sorts by last modification, most recent first.
	Updated bool
}

// Values encodes the query for one page request.
func (q ListQuery) Values(page, perPage int) (url.Values, error) {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("perPage", strconv.Itoa(perPage))

	if len(q.Filters) > 0 {
		raw, err := json.Marshal(map[string]any{"fields": q.Filters})
		if err != nil {
			return nil, fmt.Errorf("encode filters: %w", err)
		}
		v.Set("filters", string(raw))
	}
	if q.SinceID > 0 {
		v.Set("sinceId", strconv.FormatInt(q.SinceID, 10))
	}
	if q.SinceSequence > 0 {
		v.Set("sinceSq", strconv.FormatInt(q.SinceSequence, 10))
	}
	if q.Order != "" {
		v.Set("order", q.Order)
		v.Set("desc", strconv.FormatBool(q.Desc))
	}
	if q.NewestFirst {
		v.Set("new", "true")
	}
	if q.Updated {
		v.Set("updated", "true")
	}

	return v, nil
}
