// Package ninox defines the data model of the Ninox REST API: records,
// table references, list query parameters and schema objects.
package ninox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RecordID identifies a record within a table. The API encodes it as a JSON
// number, but it is handled as an opaque string.
type RecordID string

// UnmarshalJSON accepts both numeric and string identifiers.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("record id: %w", err)
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

// MarshalJSON writes canonical integer identifiers as numbers so the API
// accepts them back unchanged. Anything else, "007" or "+5" included, stays a
// string.
func (id RecordID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// String implements fmt.Stringer.
func (id RecordID) String() string {
	return string(id)
}

// Reserved record attributes. Everything else lands in Record.Extra.
const (
	attrID         = "id"
	attrSequence   = "sequence"
	attrCreatedAt  = "createdAt"
	attrCreatedBy  = "createdBy"
	attrModifiedAt = "modifiedAt"
	attrModifiedBy = "modifiedBy"
	attrFields     = "fields"
)

// Record is a single table row as returned by the records endpoints.
type Record struct {
	// ID is unique within a table, not across tables.
	ID RecordID

	// Sequence is bumped by the server on every create or update.
	Sequence int64

	CreatedAt  string
	CreatedBy  string
	ModifiedAt string
	ModifiedBy string

	// Fields maps field names (or ids) to values.
	Fields map[string]any

	// Extra holds any other top-level attributes the API returned.
	Extra map[string]any
}

type recordWire struct {
	ID         RecordID       `json:"id"`
	Sequence   int64          `json:"sequence"`
	CreatedAt  string         `json:"createdAt,omitempty"`
	CreatedBy  string         `json:"createdBy,omitempty"`
	ModifiedAt string         `json:"modifiedAt,omitempty"`
	ModifiedBy string         `json:"modifiedBy,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// UnmarshalJSON decodes the reserved attributes and keeps unknown ones.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*r = Record{
		ID:         w.ID,
		Sequence:   w.Sequence,
		CreatedAt:  w.CreatedAt,
		CreatedBy:  w.CreatedBy,
		ModifiedAt: w.ModifiedAt,
		ModifiedBy: w.ModifiedBy,
		Fields:     w.Fields,
	}

	for key, raw := range all {
		switch key {
		case attrID, attrSequence, attrCreatedAt, attrCreatedBy, attrModifiedAt, attrModifiedBy, attrFields:
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("record attribute %q: %w", key, err)
		}
		if r.Extra == nil {
			r.Extra = make(map[string]any)
		}
		r.Extra[key] = v
	}

	return nil
}

// MarshalJSON writes the record back in the API's shape.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// Map flattens the record into a generic object, the form workflow hosts
// pass between steps.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.Extra)+7)
	for k, v := range r.Extra {
		out[k] = v
	}
	if r.ID != "" {
		out[attrID] = r.ID
	}
	out[attrSequence] = r.Sequence
	if r.CreatedAt != "" {
		out[attrCreatedAt] = r.CreatedAt
	}
	if r.CreatedBy != "" {
		out[attrCreatedBy] = r.CreatedBy
	}
	if r.ModifiedAt != "" {
		out[attrModifiedAt] = r.ModifiedAt
	}
	if r.ModifiedBy != "" {
		out[attrModifiedBy] = r.ModifiedBy
	}
	fields := r.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	out[attrFields] = fields
	return out
}

// RecordInput is the body element accepted by the save endpoint. A missing ID
// creates a record; a present ID updates it.
type RecordInput struct {
	ID     RecordID       `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

// FileInfo describes an attachment of a record.
type FileInfo struct {
	Name         string `json:"name"`
	ID           string `json:"id,omitempty"`
	Size         int64  `json:"size,omitempty"`
	ContentType  string `json:"contentType,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}
