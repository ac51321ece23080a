package connector

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Sternrassler/ninox-connector/pkg/ninox"
)

// Params gives access to the parameters the user configured on a step.
type Params interface {
	// Get returns the raw value and whether it was set.
	Get(name string) (any, bool)
}

// MapParams is a map-backed Params.
type MapParams map[string]any

// Get implements Params.
func (m MapParams) Get(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// ParamError reports a missing or invalid parameter.
type ParamError struct {
	Param  string
	Reason string
	Err    error
}

func (e *ParamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parameter %q: %s: %v", e.Param, e.Reason, e.Err)
	}
	return fmt.Sprintf("parameter %q: %s", e.Param, e.Reason)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// unwrapLocator accepts resource locator objects ({"mode": ..., "value": ...})
// in place of plain values.
func unwrapLocator(v any) any {
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["value"]; ok {
			return inner
		}
	}
	return v
}

func optString(p Params, name string) (string, error) {
	v, ok := p.Get(name)
	if !ok || v == nil {
		return "", nil
	}
	switch t := unwrapLocator(v).(type) {
	case string:
		return strings.TrimSpace(t), nil
	case fmt.Stringer:
		return strings.TrimSpace(t.String()), nil
	case float64, int, int64, json.Number:
		return fmt.Sprint(t), nil
	default:
		return "", &ParamError{Param: name, Reason: fmt.Sprintf("expected a string, got %T", v)}
	}
}

func requiredString(p Params, name string) (string, error) {
	s, err := optString(p, name)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", &ParamError{Param: name, Reason: "is required"}
	}
	return s, nil
}

func boolParam(p Params, name string, def bool) (bool, error) {
	v, ok := p.Get(name)
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		if t == "" {
			return def, nil
		}
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, &ParamError{Param: name, Reason: "expected a boolean", Err: err}
		}
		return b, nil
	default:
		return false, &ParamError{Param: name, Reason: fmt.Sprintf("expected a boolean, got %T", v)}
	}
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func intParam(p Params, name string, def int64) (int64, error) {
	v, ok := p.Get(name)
	if !ok || v == nil || v == "" {
		return def, nil
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, &ParamError{Param: name, Reason: fmt.Sprintf("expected an integer, got %v", v)}
	}
	return n, nil
}

func mapParam(p Params, name string) (map[string]any, error) {
	v, ok := p.Get(name)
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ParamError{Param: name, Reason: fmt.Sprintf("expected an object, got %T", v)}
	}
	return m, nil
}

func databaseRef(p Params) (ninox.DatabaseRef, error) {
	teamRaw, err := requiredString(p, "teamId")
	if err != nil {
		return ninox.DatabaseRef{}, err
	}
	team, err := ninox.ParseTeamLocator(teamRaw)
	if err != nil {
		return ninox.DatabaseRef{}, &ParamError{Param: "teamId", Reason: "invalid", Err: err}
	}

	dbRaw, err := requiredString(p, "databaseId")
	if err != nil {
		return ninox.DatabaseRef{}, err
	}
	db, err := ninox.ParseDatabaseLocator(dbRaw)
	if err != nil {
		return ninox.DatabaseRef{}, &ParamError{Param: "databaseId", Reason: "invalid", Err: err}
	}

	return ninox.DatabaseRef{Team: team, Database: db}, nil
}

func tableRef(p Params) (ninox.TableRef, error) {
	db, err := databaseRef(p)
	if err != nil {
		return ninox.TableRef{}, err
	}

	raw, err := requiredString(p, "tableId")
	if err != nil {
		return ninox.TableRef{}, err
	}
	table, err := ninox.ParseTableLocator(raw)
	if err != nil {
		return ninox.TableRef{}, &ParamError{Param: "tableId", Reason: "invalid", Err: err}
	}

	return db.Table(table), nil
}

func recordID(p Params) (ninox.RecordID, error) {
	id, err := requiredString(p, "recordId")
	if err != nil {
		return "", err
	}
	return ninox.RecordID(id), nil
}

// filtersParam accepts either an object of field → value or a list of
// {"fieldId": ..., "value": ...} entries.
func filtersParam(p Params) (map[string]any, error) {
	v, ok := p.Get("filters")
	if !ok || v == nil {
		return nil, nil
	}

	switch t := v.(type) {
	case map[string]any:
		if list, ok := t["filter"].([]any); ok {
			return filterList(list)
		}
		if len(t) == 0 {
			return nil, nil
		}
		return t, nil
	case []any:
		return filterList(t)
	default:
		return nil, &ParamError{Param: "filters", Reason: fmt.Sprintf("expected an object or list, got %T", v)}
	}
}

func filterList(list []any) (map[string]any, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, &ParamError{Param: "filters", Reason: fmt.Sprintf("entry %d is not an object", i)}
		}
		field, _ := m["fieldId"].(string)
		if field == "" {
			return nil, &ParamError{Param: "filters", Reason: fmt.Sprintf("entry %d has no fieldId", i)}
		}
		out[field] = m["value"]
	}
	return out, nil
}
