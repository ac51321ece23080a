package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/ninox-connector/pkg/ninox"
)

// ErrNothingToSplit is returned when split-into-items finds no elements.
var ErrNothingToSplit = errors.New("script returned no items to split; check the script or disable \"Split Into Items\"")

type scriptRequest struct {
	db             ninox.DatabaseRef
	script         string
	readOnly       bool
	parseAsJSON    bool
	splitIntoItems bool
	fetchAsRecords bool
}

func scriptActions() []Action {
	return []Action{
		newAction("script.run", "Run a Ninox script against a database", buildScript, sendScript, transformScript),
	}
}

func buildScript(p Params, _ Item) (scriptRequest, error) {
	db, err := databaseRef(p)
	if err != nil {
		return scriptRequest{}, err
	}

	req := scriptRequest{db: db}
	if req.script, err = requiredString(p, "script"); err != nil {
		return scriptRequest{}, err
	}
	if req.readOnly, err = boolParam(p, "readOnlyQuery", false); err != nil {
		return scriptRequest{}, err
	}
	if req.parseAsJSON, err = boolParam(p, "parseAsJson", false); err != nil {
		return scriptRequest{}, err
	}
	if req.splitIntoItems, err = boolParam(p, "splitIntoItems", false); err != nil {
		return scriptRequest{}, err
	}
	if req.fetchAsRecords, err = boolParam(p, "fetchAsRecords", false); err != nil {
		return scriptRequest{}, err
	}
	if req.fetchAsRecords && !req.splitIntoItems {
		return scriptRequest{}, &ParamError{Param: "fetchAsRecords", Reason: "requires splitIntoItems"}
	}

	return req, nil
}

func sendScript(ctx context.Context, c *Connector, req scriptRequest) ([]byte, error) {
	return c.api.Query(ctx, req.db, req.script, req.readOnly)
}

func transformScript(ctx context.Context, c *Connector, req scriptRequest, raw []byte) ([]Item, error) {
	switch {
	case req.parseAsJSON:
		v, err := parseScriptJSON(raw)
		if err != nil {
			return nil, err
		}
		item, err := toItem(v, "result")
		if err != nil {
			return nil, err
		}
		return []Item{item}, nil

	case req.splitIntoItems:
		elems, err := splitScriptResult(decodeScriptResult(raw))
		if err != nil {
			return nil, err
		}
		if req.fetchAsRecords {
			return fetchRecords(ctx, c, req.db, elems)
		}
		items := make([]Item, 0, len(elems))
		for _, e := range elems {
			if obj, ok := e.(map[string]any); ok {
				items = append(items, Item{JSON: obj})
				continue
			}
			items = append(items, Item{JSON: map[string]any{"value": e}})
		}
		return items, nil

	default:
		v := decodeScriptResult(raw)
		item, err := toItem(v, "result")
		if err != nil {
			return nil, err
		}
		return []Item{item}, nil
	}
}

// decodeScriptResult returns the decoded JSON value, or the trimmed text
// when the response is not JSON.
func decodeScriptResult(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(bytes.TrimSpace(raw))
	}
	return v
}

// parseScriptJSON decodes the response; a JSON string holding JSON is decoded
// once more.
func parseScriptJSON(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to parse response as JSON: %w (response: %s)", err, preview(raw))
	}
	if s, ok := v.(string); ok {
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err != nil {
			return nil, fmt.Errorf("failed to parse response as JSON: %w (response: %s)", err, preview(raw))
		}
		v = inner
	}
	return v, nil
}

// splitScriptResult turns an array, a nested [[...]] array or a comma
// separated string into elements.
func splitScriptResult(v any) ([]any, error) {
	var elems []any
	switch t := v.(type) {
	case []any:
		elems = t
		if len(t) > 0 {
			if nested, ok := t[0].([]any); ok {
				elems = nested
			}
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				elems = append(elems, part)
			}
		}
	default:
		raw, _ := json.Marshal(v)
		return nil, fmt.Errorf("script did not return an array or string to split (got %T: %s); disable \"Split Into Items\"", v, preview(raw))
	}

	if len(elems) == 0 {
		return nil, ErrNothingToSplit
	}
	return elems, nil
}

// fetchRecords reads every record named by a qualified id such as "B78670".
// A failed read becomes an item carrying the error instead of failing the
// whole action.
func fetchRecords(ctx context.Context, c *Connector, db ninox.DatabaseRef, elems []any) ([]Item, error) {
	ids := make([]string, 0, len(elems))
	for _, e := range elems {
		if id := strings.TrimSpace(fmt.Sprint(e)); id != "" {
			ids = append(ids, id)
		}
	}
	if err := ninox.ValidateRecordIDs(ids); err != nil {
		return nil, fmt.Errorf("%w; disable \"Fetch As Records\" if the script does not return record ids", err)
	}

	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		table, recID, err := ninox.ParseQualifiedID(id)
		if err == nil {
			var rec *ninox.Record
			rec, err = c.api.GetRecord(ctx, db.Table(table), recID)
			if err == nil {
				items = append(items, Item{JSON: rec.Map()})
				continue
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn().Err(err).Str("record_id", id).Msg("Script record fetch failed")
		items = append(items, Item{JSON: map[string]any{
			"id":    id,
			"error": "failed to fetch record: " + err.Error(),
		}})
	}
	return items, nil
}

func preview(raw []byte) string {
	const previewLen = 200
	if len(raw) > previewLen {
		return string(raw[:previewLen]) + "..."
	}
	return string(raw)
}
