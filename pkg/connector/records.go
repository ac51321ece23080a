package connector

import (
	"context"
	"fmt"

	"github.com/Sternrassler/ninox-connector/pkg/client"
	"github.com/Sternrassler/ninox-connector/pkg/ninox"
	"github.com/Sternrassler/ninox-connector/pkg/pagination"
)

// Field mapping modes of create and update.
const (
	MappingDefineBelow = "defineBelow"
	MappingAutoMap     = "autoMapInputData"
)

// DefaultListLimit is the number of records returned when returnAll is off
// and no limit is configured.
const DefaultListLimit = 50

type listRequest struct {
	table ninox.TableRef
	query ninox.ListQuery
	limit int

	// page, when set, fetches exactly one page of limit records.
	page *int
}

type recordRequest struct {
	table ninox.TableRef
	id    ninox.RecordID
}

type saveRequest struct {
	table  ninox.TableRef
	input  ninox.RecordInput
	upsert bool
}

func recordActions() []Action {
	return []Action{
		newAction("record.list", "List the records of a table", buildList, sendList, transformList),
		newAction("record.read", "Read one record", buildRecord, sendRead, transformRead),
		newAction("record.create", "Create a record", buildCreate, sendSave, transformSave),
		newAction("record.update", "Update a record", buildUpdate, sendSave, transformSave),
		newAction("record.delete", "Delete a record", buildRecord, sendDelete, transformSuccess[recordRequest, struct{}]),
	}
}

func buildList(p Params, _ Item) (listRequest, error) {
	table, err := tableRef(p)
	if err != nil {
		return listRequest{}, err
	}

	returnAll, err := boolParam(p, "returnAll", false)
	if err != nil {
		return listRequest{}, err
	}

	req := listRequest{table: table}
	if !returnAll {
		limit, err := intParam(p, "limit", DefaultListLimit)
		if err != nil {
			return listRequest{}, err
		}
		if limit < 1 {
			return listRequest{}, &ParamError{Param: "limit", Reason: fmt.Sprintf("must be >= 1 (got %d)", limit)}
		}
		req.limit = int(limit)

		if v, ok := p.Get("page"); ok && v != nil && v != "" {
			page, err := intParam(p, "page", 0)
			if err != nil {
				return listRequest{}, err
			}
			if page < 0 {
				return listRequest{}, &ParamError{Param: "page", Reason: fmt.Sprintf("must be >= 0 (got %d)", page)}
			}
			n := int(page)
			req.page = &n
		}
	}

	if req.query.Filters, err = filtersParam(p); err != nil {
		return listRequest{}, err
	}
	if req.query.SinceID, err = intParam(p, "sinceId", 0); err != nil {
		return listRequest{}, err
	}
	if req.query.SinceSequence, err = intParam(p, "sinceSq", 0); err != nil {
		return listRequest{}, err
	}
	if req.query.Order, err = optString(p, "order"); err != nil {
		return listRequest{}, err
	}
	if req.query.Desc, err = boolParam(p, "desc", false); err != nil {
		return listRequest{}, err
	}
	if req.query.NewestFirst, err = boolParam(p, "sortNew", false); err != nil {
		return listRequest{}, err
	}
	if req.query.Updated, err = boolParam(p, "sortUpdate", false); err != nil {
		return listRequest{}, err
	}

	return req, nil
}

func sendList(ctx context.Context, c *Connector, req listRequest) (*pagination.Result, error) {
	if req.page != nil {
		return fetchSinglePage(ctx, c, req)
	}
	return c.pager.Collect(ctx, req.table, req.query, req.limit)
}

// fetchSinglePage requests one page sized by the limit, bypassing the
// paginator.
func fetchSinglePage(ctx context.Context, c *Connector, req listRequest) (*pagination.Result, error) {
	records, err := c.api.FetchPage(ctx, req.table, *req.page, req.limit, req.query)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d of %s: %w", *req.page, req.table, err)
	}

	res := &pagination.Result{Records: records, Pages: 1, StopReason: pagination.StopLimit}
	switch {
	case len(records) == 0:
		res.StopReason = pagination.StopEnd
	case len(records) < req.limit:
		res.StopReason = pagination.StopShortPage
	}
	return res, nil
}

func transformList(_ context.Context, c *Connector, req listRequest, res *pagination.Result) ([]Item, error) {
	if res.Truncated() {
		c.logger.Warn().
			Str("table", req.table.String()).
			Str("stop_reason", string(res.StopReason)).
			Int("records", len(res.Records)).
			Msg("Listing truncated")
	}
	return recordItems(res.Records), nil
}

func buildRecord(p Params, _ Item) (recordRequest, error) {
	table, err := tableRef(p)
	if err != nil {
		return recordRequest{}, err
	}
	id, err := recordID(p)
	if err != nil {
		return recordRequest{}, err
	}
	return recordRequest{table: table, id: id}, nil
}

func sendRead(ctx context.Context, c *Connector, req recordRequest) (*ninox.Record, error) {
	return c.api.GetRecord(ctx, req.table, req.id)
}

func transformRead(_ context.Context, _ *Connector, _ recordRequest, rec *ninox.Record) ([]Item, error) {
	return []Item{{JSON: rec.Map()}}, nil
}

func sendDelete(ctx context.Context, c *Connector, req recordRequest) (struct{}, error) {
	return struct{}{}, c.api.DeleteRecord(ctx, req.table, req.id)
}

func transformSuccess[Req, Resp any](context.Context, *Connector, Req, Resp) ([]Item, error) {
	return successItem(), nil
}

// mappedFields returns the fields to send: the configured ones in
// define-below mode, otherwise the input item.
func mappedFields(p Params, item Item) (fields map[string]any, envelope bool, err error) {
	mode, err := optString(p, "mappingMode")
	if err != nil {
		return nil, false, err
	}

	switch mode {
	case MappingDefineBelow:
		fields, err := mapParam(p, "fields")
		if err != nil {
			return nil, false, err
		}
		if len(fields) == 0 {
			return nil, false, ErrNoFields
		}
		return fields, false, nil
	case "", MappingAutoMap:
		if inner, ok := item.JSON["fields"].(map[string]any); ok {
			return inner, true, nil
		}
		fields := make(map[string]any, len(item.JSON))
		for k, v := range item.JSON {
			if k == "id" {
				continue
			}
			fields[k] = v
		}
		return fields, false, nil
	default:
		return nil, false, &ParamError{Param: "mappingMode", Reason: fmt.Sprintf("unknown mode %q", mode)}
	}
}

func buildCreate(p Params, item Item) (saveRequest, error) {
	table, err := tableRef(p)
	if err != nil {
		return saveRequest{}, err
	}
	fields, _, err := mappedFields(p, item)
	if err != nil {
		return saveRequest{}, err
	}
	// No id: the API creates a record.
	return saveRequest{table: table, input: ninox.RecordInput{Fields: fields}}, nil
}

func buildUpdate(p Params, item Item) (saveRequest, error) {
	table, err := tableRef(p)
	if err != nil {
		return saveRequest{}, err
	}
	id, err := recordID(p)
	if err != nil {
		return saveRequest{}, err
	}
	upsert, err := boolParam(p, "upsert", false)
	if err != nil {
		return saveRequest{}, err
	}
	fields, envelope, err := mappedFields(p, item)
	if err != nil {
		return saveRequest{}, err
	}

	bodyID := id
	if envelope {
		if raw, ok := item.JSON["id"]; ok && raw != nil {
			bodyID = ninox.RecordID(fmt.Sprint(raw))
		}
	}
	if bodyID != id {
		return saveRequest{}, fmt.Errorf("%w: body id %q, recordId %q", ErrRecordIDMismatch, bodyID, id)
	}

	return saveRequest{table: table, input: ninox.RecordInput{ID: id, Fields: fields}, upsert: upsert}, nil
}

func sendSave(ctx context.Context, c *Connector, req saveRequest) ([]ninox.Record, error) {
	// Saving with an id creates the record when it is missing, so a plain
	// update checks for it first.
	if req.input.ID != "" && !req.upsert {
		if _, err := c.api.GetRecord(ctx, req.table, req.input.ID); err != nil {
			if client.IsNotFound(err) {
				return nil, fmt.Errorf("record %s does not exist in %s (enable upsert to create it): %w", req.input.ID, req.table, err)
			}
			return nil, err
		}
	}
	return c.api.SaveRecords(ctx, req.table, []ninox.RecordInput{req.input})
}

func transformSave(_ context.Context, _ *Connector, _ saveRequest, saved []ninox.Record) ([]Item, error) {
	return recordItems(saved), nil
}
