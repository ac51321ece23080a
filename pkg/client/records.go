package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Sternrassler/ninox-connector/pkg/ninox"
)

// FetchPage performs exactly one records request for the given page index
// and size. The result may be empty. Errors are returned unmodified and
// nothing is retried.
func (c *Client) FetchPage(ctx context.Context, table ninox.TableRef, page, perPage int, q ninox.ListQuery) ([]ninox.Record, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if page < 0 {
		return nil, fmt.Errorf("page must be >= 0 (got %d)", page)
	}
	if perPage <= 0 {
		return nil, fmt.Errorf("perPage must be > 0 (got %d)", perPage)
	}

	values, err := q.Values(page, perPage)
	if err != nil {
		return nil, err
	}

	var records []ninox.Record
	err = c.doJSON(ctx, request{
		op:       "records.list",
		method:   http.MethodGet,
		endpoint: table.RecordsPath(),
		query:    values,
	}, &records)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("table", table.String()).
		Int("page", page).
		Int("per_page", perPage).
		Int("records", len(records)).
		Msg("Fetched records page")

	return records, nil
}

// GetRecord fetches a single record.
func (c *Client) GetRecord(ctx context.Context, table ninox.TableRef, id ninox.RecordID) (*ninox.Record, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("record id is required")
	}

	var record ninox.Record
	err := c.doJSON(ctx, request{
		op:       "records.get",
		method:   http.MethodGet,
		endpoint: table.RecordPath(id),
	}, &record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SaveRecords creates records without an id and updates those with one.
// The API answers with the stored records in input order.
func (c *Client) SaveRecords(ctx context.Context, table ninox.TableRef, inputs []ninox.RecordInput) ([]ninox.Record, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	body, err := jsonBody(inputs)
	if err != nil {
		return nil, err
	}

	var saved []ninox.Record
	err = c.doJSON(ctx, request{
		op:       "records.save",
		method:   http.MethodPost,
		endpoint: table.RecordsPath(),
		body:     body,
	}, &saved)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// DeleteRecord removes a single record.
func (c *Client) DeleteRecord(ctx context.Context, table ninox.TableRef, id ninox.RecordID) error {
	if err := table.Validate(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("record id is required")
	}

	return c.doJSON(ctx, request{
		op:       "records.delete",
		method:   http.MethodDelete,
		endpoint: table.RecordPath(id),
	}, nil)
}
