package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sternrassler/ninox-connector/pkg/ninox"
)

// Query runs a Ninox script against a database and returns the raw
// response body. Read-only scripts use GET, which the API executes without
// write access.
func (c *Client) Query(ctx context.Context, db ninox.DatabaseRef, script string, readOnly bool) ([]byte, error) {
	if err := db.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(script) == "" {
		return nil, fmt.Errorf("script is required")
	}

	r := request{op: "query", endpoint: db.QueryPath()}
	if readOnly {
		r.method = http.MethodGet
		r.query = url.Values{"query": {script}}
	} else {
		body, err := jsonBody(map[string]string{"query": script})
		if err != nil {
			return nil, err
		}
		r.method = http.MethodPost
		r.body = body
	}

	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read query response: %w", err)
	}
	return raw, nil
}
