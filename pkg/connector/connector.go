// Package connector exposes the Ninox actions to a workflow host.
//
// The host supplies configured parameters (Params) and one input item per
// invocation; an action returns the output items. Every action is composed
// of a request builder, a sender and a response transformer, so parameter
// validation and response shaping are testable without the network.
package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Sternrassler/ninox-connector/pkg/client"
	"github.com/Sternrassler/ninox-connector/pkg/logging"
	"github.com/Sternrassler/ninox-connector/pkg/ninox"
	"github.com/Sternrassler/ninox-connector/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Name is the connector's registered name.
const Name = "ninox"

var (
	// ErrUnknownAction is returned by Execute for an unregistered action.
	ErrUnknownAction = errors.New("unknown action")

	// ErrNoFields is returned when "define below" mapping has no fields.
	ErrNoFields = errors.New("at least one value has to be added under 'Fields to Send'")

	// ErrRecordIDMismatch is returned when an update body targets another
	// record than the recordId parameter.
	ErrRecordIDMismatch = errors.New("the record id of the body does not match the recordId parameter")
)

var actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ninox_actions_total",
	Help: "Total connector action executions by action and outcome",
}, []string{"action", "outcome"})

// API is the part of the Ninox client the actions use. *client.Client
// implements it.
type API interface {
	pagination.PageFetcher

	GetRecord(ctx context.Context, table ninox.TableRef, id ninox.RecordID) (*ninox.Record, error)
	SaveRecords(ctx context.Context, table ninox.TableRef, inputs []ninox.RecordInput) ([]ninox.Record, error)
	DeleteRecord(ctx context.Context, table ninox.TableRef, id ninox.RecordID) error

	ListFiles(ctx context.Context, table ninox.TableRef, id ninox.RecordID) ([]ninox.FileInfo, error)
	DownloadFile(ctx context.Context, table ninox.TableRef, id ninox.RecordID, name string) (*client.File, error)
	UploadFile(ctx context.Context, table ninox.TableRef, id ninox.RecordID, up client.Upload) error
	DeleteFile(ctx context.Context, table ninox.TableRef, id ninox.RecordID, name string) error

	Query(ctx context.Context, db ninox.DatabaseRef, script string, readOnly bool) ([]byte, error)

	Teams(ctx context.Context) ([]ninox.Team, error)
	Databases(ctx context.Context, team string) ([]ninox.Database, error)
	DatabaseSchema(ctx context.Context, db ninox.DatabaseRef) (json.RawMessage, error)
	Tables(ctx context.Context, db ninox.DatabaseRef) ([]ninox.Table, error)
	Table(ctx context.Context, table ninox.TableRef) (*ninox.Table, error)
}

// Binary is a file carried by an item.
type Binary struct {
	FileName string
	MimeType string
	Data     []byte
}

// Item is one unit of data passed between workflow steps.
type Item struct {
	JSON   map[string]any
	Binary map[string]*Binary
}

// Action is one operation of the connector.
type Action struct {
	Name        string
	Description string

	exec func(ctx context.Context, c *Connector, p Params, item Item) ([]Item, error)
}

// newAction composes a typed request builder, sender and response
// transformer into an Action.
func newAction[Req, Resp any](
	name, description string,
	build func(p Params, item Item) (Req, error),
	send func(ctx context.Context, c *Connector, req Req) (Resp, error),
	transform func(ctx context.Context, c *Connector, req Req, resp Resp) ([]Item, error),
) Action {
	return Action{
		Name:        name,
		Description: description,
		exec: func(ctx context.Context, c *Connector, p Params, item Item) ([]Item, error) {
			req, err := build(p, item)
			if err != nil {
				return nil, err
			}
			resp, err := send(ctx, c, req)
			if err != nil {
				return nil, err
			}
			return transform(ctx, c, req, resp)
		},
	}
}

// Connector dispatches actions against one Ninox account.
type Connector struct {
	api     API
	pager   *pagination.Paginator
	actions map[string]Action
	logger  zerolog.Logger
}

// New creates a connector. A nil pager uses pagination.DefaultConfig.
func New(api API, pager *pagination.Paginator) *Connector {
	if pager == nil {
		pager = pagination.New(api, pagination.DefaultConfig())
	}

	c := &Connector{
		api:     api,
		pager:   pager,
		actions: make(map[string]Action),
		logger:  logging.NewLogger("connector"),
	}

	for _, group := range [][]Action{recordActions(), fileActions(), scriptActions(), schemaActions(), searchActions()} {
		for _, a := range group {
			c.actions[a.Name] = a
		}
	}

	return c
}

// Name returns the connector's registered name.
func (c *Connector) Name() string {
	return Name
}

// Actions returns all actions sorted by name.
func (c *Connector) Actions() []Action {
	out := make([]Action, 0, len(c.actions))
	for _, a := range c.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs one action for one input item.
func (c *Connector) Execute(ctx context.Context, action string, p Params, item Item) ([]Item, error) {
	a, ok := c.actions[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if p == nil {
		p = MapParams{}
	}

	start := time.Now()
	logger := logging.WithRun(c.logger).With().Str("action", action).Logger()

	items, err := a.exec(ctx, c, p, item)
	if err != nil {
		actionsTotal.WithLabelValues(action, "error").Inc()
		logger.Warn().Err(err).Dur("duration", time.Since(start)).Msg("Action failed")
		return nil, err
	}

	actionsTotal.WithLabelValues(action, "success").Inc()
	logger.Debug().Int("items", len(items)).Dur("duration", time.Since(start)).Msg("Action complete")
	return items, nil
}

// successItem is the output of actions whose API response carries no data.
func successItem() []Item {
	return []Item{{JSON: map[string]any{"success": true}}}
}

// toItem converts an API value into an item. Non-object values are wrapped
// under key.
func toItem(v any, key string) (Item, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Item{}, fmt.Errorf("encode item: %w", err)
	}
	return rawToItem(raw, key)
}

func rawToItem(raw []byte, key string) (Item, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		return Item{JSON: obj}, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Item{}, fmt.Errorf("decode item: %w", err)
	}
	return Item{JSON: map[string]any{key: v}}, nil
}

func recordItems(records []ninox.Record) []Item {
	items := make([]Item, len(records))
	for i, r := range records {
		items[i] = Item{JSON: r.Map()}
	}
	return items
}
