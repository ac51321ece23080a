// Package testutil provides testing utilities for the Ninox connector.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/ninox-connector/pkg/ninox"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// TableBehavior tweaks how a mocked records endpoint pages its data.
type TableBehavior struct {
	// RepeatFirstPage serves page 0 for every page index.
	RepeatFirstPage bool

	// Endless serves full pages of fresh records forever.
	Endless bool

	// FailOnPage makes the request for that page index fail with
	// FailStatus. A negative value disables the failure.
	FailOnPage int
	FailStatus int
}

type mockTable struct {
	records  []ninox.Record
	behavior TableBehavior
}

// MockNinox is a configurable mock Ninox API server for testing. Records
// endpoints honor page, perPage, sinceSq and updated.
type MockNinox struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	tables   map[string]*mockTable

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	Queries           []url.Values
}

// NewMockNinox creates a new mock Ninox server.
func NewMockNinox() *MockNinox {
	mock := &MockNinox{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		tables:   make(map[string]*mockTable),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.Queries = append(mock.Queries, r.URL.Query())
		handler, exists := mock.handlers[r.URL.Path]
		table := mock.tables[r.URL.Path]
		mock.mu.Unlock()

		if r.Header.Get("Authorization") == "" {
			writeJSON(w, http.StatusUnauthorized, `{"message":"missing token"}`)
			return
		}

		switch {
		case exists:
			handler(w, r)
		case table != nil && r.Method == http.MethodGet:
			mock.serveRecords(w, r, table)
		default:
			writeJSON(w, http.StatusNotFound, `{"message":"not found"}`)
		}
	}))

	return mock
}

// URL returns the mock server URL, usable as the client base URL.
func (m *MockNinox) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockNinox) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockNinox) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.Queries = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockNinox) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockNinox) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetRecords serves records on the table's records endpoint. Records are
// returned in the given order unless the request sorts by update.
func (m *MockNinox) SetRecords(table ninox.TableRef, records []ninox.Record) {
	m.SetTable(table, records, TableBehavior{FailOnPage: -1})
}

// SetTable serves records with custom paging behavior.
func (m *MockNinox) SetTable(table ninox.TableRef, records []ninox.Record, behavior TableBehavior) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables["/"+table.RecordsPath()] = &mockTable{records: records, behavior: behavior}
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockNinox) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetQueries returns the query strings of all requests in order.
func (m *MockNinox) GetQueries() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.Values, len(m.Queries))
	copy(out, m.Queries)
	return out
}

func (m *MockNinox) serveRecords(w http.ResponseWriter, r *http.Request, table *mockTable) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, err := strconv.Atoi(q.Get("perPage"))
	if err != nil || perPage <= 0 {
		perPage = 100
	}

	b := table.behavior
	if b.FailOnPage >= 0 && page == b.FailOnPage && b.FailStatus != 0 {
		writeJSON(w, b.FailStatus, fmt.Sprintf(`{"message":"mock failure on page %d"}`, page))
		return
	}

	var out []ninox.Record
	switch {
	case b.Endless:
		out = make([]ninox.Record, perPage)
		for i := range out {
			id := page*perPage + i + 1
			out[i] = ninox.Record{ID: ninox.RecordID(strconv.Itoa(id)), Sequence: int64(id)}
		}
	default:
		if b.RepeatFirstPage {
			page = 0
		}
		out = pageOf(selectRecords(table.records, q), page, perPage)
	}

	body, err := json.Marshal(out)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, `{"message":"encode failure"}`)
		return
	}
	writeJSON(w, http.StatusOK, string(body))
}

// selectRecords applies sinceSq and the updated sort.
func selectRecords(records []ninox.Record, q url.Values) []ninox.Record {
	out := make([]ninox.Record, 0, len(records))
	since, _ := strconv.ParseInt(q.Get("sinceSq"), 10, 64)
	for _, rec := range records {
		if since > 0 && rec.Sequence <= since {
			continue
		}
		out = append(out, rec)
	}
	if strings.EqualFold(q.Get("updated"), "true") {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence > out[j].Sequence })
	}
	return out
}

func pageOf(records []ninox.Record, page, perPage int) []ninox.Record {
	start := page * perPage
	if start >= len(records) {
		return []ninox.Record{}
	}
	end := start + perPage
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// SequencedRecords builds records whose ids and sequences are the given
// numbers, each with a "Name" field.
func SequencedRecords(seqs ...int64) []ninox.Record {
	out := make([]ninox.Record, len(seqs))
	for i, s := range seqs {
		out[i] = ninox.Record{
			ID:       ninox.RecordID(strconv.FormatInt(s, 10)),
			Sequence: s,
			Fields:   map[string]any{"Name": fmt.Sprintf("record %d", s)},
		}
	}
	return out
}

// NewJSONResponse creates a 200 OK JSON response.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message": "Too many requests"}`,
		Headers: map[string]string{
			"Retry-After":  retryAfter,
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
