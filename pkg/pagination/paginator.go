package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/ninox-connector/pkg/ninox"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Defaults for the records endpoint.
const (
	DefaultPerPage  = 500
	DefaultMaxPages = 100
)

// StopReason tells why a pagination run ended.
type StopReason string

const (
	StopEnd           StopReason = "end"
	StopShortPage     StopReason = "short_page"
	StopLimit         StopReason = "limit"
	StopDuplicatePage StopReason = "duplicate_page"
	StopMaxPages      StopReason = "max_pages"
)

var (
	pagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ninox_pagination_pages_total",
		Help: "Total record pages fetched by the paginator",
	})

	truncationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ninox_pagination_truncations_total",
		Help: "Pagination runs cut short by a repeated page or the page ceiling",
	}, []string{"reason"})
)

// Config holds paginator configuration.
type Config struct {
	// PerPage is the page size requested from the API.
	PerPage int

	// MaxPages caps the number of page fetches per run.
	MaxPages int

	// Timeout per page fetch. Zero relies on the caller's context only.
	Timeout time.Duration
}

// DefaultConfig returns the limits used against the public API.
func DefaultConfig() Config {
	return Config{
		PerPage:  DefaultPerPage,
		MaxPages: DefaultMaxPages,
	}
}

// PageFetcher performs one records request. *client.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, table ninox.TableRef, page, perPage int, q ninox.ListQuery) ([]ninox.Record, error)
}

// Result is the outcome of one pagination run.
type Result struct {
	Records    []ninox.Record
	Pages      int
	StopReason StopReason
}

// Truncated reports whether the run stopped before the data was exhausted
// for a reason other than the caller's limit.
func (r *Result) Truncated() bool {
	return r.StopReason == StopDuplicatePage || r.StopReason == StopMaxPages
}

// Paginator drives a PageFetcher. It holds no per-run state and is safe for
// concurrent use.
type Paginator struct {
	fetcher PageFetcher
	config  Config
}

// New creates a paginator. Non-positive config values fall back to the
// defaults.
func New(fetcher PageFetcher, config Config) *Paginator {
	if config.PerPage <= 0 {
		config.PerPage = DefaultPerPage
	}
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultMaxPages
	}

	return &Paginator{
		fetcher: fetcher,
		config:  config,
	}
}

// Config returns the effective configuration.
func (p *Paginator) Config() Config {
	return p.config
}

// All returns every record, bounded only by the safety ceiling.
func (p *Paginator) All(ctx context.Context, table ninox.TableRef, q ninox.ListQuery) (*Result, error) {
	return p.Collect(ctx, table, q, 0)
}

// First returns at most n records.
func (p *Paginator) First(ctx context.Context, table ninox.TableRef, q ninox.ListQuery, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("limit must be > 0 (got %d)", n)
	}
	return p.Collect(ctx, table, q, n)
}

// Collect fetches pages in order until the data ends, limit records are
// gathered (limit <= 0 means no limit), a page repeats or MaxPages is hit.
// A fetch error aborts the run and nothing is returned.
func (p *Paginator) Collect(ctx context.Context, table ninox.TableRef, q ninox.ListQuery, limit int) (*Result, error) {
	start := time.Now()
	res := &Result{}
	seen := make(map[ninox.RecordID]struct{})

	logger := log.With().
		Str("component", "paginator").
		Str("table", table.String()).
		Logger()

	res.StopReason = StopMaxPages
	for page := 0; res.Pages < p.config.MaxPages; page++ {
		records, err := p.fetch(ctx, table, page, q)
		if err != nil {
			logger.Warn().Err(err).Int("page", page).Int("records", len(res.Records)).Msg("Page fetch failed - aborting")
			return nil, fmt.Errorf("fetch page %d of %s: %w", page, table, err)
		}
		res.Pages++
		pagesTotal.Inc()

		if len(records) == 0 {
			res.StopReason = StopEnd
			break
		}

		// Only the first id is compared; a repeat means the API served a
		// page that was already consumed. Records without an id never match.
		if first := records[0].ID; first != "" {
			if _, dup := seen[first]; dup {
				res.StopReason = StopDuplicatePage
				break
			}
		}

		full := false
		for _, rec := range records {
			if rec.ID != "" {
				seen[rec.ID] = struct{}{}
			}
			res.Records = append(res.Records, rec)
			if limit > 0 && len(res.Records) >= limit {
				full = true
				break
			}
		}
		if full {
			res.StopReason = StopLimit
			break
		}

		if len(records) < p.config.PerPage {
			res.StopReason = StopShortPage
			break
		}
	}

	if res.Truncated() {
		truncationsTotal.WithLabelValues(string(res.StopReason)).Inc()
		logger.Warn().
			Str("stop_reason", string(res.StopReason)).
			Int("pages", res.Pages).
			Int("records", len(res.Records)).
			Msg("Pagination truncated - result may be incomplete")
	}

	logger.Debug().
		Str("stop_reason", string(res.StopReason)).
		Int("pages", res.Pages).
		Int("records", len(res.Records)).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")

	return res, nil
}

func (p *Paginator) fetch(ctx context.Context, table ninox.TableRef, page int, q ninox.ListQuery) ([]ninox.Record, error) {
	if p.config.Timeout <= 0 {
		return p.fetcher.FetchPage(ctx, table, page, p.config.PerPage, q)
	}
	pageCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()
	return p.fetcher.FetchPage(pageCtx, table, page, p.config.PerPage, q)
}
