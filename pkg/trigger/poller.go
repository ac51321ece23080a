// Package trigger implements the change-poll fetcher behind the Ninox
// polling trigger. Each poll returns the records created or modified since
// the stored watermark and advances the watermark to the newest of them.
//
// A trigger polled for the first time does not replay history: it probes
// the most recently changed record, stores its sequence and emits nothing.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/ninox-connector/pkg/logging"
	"github.com/Sternrassler/ninox-connector/pkg/ninox"
	"github.com/Sternrassler/ninox-connector/pkg/pagination"
	"github.com/Sternrassler/ninox-connector/pkg/watermark"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Mode is the host's execution mode of a poll.
type Mode string

const (
	// ModeScheduled is a regular poll driven by the host's scheduler.
	ModeScheduled Mode = "scheduled"

	// ModeManual is a user-initiated test run; it probes one record.
	ModeManual Mode = "manual"
)

var (
	pollRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ninox_poll_records_total",
		Help: "Total records emitted by polls by mode",
	}, []string{"mode"})

	pollWatermark = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ninox_poll_watermark",
		Help: "Last stored poll watermark by table",
	}, []string{"table"})

	pollErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ninox_poll_errors_total",
		Help: "Total failed polls by mode",
	}, []string{"mode"})
)

// PollRequest identifies one poll of one trigger instance.
type PollRequest struct {
	// Key is the watermark key of the trigger instance (see watermark.Key).
	// Empty derives it from Table.
	Key   string
	Table ninox.TableRef
	Mode  Mode
}

// PollResult is the outcome of a successful poll.
type PollResult struct {
	// Records to emit. Nil means nothing new.
	Records []ninox.Record

	// Watermark is the stored value after the poll.
	Watermark int64

	// Bootstrapped is set when this poll primed an uninitialized trigger.
	Bootstrapped bool

	// Truncated is set when pagination stopped early (see
	// pagination.Result.Truncated).
	Truncated bool
}

// Poller fetches changed records for polling triggers.
type Poller struct {
	fetcher pagination.PageFetcher
	pager   *pagination.Paginator
	store   watermark.Store
	logger  zerolog.Logger
}

// NewPoller creates a poller. The paginator must wrap the same fetcher.
func NewPoller(fetcher pagination.PageFetcher, pager *pagination.Paginator, store watermark.Store) *Poller {
	return &Poller{
		fetcher: fetcher,
		pager:   pager,
		store:   store,
		logger:  logging.NewLogger("poller"),
	}
}

// Poll runs one poll. On error the watermark is left untouched, so the next
// poll starts from the same point.
func (p *Poller) Poll(ctx context.Context, req PollRequest) (*PollResult, error) {
	if err := req.Table.Validate(); err != nil {
		return nil, err
	}
	if req.Mode == "" {
		req.Mode = ModeScheduled
	}
	if req.Key == "" {
		req.Key = watermark.Key(req.Table, "")
	}

	start := time.Now()
	logger := logging.WithRun(p.logger).With().
		Str("table", req.Table.String()).
		Str("mode", string(req.Mode)).
		Logger()

	res, err := p.poll(ctx, req, logger)
	if err != nil {
		pollErrorsTotal.WithLabelValues(string(req.Mode)).Inc()
		logger.Error().Err(err).Msg("Poll failed")
		return nil, err
	}

	pollRecordsTotal.WithLabelValues(string(req.Mode)).Add(float64(len(res.Records)))
	pollWatermark.WithLabelValues(req.Table.String()).Set(float64(res.Watermark))

	logger.Info().
		Int("records", len(res.Records)).
		Int64("watermark", res.Watermark).
		Bool("bootstrapped", res.Bootstrapped).
		Bool("truncated", res.Truncated).
		Dur("duration", time.Since(start)).
		Msg("Poll complete")

	return res, nil
}

func (p *Poller) poll(ctx context.Context, req PollRequest, logger zerolog.Logger) (*PollResult, error) {
	current, err := p.store.Get(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("read watermark: %w", err)
	}

	var (
		records   []ninox.Record
		truncated bool
		bootstrap = current == 0 && req.Mode != ModeManual
	)

	switch {
	case req.Mode == ModeManual || bootstrap:
		records, err = p.probe(ctx, req.Table)
		if err != nil {
			return nil, err
		}
	default:
		page, err := p.pager.All(ctx, req.Table, ninox.ListQuery{Updated: true, SinceSequence: current})
		if err != nil {
			return nil, err
		}
		records, truncated = page.Records, page.Truncated()
	}

	res := &PollResult{Watermark: current, Bootstrapped: bootstrap, Truncated: truncated}

	if len(records) > 0 {
		// Sorted by modification, newest first.
		next := records[0].Sequence
		if err := p.store.Set(ctx, req.Key, next); err != nil {
			return nil, fmt.Errorf("store watermark: %w", err)
		}
		res.Watermark = next
		logger.Debug().Int64("previous", current).Int64("watermark", next).Msg("Watermark advanced")
	}

	if bootstrap {
		logger.Info().Int64("watermark", res.Watermark).Msg("Trigger primed - existing records are not emitted")
		return res, nil
	}

	if len(records) > 0 {
		res.Records = records
	}
	return res, nil
}

// probe fetches the single most recently changed record.
func (p *Poller) probe(ctx context.Context, table ninox.TableRef) ([]ninox.Record, error) {
	records, err := p.fetcher.FetchPage(ctx, table, 0, 1, ninox.ListQuery{Updated: true})
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", table, err)
	}
	if len(records) > 1 {
		records = records[:1]
	}
	return records, nil
}
