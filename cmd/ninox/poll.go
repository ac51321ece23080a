package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/ninox-connector/pkg/ninox"
	"github.com/Sternrassler/ninox-connector/pkg/trigger"
	"github.com/Sternrassler/ninox-connector/pkg/watermark"
	"github.com/spf13/cobra"
)

// pollOutput is printed once per poll.
type pollOutput struct {
	Watermark    int64            `json:"watermark"`
	Bootstrapped bool             `json:"bootstrapped,omitempty"`
	Truncated    bool             `json:"truncated,omitempty"`
	Records      []map[string]any `json:"records"`
}

func newPollCmd(a *app) *cobra.Command {
	var (
		manual   bool
		node     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Emit records changed since the stored watermark",
		Long: "Poll the table for records whose sequence exceeds the stored watermark. " +
			"The first scheduled poll of a trigger only records the current sequence. " +
			"With --interval the command keeps polling until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			c, err := a.connect(ctx)
			if err != nil {
				return err
			}

			store, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			table, err := a.table()
			if err != nil {
				return err
			}

			req := trigger.PollRequest{
				Key:   watermark.Key(table, node),
				Table: table,
				Mode:  trigger.ModeScheduled,
			}
			if manual {
				req.Mode = trigger.ModeManual
			}

			poller := trigger.NewPoller(c, a.pager(c), store)
			if interval <= 0 {
				return a.pollOnce(cmd, poller, req)
			}
			return a.pollEvery(cmd, poller, req, interval)
		},
	}

	cmd.Flags().BoolVar(&manual, "manual", false, "manual test run: emit the most recent record")
	cmd.Flags().StringVar(&node, "node", "", "trigger name used to scope the watermark")
	cmd.Flags().String("store", StoreMemory, "watermark store: memory, redis or sqlite")
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll repeatedly at this interval")

	return cmd
}

func (a *app) pollOnce(cmd *cobra.Command, poller *trigger.Poller, req trigger.PollRequest) error {
	res, err := poller.Poll(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := pollOutput{
		Watermark:    res.Watermark,
		Bootstrapped: res.Bootstrapped,
		Truncated:    res.Truncated,
		Records:      make([]map[string]any, len(res.Records)),
	}
	for i, r := range res.Records {
		out.Records[i] = r.Map()
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

// pollEvery polls until the context is cancelled. A failed poll is logged
// and retried on the next tick; the watermark is left untouched by it.
func (a *app) pollEvery(cmd *cobra.Command, poller *trigger.Poller, req trigger.PollRequest, interval time.Duration) error {
	ctx := cmd.Context()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info().
		Str("table", req.Table.String()).
		Dur("interval", interval).
		Msg("Polling started")

	for {
		if err := a.pollOnce(cmd, poller, req); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			a.logger.Error().Err(err).Str("table", req.Table.String()).Msg("Poll failed")
		}

		select {
		case <-ctx.Done():
			a.logger.Info().Msg("Polling stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// openStore returns the configured watermark store and its cleanup func.
func (a *app) openStore() (watermark.Store, func(), error) {
	switch a.cfg.Store {
	case StoreRedis:
		if a.redis == nil {
			return nil, nil, fmt.Errorf("store %q needs --redis-url or %s", StoreRedis, EnvRedisURL)
		}
		return watermark.NewRedisStore(a.redis), func() {}, nil
	case StoreSQLite:
		s, err := watermark.OpenSQLite(a.cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				a.logger.Warn().Err(err).Msg("Failed to close watermark database")
			}
		}, nil
	default:
		return watermark.NewMemoryStore(), func() {}, nil
	}
}

// table resolves the configured locators into a table reference.
func (a *app) table() (ninox.TableRef, error) {
	team, err := ninox.ParseTeamLocator(a.cfg.Team)
	if err != nil {
		return ninox.TableRef{}, err
	}
	db, err := ninox.ParseDatabaseLocator(a.cfg.Database)
	if err != nil {
		return ninox.TableRef{}, err
	}
	table, err := ninox.ParseTableLocator(a.cfg.Table)
	if err != nil {
		return ninox.TableRef{}, err
	}
	return ninox.TableRef{Team: team, Database: db, Table: table}, nil
}
