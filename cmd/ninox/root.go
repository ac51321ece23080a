package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/ninox-connector/pkg/client"
	"github.com/Sternrassler/ninox-connector/pkg/connector"
	"github.com/Sternrassler/ninox-connector/pkg/logging"
	"github.com/Sternrassler/ninox-connector/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	configPath string
	cfg        Config
	logger     zerolog.Logger

	redis  *redis.Client
	client *client.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	flagCfg := defaultConfig()

	root := &cobra.Command{
		Use:           "ninox",
		Short:         "List, poll and script Ninox databases",
		Long:          "A command line host for the Ninox connector: paginated record listing, watermark polling, scripts and schema lookups.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, flagCfg)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&flagCfg.BaseURL, "base-url", "", "Ninox API base URL (private cloud)")
	pf.StringVar(&flagCfg.RedisURL, "redis-url", "", "redis address or redis:// URL for cache, rate limit and watermarks")
	pf.StringVar(&flagCfg.LogLevel, "log-level", flagCfg.LogLevel, "log level: debug, info, warn or error")
	pf.StringVar(&flagCfg.Team, "team", "", "team id or app URL")
	pf.StringVar(&flagCfg.Database, "database", "", "database id or app URL")
	pf.StringVar(&flagCfg.Table, "table", "", "table id or app URL")
	pf.IntVar(&flagCfg.PerPage, "per-page", flagCfg.PerPage, "records requested per page")
	pf.IntVar(&flagCfg.MaxPages, "max-pages", flagCfg.MaxPages, "page ceiling of one listing")

	root.AddCommand(
		newListCmd(a),
		newGetCmd(a),
		newScriptCmd(a),
		newSchemaCmd(a),
		newPollCmd(a),
		newServeMetricsCmd(a),
	)

	return root
}

// setup loads the config file, then lets explicitly set flags win over it.
func (a *app) setup(cmd *cobra.Command, flagCfg Config) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	override := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	override("base-url", func() { cfg.BaseURL = flagCfg.BaseURL })
	override("redis-url", func() { cfg.RedisURL = flagCfg.RedisURL })
	override("log-level", func() { cfg.LogLevel = flagCfg.LogLevel })
	override("team", func() { cfg.Team = flagCfg.Team })
	override("database", func() { cfg.Database = flagCfg.Database })
	override("table", func() { cfg.Table = flagCfg.Table })
	override("per-page", func() { cfg.PerPage = flagCfg.PerPage })
	override("max-pages", func() { cfg.MaxPages = flagCfg.MaxPages })
	override("store", func() { cfg.Store, _ = flags.GetString("store") })

	if err := cfg.validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := logging.ConfigFromEnv()
	logCfg.Level = logging.LogLevel(cfg.LogLevel)
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)
	a.logger = logging.NewLogger("cli")

	return nil
}

// connect opens redis (when configured) and the API client.
func (a *app) connect(ctx context.Context) (*client.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	cfg := client.DefaultConfig(a.cfg.Token)
	cfg.BaseURL = a.cfg.BaseURL

	if a.cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
		cfg.Redis = rdb
	}

	c, err := client.New(cfg)
	if err != nil {
		return nil, err
	}
	a.client = c

	a.logger.Debug().
		Str("base_url", c.BaseURL()).
		Bool("redis", a.redis != nil).
		Msg("Client ready")

	return c, nil
}

func (a *app) pager(c *client.Client) *pagination.Paginator {
	return pagination.New(c, pagination.Config{
		PerPage:  a.cfg.PerPage,
		MaxPages: a.cfg.MaxPages,
	})
}

func (a *app) connector(ctx context.Context) (*connector.Connector, error) {
	c, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	return connector.New(c, a.pager(c)), nil
}

// tableParams returns the configured team, database and table as action
// parameters.
func (a *app) tableParams() connector.MapParams {
	return connector.MapParams{
		"teamId":     a.cfg.Team,
		"databaseId": a.cfg.Database,
		"tableId":    a.cfg.Table,
	}
}

func (a *app) close() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

// openRedis accepts either host:port or a redis:// URL.
func openRedis(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		var err error
		if opts, err = redis.ParseURL(addr); err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// itemsJSON drops binary payloads; only the JSON part is printed.
func itemsJSON(items []connector.Item) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, it := range items {
		out[i] = it.JSON
	}
	return out
}
