// Package logging configures zerolog for the connector and its host CLI.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvLevel  = "LOG_LEVEL"
	EnvPretty = "LOG_PRETTY"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: JSON).
	Pretty bool

	// Output is the writer logs go to (default: os.Stderr).
	// Stdout is reserved for action results in the CLI.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ConfigFromEnv starts from DefaultConfig and applies LOG_LEVEL and LOG_PRETTY.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if lvl := os.Getenv(EnvLevel); lvl != "" {
		cfg.Level = LogLevel(lvl)
	}
	if pretty, err := strconv.ParseBool(os.Getenv(EnvPretty)); err == nil {
		cfg.Pretty = pretty
	}
	return cfg
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithRun tags a logger with a fresh run_id so every line of one list or
// poll invocation can be correlated.
func WithRun(logger zerolog.Logger) zerolog.Logger {
	return logger.With().Str("run_id", uuid.NewString()).Logger()
}

// Log Level Guidelines:
//
// Debug: page requests (page, per_page, query), cache hit/miss, watermark reads
// Info: completed list/poll invocations, watermark updates, CLI startup
// Warn: truncated pagination (duplicate_page, max_pages), rate limit waits,
// cache errors that fall back to a direct request
// Error: failed upstream requests, watermark store failures
//
// Context Fields:
//   - table: team/database/table reference
//   - endpoint: API path relative to the base URL
//   - page, per_page: page index and size of a records request
//   - records: number of records fetched or emitted
//   - stop_reason: why a pagination run ended
//   - watermark: last delivered sequence number
//   - status_code, error_class: upstream failure details
//   - duration: request or run duration
//   - run_id: invocation correlation id
