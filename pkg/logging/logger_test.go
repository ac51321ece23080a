package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Expected default pretty to be false")
	}
	if cfg.Output == nil {
		t.Error("Expected default output to be set")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "debug")
	t.Setenv(EnvPretty, "true")

	cfg := ConfigFromEnv()
	if cfg.Level != LevelDebug {
		t.Errorf("Level = %q, want debug", cfg.Level)
	}
	if !cfg.Pretty {
		t.Error("Pretty = false, want true")
	}
}

func TestConfigFromEnv_InvalidPrettyIgnored(t *testing.T) {
	t.Setenv(EnvLevel, "")
	t.Setenv(EnvPretty, "sometimes")

	cfg := ConfigFromEnv()
	if cfg.Level != LevelInfo || cfg.Pretty {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewLogger_ComponentField(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("paginator")
	logger.Info().Int("records", 3).Msg("list complete")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if line["component"] != "paginator" {
		t.Errorf("component = %v, want paginator", line["component"])
	}
	if line["records"] != float64(3) {
		t.Errorf("records = %v, want 3", line["records"])
	}
}

func TestWithRun_AddsDistinctRunIDs(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})
	base := NewLogger("poller")

	first := WithRun(base)
	first.Info().Msg("first")
	second := WithRun(base)
	second.Info().Msg("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	ids := make([]string, 0, 2)
	for _, l := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(l), &entry); err != nil {
			t.Fatalf("line is not JSON: %v", err)
		}
		id, _ := entry["run_id"].(string)
		if id == "" {
			t.Fatalf("missing run_id in %q", l)
		}
		ids = append(ids, id)
	}
	if ids[0] == ids[1] {
		t.Error("run ids should differ between invocations")
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger := NewLogger("test")
	logger.Info().Msg("page fetched")
	logger.Warn().Msg("pagination truncated")

	output := buf.String()
	if strings.Contains(output, "page fetched") {
		t.Error("Info message should be filtered out at Warn level")
	}
	if !strings.Contains(output, "pagination truncated") {
		t.Error("Warn message should be included at Warn level")
	}
}
