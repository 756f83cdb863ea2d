package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		environment string
		wantJSON    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			var buf bytes.Buffer
			New(Config{Writer: &buf, Environment: tt.environment}).Info("hello")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"hello"`)
			} else {
				assert.Contains(t, buf.String(), "INF")
				assert.NotContains(t, buf.String(), `"msg"`)
			}
		})
	}
}

func TestNew_ExplicitFormatWins(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Writer: &buf, Environment: "development", Format: "json"}).Info("hello")
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestNew_RotatingFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	log := New(Config{Writer: &console, Level: slog.LevelInfo, File: path, MaxSizeMB: 1})
	log.Info("synced", "owner_id", "user-1")
	log.Debug("hidden")
	require.NoError(t, log.Close())

	assert.Contains(t, console.String(), "synced")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"synced"`)
	assert.Contains(t, string(data), `"owner_id":"user-1"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestLogger_CloseWithoutFile(t *testing.T) {
	assert.NoError(t, New(Config{Writer: &bytes.Buffer{}}).Close())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("sync completed", "tag_deltas", 2, "path", "/api/v1/sync", "note", "two words")

	output := buf.String()
	assert.Contains(t, output, "INF")
	assert.Contains(t, output, "sync completed")
	assert.Contains(t, output, "tag_deltas=2")
	assert.Contains(t, output, "path=/api/v1/sync")
	assert.Contains(t, output, `note="two words"`)
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	defaults := NewPrettyHandler(&bytes.Buffer{}, nil)
	assert.False(t, defaults.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, defaults.Enabled(context.Background(), slog.LevelInfo))
}

func TestPrettyHandler_GroupsQualifyKeys(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)
	assert.Same(t, h, h.WithGroup(""))

	logger := slog.New(h).With("service", "api").WithGroup("request").With("id", "r1")
	logger.Info("served", "status", 200)

	output := buf.String()
	assert.Contains(t, output, "service=api")
	assert.Contains(t, output, "request.id=r1")
	assert.Contains(t, output, "request.status=200")
}

func TestPrettyHandler_WithSource(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{AddSource: true})).Info("x")
	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestFormatValue(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01T12:00:00Z", formatValue(slog.TimeValue(now)))
	assert.Equal(t, "5s", formatValue(slog.DurationValue(5*time.Second)))
	assert.Equal(t, "42", formatValue(slog.IntValue(42)))
	assert.Equal(t, "plain", formatValue(slog.StringValue("plain")))
	assert.Equal(t, `"a=b"`, formatValue(slog.StringValue("a=b")))
}

func TestLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json"})

	log.WithError(errors.New("boom")).
		WithField("owner_id", "user-1").
		WithFields(map[string]any{"tags": 3}).
		Warn("apply failed")

	output := buf.String()
	assert.Contains(t, output, `"error":"boom"`)
	assert.Contains(t, output, `"owner_id":"user-1"`)
	assert.Contains(t, output, `"tags":3`)
}

func TestFanout_LevelsPerHandler(t *testing.T) {
	var debug, warn bytes.Buffer
	h := fanout{
		slog.NewJSONHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
	logger := slog.New(h)
	logger.Debug("only debug")
	logger.Warn("both")

	assert.Contains(t, debug.String(), "only debug")
	assert.Contains(t, debug.String(), "both")
	assert.NotContains(t, warn.String(), "only debug")
	assert.Contains(t, warn.String(), "both")
}
