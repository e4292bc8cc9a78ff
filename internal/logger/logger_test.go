package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWriter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})
	l.Info("catalog opened", "games", 3)

	assert.Contains(t, buf.String(), `"msg":"catalog opened"`)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
	assert.Contains(t, buf.String(), `"games":3`)
}

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		environment string
		wantJSON    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(Config{Environment: tt.environment, Writer: &buf})
			l.Info("hello")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"hello"`)
			} else {
				assert.Contains(t, buf.String(), "INF")
				assert.NotContains(t, buf.String(), `"msg"`)
			}
		})
	}
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
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	ctx := context.Background()

	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))
	assert.True(t, h.Enabled(ctx, slog.LevelError))

	assert.True(t, NewPrettyHandler(&bytes.Buffer{}, nil).Enabled(ctx, slog.LevelInfo))
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l.Debug("sync batch applied", "source", "main", "batch", 2, "took", 1500*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "DBG")
	assert.Contains(t, out, "sync batch applied")
	assert.Contains(t, out, "source=main")
	assert.Contains(t, out, "batch=2")
	assert.Contains(t, out, "took=1.5s")
}

func TestPrettyHandler_QuotesSpacedStrings(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewPrettyHandler(&buf, nil))

	l.Info("resolved", "alias", "Shoot Em Up")
	assert.Contains(t, buf.String(), `alias="Shoot Em Up"`)
}

func TestPrettyHandler_GroupsQualifyKeys(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewPrettyHandler(&buf, nil))

	l.WithGroup("sync").With("source", "main").Info("phase done",
		"kind", "tags",
		slog.Group("stats", slog.Int("created", 4)))

	out := buf.String()
	assert.Contains(t, out, "sync.source=main")
	assert.Contains(t, out, "sync.kind=tags")
	assert.Contains(t, out, "sync.stats.created=4")
}

func TestPrettyHandler_WithAttrsDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(NewPrettyHandler(&buf, nil))

	base.With("run_id", "sync-1").Info("first")
	buf.Reset()
	base.Info("second")

	assert.NotContains(t, buf.String(), "run_id")
}

func TestPrettyHandler_WithSource(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{AddSource: true}))
	l.Info("with source")

	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Writer: &buf})

	l.Component("metasync").Info("started")
	assert.Contains(t, buf.String(), `"component":"metasync"`)
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "ERR", levelName(slog.LevelError))
	assert.Equal(t, "INFO+2", levelName(slog.Level(2)))
}

func TestNew_NoColor(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "pretty", Writer: &buf, NoColor: true})
	l.Info("plain", "games", 2)

	assert.NotContains(t, buf.String(), "\033[")
	assert.Contains(t, buf.String(), "INF plain games=2")
}

func TestNew_PrettyKeepsColorOnBuffers(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Format: "pretty", Writer: &buf}).Warn("colored")

	assert.Contains(t, buf.String(), "\033[33mWRN")
}

func TestNew_PrettyDropsColorOnRegularFiles(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer f.Close()

	New(Config{Format: "pretty", Writer: f}).Info("to file")

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\033[")
	assert.Contains(t, string(data), "INF to file")
}
