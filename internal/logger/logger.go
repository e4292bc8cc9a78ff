// Package logger configures structured logging: colored single-line output while
// developing, JSON in production.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	formatJSON   = "json"
	formatPretty = "pretty"
)

// Logger wraps slog.Logger.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Writer      io.Writer
	Format      string // json or pretty; empty picks by Environment
	Environment string
	Level       slog.Level
	AddSource   bool
	// NoColor disables ANSI colors in pretty output. Colors are also dropped when
	// Writer is a file that is not a terminal.
	NoColor bool
}

// New creates a logger. An empty Format picks JSON in production and pretty otherwise.
func New(cfg Config) *Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	format := cfg.Format
	if format == "" {
		format = formatPretty
		if cfg.Environment == "production" {
			format = formatJSON
		}
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: shortSource,
	}

	if format == formatJSON {
		return &Logger{Logger: slog.New(slog.NewJSONHandler(cfg.Writer, opts))}
	}
	h := NewPrettyHandler(cfg.Writer, opts)
	if cfg.NoColor || !isTerminal(cfg.Writer) {
		h.colors = plain
	}
	return &Logger{Logger: slog.New(h)}
}

// shortSource trims source paths to the file name.
func shortSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}
	if src, ok := a.Value.Any().(*slog.Source); ok {
		src.File = filepath.Base(src.File)
	}
	return a
}

// isTerminal reports whether w is a terminal. Writers that are not files, such as test
// buffers, count as terminals so that explicit pretty output keeps its colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ParseLevel converts a string to slog.Level. Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component returns a child logger tagged with the subsystem name.
func (l *Logger) Component(name string) *slog.Logger {
	return l.With(slog.String("component", name))
}
