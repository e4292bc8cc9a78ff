package logger

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// palette holds the escape sequences the pretty handler writes around each part.
type palette struct {
	reset, dim, bold, attrs string
	levels                  map[slog.Level]string
}

var (
	ansi = palette{
		reset: "\033[0m",
		dim:   "\033[2m",
		bold:  "\033[1m",
		attrs: "\033[36m",
		levels: map[slog.Level]string{
			slog.LevelDebug: "\033[35m",
			slog.LevelInfo:  "\033[32m",
			slog.LevelWarn:  "\033[33m",
			slog.LevelError: "\033[31m",
		},
	}
	plain = palette{}
)

var levelNames = map[slog.Level]string{
	slog.LevelDebug: "DBG",
	slog.LevelInfo:  "INF",
	slog.LevelWarn:  "WRN",
	slog.LevelError: "ERR",
}

// PrettyHandler writes one line per record:
//
//	15:04:05 INF message key=value group.key=value
type PrettyHandler struct {
	opts   slog.HandlerOptions
	colors palette
	prefix string
	attrs  []slog.Attr

	mu *sync.Mutex
	w  io.Writer
}

// NewPrettyHandler creates a colored pretty handler. nil opts logs at info and above.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	h := &PrettyHandler{colors: ansi, mu: &sync.Mutex{}, w: w}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// Enabled implements slog.Handler.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	threshold := slog.LevelInfo
	if h.opts.Level != nil {
		threshold = h.opts.Level.Level()
	}
	return level >= threshold
}

// Handle implements slog.Handler.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	c := h.colors

	b.WriteString(c.dim + r.Time.Format(time.TimeOnly) + c.reset + " ")
	b.WriteString(c.levels[r.Level] + levelName(r.Level) + c.reset + " ")
	if h.opts.AddSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		b.WriteString(c.dim + filepath.Base(f.File) + ":" + strconv.Itoa(f.Line) + c.reset + " ")
	}
	b.WriteString(c.bold + r.Message + c.reset)

	pairs := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		pairs = appendPairs(pairs, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		pairs = appendPairs(pairs, h.prefix, a)
		return true
	})
	if len(pairs) > 0 {
		b.WriteString(" " + c.attrs + strings.Join(pairs, " ") + c.reset)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs implements slog.Handler. Attributes are qualified by the current group.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(next.attrs, h.attrs)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup implements slog.Handler.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix += name + "."
	return &next
}

// appendPairs renders a as key=value pairs, flattening groups into dotted keys.
func appendPairs(pairs []string, prefix string, a slog.Attr) []string {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			pairs = appendPairs(pairs, prefix+a.Key+".", ga)
		}
		return pairs
	}
	if a.Equal(slog.Attr{}) {
		return pairs
	}
	return append(pairs, prefix+a.Key+"="+formatValue(v))
}

func levelName(level slog.Level) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return level.String()
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindString:
		if s := v.String(); strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return v.String()
	default:
		return v.String()
	}
}
