// Package logging builds the process logger for the vgate binary.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Environment overrides.
const (
	EnvLogLevel   = "VGATE_LOG_LEVEL"
	EnvLogFormat  = "VGATE_LOG_FORMAT"
	EnvLogNoColor = "VGATE_LOG_NOCOLOR"
)

// Output formats.
const (
	FormatColor = "color"
	FormatText  = "text"
	FormatJSON  = "json"
)

// Config selects the level and format of the logger.
type Config struct {
	Level   string
	Format  string
	NoColor bool
}

// ApplyEnv overrides cfg with VGATE_LOG_* variables that are set and valid.
func (c *Config) ApplyEnv() {
	if raw := os.Getenv(EnvLogLevel); raw != "" {
		if _, ok := ParseLevel(raw); ok {
			c.Level = raw
		}
	}
	switch f := strings.ToLower(strings.TrimSpace(os.Getenv(EnvLogFormat))); f {
	case FormatColor, FormatText, FormatJSON:
		c.Format = f
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		c.NoColor = v
	}
}

// ParseLevel maps a level name to a slog level. ok is false for empty or
// unknown names, in which case Info is returned.
func ParseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "trace":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// New returns a logger writing to w.
func New(cfg Config, w io.Writer) *slog.Logger {
	level, _ := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case FormatText:
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = &colorHandler{
			out:     w,
			mu:      &sync.Mutex{},
			level:   level,
			noColor: cfg.NoColor,
		}
	}
	return slog.New(handler)
}

// colorHandler writes one colorized line per record.
type colorHandler struct {
	out     io.Writer
	mu      *sync.Mutex
	level   slog.Level
	noColor bool
	attrs   []slog.Attr // keys already qualified by groups
	groups  []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) paint(c *color.Color, s string) string {
	if h.noColor {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	gray := color.New(color.FgHiBlack)
	if !r.Time.IsZero() {
		buf.WriteString(h.paint(gray, r.Time.Format("15:04:05")+" "))
	}

	switch {
	case r.Level < slog.LevelInfo:
		buf.WriteString(h.paint(color.New(color.FgMagenta), "DBG "))
	case r.Level < slog.LevelWarn:
		buf.WriteString(h.paint(color.New(color.FgCyan), "INF "))
	case r.Level < slog.LevelError:
		buf.WriteString(h.paint(color.New(color.FgYellow), "WRN "))
	default:
		buf.WriteString(h.paint(color.New(color.FgRed, color.Bold), "ERR "))
	}

	buf.WriteString(r.Message)

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	write := func(key string, v slog.Value) {
		buf.WriteString(h.paint(gray, " "+key+"="))
		buf.WriteString(v.Resolve().String())
	}
	for _, a := range h.attrs {
		write(a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(prefix+a.Key, a.Value)
		return true
	})
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, buf.String())
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = h.attrs[:len(h.attrs):len(h.attrs)]
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return &next
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(h.groups[:len(h.groups):len(h.groups)], name)
	return &next
}
