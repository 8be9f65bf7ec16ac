// Package logging configures the process-wide slog handlers.
package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// Options selects the console format and an optional debug log file.
type Options struct {
	Level  string
	Pretty bool
	File   string
}

// FromEnv reads NOTELINK_LOG_LEVEL, NOTELINK_LOG_PRETTY and NOTELINK_LOG_FILE.
func FromEnv() Options {
	pretty := strings.TrimSpace(os.Getenv("NOTELINK_LOG_PRETTY"))
	return Options{
		Level:  os.Getenv("NOTELINK_LOG_LEVEL"),
		Pretty: pretty == "1" || strings.EqualFold(pretty, "true"),
		File:   strings.TrimSpace(os.Getenv("NOTELINK_LOG_FILE")),
	}
}

// Setup builds a logger writing to w and installs it as the slog default.
// The returned close func releases the debug log file, if any.
func Setup(w io.Writer, opts Options) (*slog.Logger, func() error, error) {
	level := ParseLevel(opts.Level)
	var console slog.Handler
	if opts.Pretty {
		console = newPrettyHandler(w, level)
	} else {
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	closeFn := func() error { return nil }
	handler := console
	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", opts.File, err)
		}
		_, _ = fmt.Fprintf(file, "=== notelink log start %s ===\n", time.Now().Format(time.RFC3339))
		fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
		handler = &teeHandler{handlers: []slog.Handler{console, fileHandler}}
		closeFn = file.Close
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

// ParseLevel maps debug/info/warn/error to a level, defaulting to info.
func ParseLevel(raw string) slog.Leveler {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}
	return level
}

type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range t.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		out = append(out, h.WithAttrs(attrs))
	}
	return &teeHandler{handlers: out}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		out = append(out, h.WithGroup(name))
	}
	return &teeHandler{handlers: out}
}

// prettyHandler prints one header line per record and one indented line per
// attribute. Multi-line markdown and JSON bodies are printed as blocks.
type prettyHandler struct {
	w            io.Writer
	level        slog.Leveler
	colorEnabled bool
	attrs        []slog.Attr
	groups       []string
}

func newPrettyHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return &prettyHandler{
		w:            w,
		level:        level,
		colorEnabled: isTerminalWriter(w),
	}
}

func (h *prettyHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level()
}

func (h *prettyHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Enabled(ctx, r.Level) {
		return nil
	}
	var b strings.Builder
	b.WriteString(r.Time.Format("2006-01-02 15:04:05"))
	b.WriteString(" ")
	b.WriteString(colorizeLevel(r.Level, h.colorEnabled))
	b.WriteString(" ")
	b.WriteString(r.Message)
	b.WriteString("\n")
	for _, attr := range h.attrs {
		h.writeAttr(&b, attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		h.writeAttr(&b, attr)
		return true
	})
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) clone() *prettyHandler {
	return &prettyHandler{
		w:            h.w,
		level:        h.level,
		colorEnabled: h.colorEnabled,
		attrs:        append([]slog.Attr{}, h.attrs...),
		groups:       append([]string{}, h.groups...),
	}
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	next.attrs = append(next.attrs, attrs...)
	return next
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *prettyHandler) writeAttr(b *strings.Builder, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	key := attr.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		sub := h.clone()
		sub.groups = append(sub.groups, attr.Key)
		for _, child := range value.Group() {
			sub.writeAttr(b, child)
		}
		return
	}
	if value.Kind() == slog.KindString && strings.Contains(value.String(), "\n") {
		writeBlock(b, key, value.String())
		return
	}
	b.WriteString("  ")
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value.String())
	b.WriteString("\n")
}

func writeBlock(b *strings.Builder, key, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	b.WriteString("  ")
	b.WriteString(key)
	b.WriteString(":\n")
	if pretty := prettyJSON(body); pretty != "" {
		body = pretty
	}
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func prettyJSON(raw string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return ""
	}
	return buf.String()
}

const (
	colorReset = "\x1b[0m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"
)

func colorizeLevel(level slog.Level, enabled bool) string {
	label := level.String()
	if !enabled {
		return label
	}
	switch {
	case level <= slog.LevelDebug:
		return colorDebug + label + colorReset
	case level < slog.LevelWarn:
		return colorInfo + label + colorReset
	case level < slog.LevelError:
		return colorWarn + label + colorReset
	default:
		return colorError + label + colorReset
	}
}

func isTerminalWriter(w io.Writer) bool {
	if file, ok := w.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}
