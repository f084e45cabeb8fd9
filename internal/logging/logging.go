// Package logging installs a process-wide structured logger and hands out
// component-scoped children from it, the way the teacher's internal/logger
// package does: one handler configured once at startup via Init, every
// other package asking for a *slog.Logger through logging.For("name")
// instead of reaching for slog's global default directly.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

var (
	mu    sync.RWMutex
	level = slog.LevelInfo
)

// SetLevel changes the minimum level accepted by the installed handler.
// Valid values: "debug", "info", "warn", "error" (case-insensitive);
// anything else is treated as "info".
func SetLevel(s string) {
	mu.Lock()
	defer mu.Unlock()
	level = parseLevel(s)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// handler formats records as "[HH:MM:SS.mmm] [LEVEL] message k=v ...". The
// component set by For is not a bracketed prefix; it appears among the
// trailing attributes as component=<name>.
type handler struct {
	out io.Writer
	mu  *sync.Mutex
}

func (h *handler) Enabled(_ context.Context, lvl slog.Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return lvl >= level
}

func (h *handler) Handle(_ context.Context, rec slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ts := rec.Time.Format("15:04:05.000")
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(ts)
	b.WriteString("] [")
	b.WriteString(rec.Level.String())
	b.WriteString("] ")
	b.WriteString(rec.Message)

	rec.Attrs(func(a slog.Attr) bool {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(a.Value.String())
		return true
	})
	b.WriteByte('\n')

	_, err := h.out.Write([]byte(b.String()))
	return err
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &attrHandler{base: h, attrs: attrs}
}

func (h *handler) WithGroup(name string) slog.Handler {
	return h
}

// attrHandler carries the bound attrs (e.g. "component") added via
// logging.For, appended after the message on every record.
type attrHandler struct {
	base  slog.Handler
	attrs []slog.Attr
}

func (h *attrHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.base.Enabled(ctx, lvl)
}

func (h *attrHandler) Handle(ctx context.Context, rec slog.Record) error {
	rec.AddAttrs(h.attrs...)
	return h.base.Handle(ctx, rec)
}

func (h *attrHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &attrHandler{base: h.base, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *attrHandler) WithGroup(name string) slog.Handler {
	return h.base.WithGroup(name)
}

// Init installs the process-wide logger, writing to out. Call once at
// process startup (cmd/mrcp-server, cmd/mrcp-client); every other package
// obtains its logger via For, not slog.Default() directly.
func Init(out io.Writer) {
	h := &handler{out: out, mu: &sync.Mutex{}}
	slog.SetDefault(slog.New(h))
}

// For returns a logger scoped to component, appearing on every record it
// emits as component=<component>.
func For(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
