package logstream

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/HPNChanel/data-guardian/internal/types"
)

// Handler is a slog.Handler that publishes every record to a Broadcaster
// in addition to forwarding it to an inner handler. The "component" attr,
// when present, becomes the event's Component; all other attrs land in
// Extra.
type Handler struct {
	inner  slog.Handler
	b      *Broadcaster
	prefix string
	attrs  []slog.Attr
}

// NewHandler wraps inner so records also reach b.
func NewHandler(inner slog.Handler, b *Broadcaster) *Handler {
	return &Handler{inner: inner, b: b}
}

// NewLogger builds the daemon logger: JSON records to w at the given
// level, every record mirrored to b.
func NewLogger(w io.Writer, level slog.Level, b *Broadcaster) *slog.Logger {
	inner := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewHandler(inner, b))
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	e := types.LogEvent{
		TS:    r.Time,
		Level: strings.ToLower(r.Level.String()),
		Msg:   r.Message,
	}
	collect := func(key string, v slog.Value) {
		if key == "component" {
			e.Component = v.String()
			return
		}
		if e.Extra == nil {
			e.Extra = make(map[string]any)
		}
		e.Extra[key] = v.Any()
	}
	for _, a := range h.attrs {
		collect(a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(h.prefix+a.Key, a.Value)
		return true
	})
	h.b.Publish(e)
	return h.inner.Handle(ctx, r)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	// Bound attrs carry the group prefix in effect when they were added.
	bound := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		bound[i] = slog.Attr{Key: h.prefix + a.Key, Value: a.Value}
	}
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), bound...)
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	clone.prefix = h.prefix + name + "."
	return &clone
}
