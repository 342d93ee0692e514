package logbuf

import (
	"context"
	"log/slog"
)

// TeeHandler duplicates every record into a Ring before delegating to
// the wrapped handler. The ring sees all levels; the wrapped handler
// keeps its own level filter.
type TeeHandler struct {
	next slog.Handler
	ring *Ring
	// bound attrs are qualified with the groups in effect when bound,
	// matching slog's scoping.
	bound  []slog.Attr
	groups []string
}

// NewTeeHandler wraps next so records are also captured into ring.
func NewTeeHandler(next slog.Handler, ring *Ring) *TeeHandler {
	return &TeeHandler{next: next, ring: ring}
}

func (h *TeeHandler) Enabled(context.Context, slog.Level) bool {
	// The ring captures everything; delegation filters in Handle.
	return true
}

func (h *TeeHandler) Handle(ctx context.Context, rec slog.Record) error {
	fields := make(map[string]any, len(h.bound)+rec.NumAttrs())
	for _, a := range h.bound {
		fields[a.Key] = flatten(a.Value)
	}
	rec.Attrs(func(a slog.Attr) bool {
		fields[h.qualify(a.Key)] = flatten(a.Value)
		return true
	})
	if len(fields) == 0 {
		fields = nil
	}

	h.ring.Append(Entry{
		Time:    rec.Time,
		Level:   rec.Level.String(),
		Message: rec.Message,
		Fields:  fields,
	})

	if h.next.Enabled(ctx, rec.Level) {
		return h.next.Handle(ctx, rec)
	}
	return nil
}

func (h *TeeHandler) qualify(key string) string {
	for i := len(h.groups) - 1; i >= 0; i-- {
		key = h.groups[i] + "." + key
	}
	return key
}

// flatten resolves a slog value to something json.Marshal renders
// usefully. Errors become their message text.
func flatten(v slog.Value) any {
	raw := v.Resolve().Any()
	if err, ok := raw.(error); ok {
		return err.Error()
	}
	return raw
}

func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make([]slog.Attr, 0, len(h.bound)+len(attrs))
	bound = append(bound, h.bound...)
	for _, a := range attrs {
		bound = append(bound, slog.Attr{Key: h.qualify(a.Key), Value: a.Value})
	}
	return &TeeHandler{
		next:   h.next.WithAttrs(attrs),
		ring:   h.ring,
		bound:  bound,
		groups: h.groups,
	}
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)
	return &TeeHandler{
		next:   h.next.WithGroup(name),
		ring:   h.ring,
		bound:  h.bound,
		groups: groups,
	}
}
