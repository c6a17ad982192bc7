package logging

import (
	"context"
	"log/slog"
)

// handler redacts attributes and adds context fields before delegating.
type handler struct {
	next     slog.Handler
	redactor *Redactor
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	if fields := extractContextFields(ctx); len(fields) > 0 {
		out.Add(fields...)
	}
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}
	return &handler{next: h.next.WithAttrs(redacted), redactor: h.redactor}
}

func (h *handler) WithGroup(name string) slog.Handler {
	return &handler{next: h.next.WithGroup(name), redactor: h.redactor}
}

func (h *handler) redact(a slog.Attr) slog.Attr {
	if h.redactor == nil {
		return a
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		group := v.Group()
		out := make([]slog.Attr, len(group))
		for i, g := range group {
			out[i] = h.redact(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.Any(a.Key, redactValue(v.String()))
		}
		return slog.String(a.Key, h.redactor.RedactString(v.String()))
	case slog.KindAny:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, h.redactor.RedactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}
