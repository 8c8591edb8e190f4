package logging

import (
	"context"
	"log/slog"
	"strings"
)

// RedactedValue replaces the value of every sensitive attribute.
const RedactedValue = "[REDACTED]"

//nolint:gochecknoglobals
var defaultSensitiveKeys = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"authorization",
	"api_key",
	"apikey",
	"credential",
}

// RedactingHandler wraps another slog.Handler and masks attributes whose key
// looks like a credential. Matching is case-insensitive on key substrings and
// descends into groups.
type RedactingHandler struct {
	h    slog.Handler
	keys []string
}

var _ slog.Handler = (*RedactingHandler)(nil)

// NewRedactingHandler creates a RedactingHandler masking the built-in
// credential keys plus any extra keys given.
func NewRedactingHandler(h slog.Handler, extraKeys ...string) *RedactingHandler {
	keys := make([]string, 0, len(defaultSensitiveKeys)+len(extraKeys))
	keys = append(keys, defaultSensitiveKeys...)

	for _, key := range extraKeys {
		if key = strings.ToLower(strings.TrimSpace(key)); key != "" {
			keys = append(keys, key)
		}
	}

	return &RedactingHandler{h: h, keys: keys}
}

// IsSensitive reports whether an attribute with the given key is masked.
func (h *RedactingHandler) IsSensitive(key string) bool {
	key = strings.ToLower(key)

	for _, k := range h.keys {
		if strings.Contains(key, k) {
			return true
		}
	}

	return false
}

func (h *RedactingHandler) redact(attr slog.Attr) slog.Attr {
	if h.IsSensitive(attr.Key) {
		return slog.String(attr.Key, RedactedValue)
	}

	value := attr.Value.Resolve()
	if value.Kind() != slog.KindGroup {
		return slog.Attr{Key: attr.Key, Value: value}
	}

	group := value.Group()
	redacted := make([]slog.Attr, len(group))

	for i, a := range group {
		redacted[i] = h.redact(a)
	}

	return slog.Attr{Key: attr.Key, Value: slog.GroupValue(redacted...)}
}

// Handle implements slog.Handler by rebuilding the record with masked attributes.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))

		return true
	})

	//nolint:wrapcheck
	return h.h.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) Handler {
	redacted := make([]slog.Attr, len(attrs))

	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}

	return &RedactingHandler{h: h.h.WithAttrs(redacted), keys: h.keys}
}

// WithGroup implements slog.Handler.WithGroup.
func (h *RedactingHandler) WithGroup(name string) Handler {
	return &RedactingHandler{h: h.h.WithGroup(name), keys: h.keys}
}

// Enabled implements slog.Handler.Enabled.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}
