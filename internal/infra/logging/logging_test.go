package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	context_ "github.com/mkrupp/homecase-users/internal/infra/context"
	"github.com/mkrupp/homecase-users/internal/infra/logging"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	return entry
}

func TestRedactingHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		log   func(l *slog.Logger)
		check func(t *testing.T, entry map[string]any)
	}{
		{
			name: "top level credential",
			log: func(l *slog.Logger) {
				l.Info("msg", "password", "hunter2", "email", "a@x.com")
			},
			check: func(t *testing.T, entry map[string]any) {
				assert.Equal(t, logging.RedactedValue, entry["password"])
				assert.Equal(t, "a@x.com", entry["email"])
			},
		},
		{
			name: "case insensitive substring",
			log: func(l *slog.Logger) {
				l.Info("msg", "X-Api_Key-Header", "abc", "accessToken", "def")
			},
			check: func(t *testing.T, entry map[string]any) {
				assert.Equal(t, logging.RedactedValue, entry["X-Api_Key-Header"])
				assert.Equal(t, logging.RedactedValue, entry["accessToken"])
			},
		},
		{
			name: "nested group",
			log: func(l *slog.Logger) {
				l.Info("msg", slog.Group("user", "id", 1, "password_hash", "x"))
			},
			check: func(t *testing.T, entry map[string]any) {
				user, ok := entry["user"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, logging.RedactedValue, user["password_hash"])
				assert.EqualValues(t, 1, user["id"])
			},
		},
		{
			name: "attrs bound with With",
			log: func(l *slog.Logger) {
				l.With("secret", "s3").Info("msg")
			},
			check: func(t *testing.T, entry map[string]any) {
				assert.Equal(t, logging.RedactedValue, entry["secret"])
			},
		},
		{
			name: "extra keys",
			log: func(l *slog.Logger) {
				l.Info("msg", "pin", "1234")
			},
			check: func(t *testing.T, entry map[string]any) {
				assert.Equal(t, logging.RedactedValue, entry["pin"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			handler := logging.NewRedactingHandler(slog.NewJSONHandler(&buf, nil), "PIN")
			tt.log(slog.New(handler))

			tt.check(t, decodeLine(t, &buf))
			assert.NotContains(t, buf.String(), "hunter2")
		})
	}
}

func TestTracingHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(logging.NewTracingHandler(slog.NewJSONHandler(&buf, nil)))
	ctx := context_.WithTraceID(context.Background(), "trace-123")

	logger.InfoContext(ctx, "msg")

	entry := decodeLine(t, &buf)
	trace, ok := entry["trace"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "trace-123", trace["id"])
}

func TestTracingHandler_NoTrace(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(logging.NewTracingHandler(slog.NewJSONHandler(&buf, nil)))
	logger.Info("msg")

	assert.NotContains(t, decodeLine(t, &buf), "trace")
}

func TestConsoleHandler_PkgLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	levelVar := new(slog.LevelVar)
	levelVar.Set(logging.LevelInfo)

	handler := &logging.ConsoleHandler{
		Output:    &buf,
		Level:     levelVar,
		PkgLevels: map[string]slog.Level{"repo": logging.LevelDebug, "svc.usersvc": logging.LevelError},
	}

	slog.New(handler).With("logger", "repo.user").Debug("repo debug")
	slog.New(handler).With("logger", "svc.usersvc.http_transport").Warn("svc warn")
	slog.New(handler).With("logger", "infra").Debug("infra debug")
	slog.New(handler).With("logger", "infra").Info("infra info")

	out := buf.String()
	assert.Contains(t, out, "repo debug")
	assert.NotContains(t, out, "svc warn")
	assert.NotContains(t, out, "infra debug")
	assert.Contains(t, out, "infra info")
	assert.Equal(t, 2, strings.Count(out, "\n-> "))
}

func TestGetLogger_Redacts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := logging.NewLogger(logging.LoggerConfig{
		Level:        "debug",
		JSON:         true,
		OutputHandle: &buf,
		RedactKeys:   []string{"ssn"},
	}, "test.logging")

	logger.Debug("msg", "ssn", "123-45-6789", "token", "abc")

	entry := decodeLine(t, &buf)
	assert.Equal(t, logging.RedactedValue, entry["ssn"])
	assert.Equal(t, logging.RedactedValue, entry["token"])
	assert.Equal(t, "test.logging", entry["logger"])
}
