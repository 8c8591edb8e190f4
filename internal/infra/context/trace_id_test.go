package context_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	context_ "github.com/mkrupp/homecase-users/internal/infra/context"
)

func TestTraceID(t *testing.T) {
	t.Parallel()

	_, ok := context_.TraceIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = context_.TraceIDFromContext(context_.WithTraceID(context.Background(), ""))
	assert.False(t, ok, "empty id counts as absent")

	id, ok := context_.TraceIDFromContext(context_.WithTraceID(context.Background(), "abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}
