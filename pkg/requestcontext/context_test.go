package requestcontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettersMerge(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithClient(ctx, "203.0.113.9", "curl/8.0")

	assert.Equal(t, Metadata{RequestID: "req-1", ClientIP: "203.0.113.9", UserAgent: "curl/8.0"}, From(ctx))

	ctx = WithRequestID(ctx, "req-2")
	assert.Equal(t, "req-2", RequestID(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
	assert.Equal(t, "203.0.113.9", ClientIP(ctx))
}

func TestEmptyContext(t *testing.T) {
	assert.Equal(t, Metadata{}, From(context.Background()))
	assert.Empty(t, RequestID(context.Background()))
}
