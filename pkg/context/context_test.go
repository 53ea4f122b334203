package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	ctx := WithRequest(context.Background(), Request{ID: "req-1", UserID: "user-7", Method: "POST"})

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "user-7", GetUserID(ctx))
	assert.Equal(t, "POST", FromContext(ctx).Method)
}

func TestFromContext_Empty(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, Request{}, FromContext(ctx))
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, LogFields(ctx))
}

func TestLogFields(t *testing.T) {
	ctx := WithRequest(context.Background(), Request{ID: "req-1", Route: "/api/v1/lookup"})

	assert.Equal(t, map[string]any{
		"request_id": "req-1",
		"route":      "/api/v1/lookup",
	}, LogFields(ctx))
}
