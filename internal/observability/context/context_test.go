package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(WithRequestID(context.Background(), "  ")))
}

func TestActor(t *testing.T) {
	role, id := ActorFromContext(context.Background())
	assert.Empty(t, role)
	assert.Empty(t, id)

	role, id = ActorFromContext(WithActor(context.Background(), "manager", "m-1"))
	assert.Equal(t, "manager", role)
	assert.Equal(t, "m-1", id)
}
