package context

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCorrelationIDGeneratesULID(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	_, err := ulid.Parse(cid)
	require.NoError(t, err)
	assert.Equal(t, cid, CorrelationIDFromContext(ctx))
}

func TestEnsureCorrelationIDKeepsInbound(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "upstream-7")
	_, cid := EnsureCorrelationID(ctx)
	assert.Equal(t, "upstream-7", cid)
}

func TestActorAndRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithActor(ctx, "user", "42")
	ctx = WithActor(ctx, "", "ignored")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	actorType, actorID := ActorFromContext(ctx)
	assert.Equal(t, "user", actorType)
	assert.Equal(t, "42", actorID)
	assert.Empty(t, CorrelationIDFromContext(ctx))
}
