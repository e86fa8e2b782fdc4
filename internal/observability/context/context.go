// Package context carries request-scoped identifiers used by logs and spans.
package context

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	correlationIDKey
	actorKey
)

type actor struct {
	Type string
	ID   string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, requestIDKey)
}

// WithCorrelationID stores an inbound correlation id. Empty values are ignored.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

func CorrelationIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, correlationIDKey)
}

// EnsureCorrelationID keeps an existing correlation id or mints a ULID.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if existing := CorrelationIDFromContext(ctx); existing != "" {
		return ctx, existing
	}
	id := ulid.Make().String()
	return context.WithValue(ctx, correlationIDKey, id), id
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	if actorType == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey, actor{Type: actorType, ID: actorID})
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	value, ok := ctx.Value(actorKey).(actor)
	if !ok {
		return "", ""
	}
	return value.Type, value.ID
}

func stringFrom(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
