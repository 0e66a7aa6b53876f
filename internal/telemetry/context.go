package telemetry

import (
	"context"

	"github.com/google/uuid"
)

type (
	turnIDKey    struct{}
	sessionIDKey struct{}
)

// NewTurnID returns a fresh id used to correlate the events of one user turn.
func NewTurnID() string { return uuid.NewString() }

// WithTurnID returns a child context that carries the provided turn ID.
// If ctx is nil, context.Background() is used
func WithTurnID(ctx context.Context, id string) context.Context {
	return withString(ctx, turnIDKey{}, id)
}

// TurnIDFromContext returns the turn ID from ctx, if present.
// Returns "", false if the value is missing or not a non-empty string.
func TurnIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, turnIDKey{})
}

// WithSessionID tags ctx with the session being served.
func WithSessionID(ctx context.Context, id string) context.Context {
	return withString(ctx, sessionIDKey{}, id)
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, sessionIDKey{})
}

func withString(ctx context.Context, key any, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func stringFrom(ctx context.Context, key any) (string, bool) {
	if ctx == nil {
		return "", false
	}
	s, ok := ctx.Value(key).(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
