package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	RoutineIDKey contextKey = "routine_id"
	SessionIDKey contextKey = "session_id"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func WithRoutineID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RoutineIDKey, id)
}

func GetRoutineID(ctx context.Context) string {
	if id, ok := ctx.Value(RoutineIDKey).(string); ok {
		return id
	}
	return ""
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

// From returns the default logger annotated with whichever ids ctx carries.
func From(ctx context.Context) *slog.Logger {
	l := slog.Default()
	for _, key := range []contextKey{RequestIDKey, RoutineIDKey, SessionIDKey} {
		if id, ok := ctx.Value(key).(string); ok && id != "" {
			l = l.With(string(key), id)
		}
	}
	return l
}
