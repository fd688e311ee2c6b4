package log

import (
	"context"
	"os"

	"go.uber.org/zap"
)

type ctxKey string

const (
	sessionKey   ctxKey = "session_id"
	utteranceKey ctxKey = "utterance_id"
	clientKey    ctxKey = "client_id"
)

var logger *zap.Logger

func init() {
	if os.Getenv("DEBUG") == "true" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
}

// WithSession tags ctx with the story session id.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

// WithUtterance tags ctx with the narration utterance id.
func WithUtterance(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, utteranceKey, id)
}

// WithClient tags ctx with the websocket client id.
func WithClient(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientKey, id)
}

func WithCtx(ctx context.Context) *zap.Logger {
	fields := []zap.Field{}

	if v := ctx.Value(sessionKey); v != nil {
		fields = append(fields, zap.Any(string(sessionKey), v))
	}
	if v := ctx.Value(utteranceKey); v != nil {
		fields = append(fields, zap.Any(string(utteranceKey), v))
	}
	if v := ctx.Value(clientKey); v != nil {
		fields = append(fields, zap.Any(string(clientKey), v))
	}

	return logger.With(fields...)
}

func With(fields ...zap.Field) *zap.Logger {
	return logger.With(fields...)
}

// Sync flushes buffered entries; call it before the process exits.
func Sync() {
	_ = logger.Sync()
}
