package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyRoomID    ctxKey = "room_id"
)

// WithRequestID stores a request identifier for later log enrichment.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// WithRoomID stores the room a request concerns for later log enrichment.
func WithRoomID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRoomID, id)
}

// ContextLogger enriches log entries with identifiers carried in a context.
type ContextLogger struct {
	logger *zap.Logger
}

func NewContextLogger(logger *zap.Logger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// WithContext returns the underlying logger with any request or room
// identifiers found in ctx attached as fields.
func (cl *ContextLogger) WithContext(ctx context.Context) *zap.Logger {
	fields := []zapcore.Field{}

	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok && id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id, ok := ctx.Value(ctxKeyRoomID).(string); ok && id != "" {
		fields = append(fields, zap.String("room_id", id))
	}

	if len(fields) == 0 {
		return cl.logger
	}
	return cl.logger.With(fields...)
}

// LogRequest logs one HTTP request with its context identifiers.
func (cl *ContextLogger) LogRequest(ctx context.Context, method, path string, statusCode int, durationMillis int64) {
	cl.WithContext(ctx).Info("http_request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", statusCode),
		zap.Int64("duration_ms", durationMillis),
	)
}
