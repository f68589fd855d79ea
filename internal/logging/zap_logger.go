package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is the production Logger, backed by go.uber.org/zap the way
// jordigilh-kubernaut and pcraw4d-business-verification both wrap zap
// behind their own logging interface rather than exposing it directly.
type ZapLogger struct {
	base      *zap.Logger
	component string
}

// NewZapLogger builds a JSON-encoded, ISO8601-timestamped production
// logger at the given level ("debug", "info", "warn", "error").
func NewZapLogger(level string) (*ZapLogger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{base: base}, nil
}

func (l *ZapLogger) fieldsFor(fields map[string]interface{}) []zap.Field {
	zf := make([]zap.Field, 0, len(fields)+1)
	if l.component != "" {
		zf = append(zf, zap.String("component", l.component))
	}
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return zf
}

func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.base.Info(msg, l.fieldsFor(fields)...)
}
func (l *ZapLogger) Error(msg string, fields map[string]interface{}) {
	l.base.Error(msg, l.fieldsFor(fields)...)
}
func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.base.Warn(msg, l.fieldsFor(fields)...)
}
func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.base.Debug(msg, l.fieldsFor(fields)...)
}

// traceIDKey is the context key under which the RPC layer stashes a
// request/trace id for correlation; absent in most call paths.
type traceIDKey struct{}

// WithTraceID returns a context carrying a trace id for the *WithContext
// logging methods to surface.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

func (l *ZapLogger) withCtx(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	if id, ok := ctx.Value(traceIDKey{}).(string); ok && id != "" {
		out := make(map[string]interface{}, len(fields)+1)
		for k, v := range fields {
			out[k] = v
		}
		out["trace_id"] = id
		return out
	}
	return fields
}

func (l *ZapLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Info(msg, l.withCtx(ctx, fields))
}
func (l *ZapLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Error(msg, l.withCtx(ctx, fields))
}
func (l *ZapLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Warn(msg, l.withCtx(ctx, fields))
}
func (l *ZapLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Debug(msg, l.withCtx(ctx, fields))
}

// WithComponent returns a copy scoped to component.
func (l *ZapLogger) WithComponent(component string) Logger {
	return &ZapLogger{base: l.base, component: component}
}

// Sync flushes any buffered log entries; call before process exit.
func (l *ZapLogger) Sync() error {
	return l.base.Sync()
}
