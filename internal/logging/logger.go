// Package logging defines the Logger interface shared across the control
// plane, along with a no-op implementation and a simple stderr logger for
// tests and local development. The production implementation lives in
// zap_logger.go.
package logging

import "context"

// Logger is the minimal structured-logging interface every subsystem
// depends on, shaped like the teacher's core.Logger: basic and
// context-aware variants of each level, each taking a free-form fields bag.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// ComponentLogger extends Logger with a component tag, so a shared base
// logger can be scoped per subsystem ("engine", "runner/feature-extraction",
// "rpc/control") without threading extra arguments through every call.
type ComponentLogger interface {
	Logger
	WithComponent(component string) Logger
}

// NoOpLogger discards everything. Used as the zero-value default so nil
// Logger fields never need a guard at every call site.
type NoOpLogger struct{}

func (NoOpLogger) Info(string, map[string]interface{})  {}
func (NoOpLogger) Error(string, map[string]interface{}) {}
func (NoOpLogger) Warn(string, map[string]interface{})  {}
func (NoOpLogger) Debug(string, map[string]interface{}) {}

func (NoOpLogger) InfoWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) ErrorWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) WarnWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) DebugWithContext(context.Context, string, map[string]interface{}) {}
