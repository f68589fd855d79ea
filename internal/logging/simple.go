package logging

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
)

// SimpleLogger is a dependency-free structured logger for tests and local
// runs, grounded on the teacher's pkg/logger/simple.go: plain stderr lines
// with sorted key=value fields, no external library required.
type SimpleLogger struct {
	component string
	out       *log.Logger
}

// NewSimpleLogger returns a SimpleLogger writing to stderr.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{out: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *SimpleLogger) log(level, msg string, fields map[string]interface{}) {
	line := fmt.Sprintf("%s %s", level, msg)
	if l.component != "" {
		line += fmt.Sprintf(" component=%s", l.component)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		line += fmt.Sprintf(" %s=%v", k, fields[k])
	}
	l.out.Println(line)
}

func (l *SimpleLogger) Info(msg string, fields map[string]interface{})  { l.log("INFO", msg, fields) }
func (l *SimpleLogger) Error(msg string, fields map[string]interface{}) { l.log("ERROR", msg, fields) }
func (l *SimpleLogger) Warn(msg string, fields map[string]interface{})  { l.log("WARN", msg, fields) }
func (l *SimpleLogger) Debug(msg string, fields map[string]interface{}) { l.log("DEBUG", msg, fields) }

func (l *SimpleLogger) InfoWithContext(_ context.Context, msg string, fields map[string]interface{}) {
	l.Info(msg, fields)
}
func (l *SimpleLogger) ErrorWithContext(_ context.Context, msg string, fields map[string]interface{}) {
	l.Error(msg, fields)
}
func (l *SimpleLogger) WarnWithContext(_ context.Context, msg string, fields map[string]interface{}) {
	l.Warn(msg, fields)
}
func (l *SimpleLogger) DebugWithContext(_ context.Context, msg string, fields map[string]interface{}) {
	l.Debug(msg, fields)
}

// WithComponent returns a copy scoped to component.
func (l *SimpleLogger) WithComponent(component string) Logger {
	return &SimpleLogger{component: component, out: l.out}
}
