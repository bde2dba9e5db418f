package logging

import (
	"context"
)

// Level represents log severity
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Fields represents structured log fields
type Fields map[string]interface{}

// Field keys shared by the engine packages
const (
	FieldOperationID = "operation_id"
	FieldKind        = "kind"
	FieldEntry       = "entry"
	FieldPath        = "path"
	FieldComponent   = "component"
)

// Logger defines the interface for logging.
// FileLogger covers files and the console; NullLogger discards everything.
type Logger interface {
	// Debug logs a debug message
	Debug(ctx context.Context, msg string, fields Fields)

	// Info logs an info message
	Info(ctx context.Context, msg string, fields Fields)

	// Warn logs a warning message
	Warn(ctx context.Context, msg string, fields Fields)

	// Error logs an error message
	Error(ctx context.Context, msg string, err error, fields Fields)

	// WithFields returns a logger with additional fields
	WithFields(fields Fields) Logger

	// Close flushes and closes the logger
	Close() error
}

// ForOperation scopes a logger to one file or archive operation
func ForOperation(logger Logger, id, kind string) Logger {
	return OrNull(logger).WithFields(Fields{FieldOperationID: id, FieldKind: kind})
}

// ForComponent scopes a logger to an engine component
func ForComponent(logger Logger, component string) Logger {
	return OrNull(logger).WithFields(Fields{FieldComponent: component})
}
