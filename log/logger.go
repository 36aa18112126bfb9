package log

import "context"

// Fields carries structured key/value pairs attached to a log event.
type Fields = map[string]any

// Logger is the logging surface used across the client. Every method takes the
// calling context so trace identifiers can be attached to events.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Fields)
	Info(ctx context.Context, msg string, fields ...Fields)
	Warn(ctx context.Context, msg string, fields ...Fields)
	Error(ctx context.Context, msg string, err error, fields ...Fields)
	Fatal(ctx context.Context, msg string, err error, fields ...Fields) // exits the process
	With(fields Fields) Logger
}
