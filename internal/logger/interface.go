package logger

import "context"

// Logger is a leveled, printf-style logger. Values attached to ctx with
// WithJob are emitted as structured fields.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...interface{})
	Info(ctx context.Context, msg string, args ...interface{})
	Warn(ctx context.Context, msg string, args ...interface{})
	Error(ctx context.Context, msg string, args ...interface{})
}
