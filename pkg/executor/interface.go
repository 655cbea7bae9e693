package executor

import "context"

// Executor runs external programs such as ffmpeg.
type Executor interface {
	// Execute runs name with args and returns captured stdout.
	// A failed run returns a *CommandError.
	Execute(ctx context.Context, name string, args ...string) (string, error)
}
