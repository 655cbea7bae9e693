package watcher

import "context"

// Watcher monitors a drop folder and hands new video uploads to a handler.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// EventHandler is called once per settled upload.
type EventHandler func(ctx context.Context, filePath string) error
