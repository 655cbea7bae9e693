package watcher

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nguyentantai21042004/recap-flow/internal/logger"
)

// Options tune how uploads are picked up.
type Options struct {
	MaxConcurrent  int
	SettleInterval time.Duration
}

// New creates a Watcher on inputDir. At most opts.MaxConcurrent handlers run
// at once.
func New(inputDir string, handler EventHandler, log logger.Logger, opts Options) (Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(inputDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.SettleInterval <= 0 {
		opts.SettleInterval = 500 * time.Millisecond
	}

	return &implWatcher{
		inputDir:       inputDir,
		handler:        handler,
		logger:         log,
		watcher:        watcher,
		maxConcurrent:  opts.MaxConcurrent,
		settleInterval: opts.SettleInterval,
		semaphore:      make(chan struct{}, opts.MaxConcurrent),
		pending:        make(map[string]bool),
	}, nil
}
