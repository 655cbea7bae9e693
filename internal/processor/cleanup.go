package processor

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/nguyentantai21042004/recap-flow/internal/logger"
	"github.com/nguyentantai21042004/recap-flow/internal/metrics"
)

// job is the unit of work for one input video. Every file the pipeline
// creates is tracked before the step that creates it can fail, and removed
// exactly once when the job ends unless it was handed to the caller.
type job struct {
	id      string
	source  string
	workDir string
	logger  logger.Logger

	mu        sync.Mutex
	artifacts []string
	removed   map[string]bool
	kept      map[string]bool
	closed    bool
}

func newJob(source, tempRoot string, log logger.Logger) *job {
	id := uuid.NewString()
	return &job{
		id:      id,
		source:  source,
		workDir: filepath.Join(tempRoot, id),
		logger:  log,
		removed: make(map[string]bool),
		kept:    make(map[string]bool),
	}
}

// track registers paths for cleanup as one group.
func (j *job) track(paths ...string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, p := range paths {
		if p == "" || j.isTracked(p) {
			continue
		}
		j.artifacts = append(j.artifacts, p)
	}
}

func (j *job) isTracked(path string) bool {
	for _, a := range j.artifacts {
		if a == path {
			return true
		}
	}
	return false
}

// keep excludes path from cleanup; ownership moves to the caller.
func (j *job) keep(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.kept[path] = true
}

// release removes a tracked artifact now instead of at job end.
func (j *job) release(ctx context.Context, path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.removeLocked(ctx, path)
}

// tracked returns a copy of the artifact list.
func (j *job) tracked() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.artifacts...)
}

// cleanup removes every artifact that was neither removed nor kept, then the
// scratch directory. Failures are logged and never returned. Calling it more
// than once is a no-op.
func (j *job) cleanup(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	j.closed = true

	for _, path := range j.artifacts {
		if j.kept[path] {
			continue
		}
		j.removeLocked(ctx, path)
	}

	if err := os.RemoveAll(j.workDir); err != nil {
		metrics.CleanupFailuresTotal.Inc()
		j.logger.Warn(ctx, "Failed to remove work dir %s: %v", j.workDir, err)
	}
}

func (j *job) removeLocked(ctx context.Context, path string) {
	if j.removed[path] {
		return
	}
	j.removed[path] = true

	err := os.Remove(path)
	switch {
	case err == nil:
		j.logger.Debug(ctx, "Cleaned up: %s", path)
	case errors.Is(err, fs.ErrNotExist):
		j.logger.Debug(ctx, "Already gone: %s", path)
	default:
		metrics.CleanupFailuresTotal.Inc()
		j.logger.Warn(ctx, "Failed to cleanup file %s: %v", path, err)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
