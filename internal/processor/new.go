package processor

import (
	"context"
	"time"

	"github.com/nguyentantai21042004/recap-flow/internal/config"
	"github.com/nguyentantai21042004/recap-flow/internal/logger"
	"github.com/nguyentantai21042004/recap-flow/internal/report"
	"github.com/nguyentantai21042004/recap-flow/internal/summarizer"
	"github.com/nguyentantai21042004/recap-flow/internal/transcriber"
	"github.com/nguyentantai21042004/recap-flow/pkg/executor"
	"github.com/nguyentantai21042004/recap-flow/pkg/retry"
	"golang.org/x/sync/semaphore"
)

type implProcessor struct {
	cfg         *config.Config
	executor    executor.Executor
	transcriber transcriber.Transcriber
	summarizer  summarizer.Summarizer
	report      report.Writer
	logger      logger.Logger
	renders     *semaphore.Weighted

	sleep   func(ctx context.Context, d time.Duration) error
	onClose func(j *job)
}

// New creates a new Processor instance. rep may be nil when reports are
// disabled.
func New(
	cfg *config.Config,
	exec executor.Executor,
	tr transcriber.Transcriber,
	sum summarizer.Summarizer,
	rep report.Writer,
	log logger.Logger,
) Processor {
	return &implProcessor{
		cfg:         cfg,
		executor:    exec,
		transcriber: tr,
		summarizer:  sum,
		report:      rep,
		logger:      log,
		renders:     semaphore.NewWeighted(int64(max(cfg.Performance.MaxConcurrentRenders, 1))),
		sleep:       retry.Sleep,
	}
}
