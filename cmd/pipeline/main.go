package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nguyentantai21042004/recap-flow/internal/config"
	"github.com/nguyentantai21042004/recap-flow/internal/failure"
	"github.com/nguyentantai21042004/recap-flow/internal/logger"
	"github.com/nguyentantai21042004/recap-flow/internal/metrics"
	"github.com/nguyentantai21042004/recap-flow/internal/processor"
	"github.com/nguyentantai21042004/recap-flow/internal/report"
	"github.com/nguyentantai21042004/recap-flow/internal/summarizer"
	"github.com/nguyentantai21042004/recap-flow/internal/transcriber"
	"github.com/nguyentantai21042004/recap-flow/internal/watcher"
	"github.com/nguyentantai21042004/recap-flow/pkg/executor"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run wires the pipeline and returns the process exit code.
func run(args []string) int {
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML config file")
	input := fs.String("input", "", "process a single video and print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info(ctx, "Video Summary Pipeline")
	log.Info(ctx, "System: %s/%s, CPU cores: %d", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	log.Info(ctx, "Summarizer: %s, encoder: %s", cfg.Summarizer.Provider, cfg.FFmpeg.Encoder)

	if err := ensureDirectories(cfg); err != nil {
		log.Error(ctx, "Failed to create directories: %v", err)
		return 1
	}

	proc, err := buildProcessor(cfg, log)
	if err != nil {
		log.Error(ctx, "Failed to initialize pipeline: %v", err)
		return 1
	}

	if *input != "" {
		return runOnce(ctx, proc, *input, os.Stdout)
	}

	if cfg.Metrics.Port > 0 {
		srv := metrics.StartMetricsServer(ctx, cfg.Metrics.Port, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn(ctx, "Metrics server shutdown: %v", err)
			}
		}()
	}

	handler := func(ctx context.Context, path string) error {
		_, err := proc.Process(ctx, path)
		return err
	}
	w, err := watcher.New(cfg.Paths.Input, handler, log, watcher.Options{
		MaxConcurrent:  cfg.Performance.MaxConcurrent,
		SettleInterval: cfg.Watcher.SettleInterval,
	})
	if err != nil {
		log.Error(ctx, "Failed to create watcher: %v", err)
		return 1
	}
	defer w.Stop()

	log.Info(ctx, "Monitoring: %s", cfg.Paths.Input)
	log.Info(ctx, "Output: %s", cfg.Paths.Output)
	log.Info(ctx, "Press Ctrl+C to stop")

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(ctx, "Watcher error: %v", err)
		return 1
	}

	log.Info(ctx, "Video Pipeline stopped")
	return 0
}

func buildProcessor(cfg *config.Config, log logger.Logger) (processor.Processor, error) {
	sum, err := summarizer.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("create summarizer: %w", err)
	}

	var rep report.Writer
	if cfg.Report.Enabled {
		rep = report.New()
	}

	return processor.New(cfg, executor.New(), transcriber.New(cfg, log), sum, rep, log), nil
}

// runOnce processes one file and writes the result, or the failure
// classification, to out. It returns the process exit code.
func runOnce(ctx context.Context, proc processor.Processor, path string, out io.Writer) int {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	res, err := proc.Process(ctx, path)
	if err != nil {
		body := map[string]any{"error": err.Error()}
		var fe *failure.Error
		if errors.As(err, &fe) {
			body["kind"] = fe.Kind
			body["status"] = fe.HTTPStatus()
			body["retryable"] = fe.Retryable()
			if fe.Detail != nil {
				body["detail"] = fe.Detail
			}
		}
		enc.Encode(body)
		return 1
	}

	enc.Encode(res)
	return 0
}

// ensureDirectories creates required directories if they don't exist
func ensureDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.Paths.Input,
		cfg.Paths.Output,
		cfg.Paths.Temp,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
