package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nguyentantai21042004/recap-flow/internal/failure"
	"github.com/nguyentantai21042004/recap-flow/internal/logger"
	"github.com/nguyentantai21042004/recap-flow/internal/metrics"
	"github.com/nguyentantai21042004/recap-flow/internal/report"
)

// Process runs extraction, segmentation, transcription, summarization and
// caption rendering for videoPath. Whatever the outcome, every file the job
// created (and the source, when configured) is removed before returning,
// except the rendered video and report of a successful run.
func (p *implProcessor) Process(ctx context.Context, videoPath string) (result *Result, err error) {
	startTime := time.Now()

	j := newJob(videoPath, p.cfg.Paths.Temp, p.logger)
	if p.cfg.Pipeline.ShouldRemoveSource() {
		j.track(videoPath)
	}
	ctx = logger.WithJob(ctx, j.id)

	metrics.ActiveJobs.Inc()
	defer func() {
		metrics.ActiveJobs.Dec()
		j.cleanup(ctx)
		if p.onClose != nil {
			p.onClose(j)
		}

		status := "success"
		if err != nil {
			status = "failed"
			p.logger.Error(ctx, "Processing failed after %s: %v", time.Since(startTime), err)
		}
		metrics.JobsProcessedTotal.WithLabelValues(status).Inc()
	}()

	p.logger.Info(ctx, "Starting video processing: %s", videoPath)

	if err := os.MkdirAll(j.workDir, 0755); err != nil {
		return nil, failure.New(failure.KindAudioExtraction, "create work dir", err)
	}

	// Step 1: Extract audio
	stageStart := time.Now()
	audioPath, err := p.extractAudio(ctx, j)
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("extract", stageStart)

	// Step 2: Split into segments
	stageStart = time.Now()
	segments, err := p.splitAudio(ctx, j, audioPath)
	if err != nil {
		return nil, err
	}
	j.release(ctx, audioPath)
	metrics.ObserveStage("split", stageStart)

	// Step 3: Transcribe
	stageStart = time.Now()
	text, err := p.transcribeSegments(ctx, j, segments)
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("transcribe", stageStart)

	// Step 4: Summarize
	stageStart = time.Now()
	summary, err := p.summarizer.Summarize(ctx, text)
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("summarize", stageStart)

	// Step 5: Render captions
	stageStart = time.Now()
	outputPath, err := p.renderCaptions(ctx, j, summary)
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("render", stageStart)

	result = &Result{
		JobID:      j.id,
		Transcript: text,
		Summary:    summary,
		VideoPath:  outputPath,
	}

	// Step 6: Optional report; a failure here does not fail the job
	if p.report != nil {
		reportPath, rerr := p.writeReport(ctx, j, result)
		if rerr != nil {
			p.logger.Warn(ctx, "Failed to write report: %v", rerr)
		} else {
			j.keep(reportPath)
			result.ReportPath = reportPath
		}
	}

	j.keep(outputPath)

	p.logger.Info(ctx, "Processing completed successfully in %s", time.Since(startTime))
	p.logger.Info(ctx, "Output video: %s", outputPath)
	return result, nil
}

func (p *implProcessor) writeReport(ctx context.Context, j *job, res *Result) (string, error) {
	base := strings.TrimSuffix(filepath.Base(j.source), filepath.Ext(j.source))
	reportPath := filepath.Join(p.cfg.Paths.Output, fmt.Sprintf("%s_%s_report.docx", base, j.id))
	j.track(reportPath)

	doc := report.Report{
		Title:      filepath.Base(j.source),
		Summary:    res.Summary,
		Transcript: res.Transcript,
	}
	if err := p.report.Write(ctx, doc, reportPath); err != nil {
		return "", err
	}
	return reportPath, nil
}
