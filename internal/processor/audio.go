package processor

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"

	"github.com/nguyentantai21042004/recap-flow/internal/failure"
	"github.com/nguyentantai21042004/recap-flow/pkg/executor"
)

// extractAudio transcodes the job's source to 16kHz mono PCM WAV inside the
// job's scratch directory.
func (p *implProcessor) extractAudio(ctx context.Context, j *job) (string, error) {
	audioPath := filepath.Join(j.workDir, "audio.wav")
	j.track(audioPath)

	p.logger.Info(ctx, "Extracting audio: %s", j.source)

	// -vn: drop video
	// -ac 1: mono
	// -threads 0: use all available threads
	args := []string{
		"-i", j.source,
		"-vn",
		"-ar", strconv.Itoa(p.cfg.FFmpeg.SampleRate),
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-threads", "0",
		"-y",
		audioPath,
	}

	if _, err := p.executor.Execute(ctx, p.cfg.FFmpeg.BinaryPath, args...); err != nil {
		return "", failure.New(failure.KindAudioExtraction, "ffmpeg extract audio", err).
			WithDetail(commandDetail(err))
	}
	if !fileExists(audioPath) {
		return "", failure.New(failure.KindAudioExtraction, "ffmpeg produced no audio output", nil)
	}

	p.logger.Info(ctx, "Audio extracted successfully: %s", audioPath)
	return audioPath, nil
}

// commandDetail surfaces the exit code and stderr of a failed command.
func commandDetail(err error) map[string]any {
	var cmdErr *executor.CommandError
	if !errors.As(err, &cmdErr) {
		return nil
	}
	return map[string]any{
		"exit_code": cmdErr.ExitCode,
		"stderr":    cmdErr.Stderr,
	}
}
