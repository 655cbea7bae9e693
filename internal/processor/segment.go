package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/nguyentantai21042004/recap-flow/internal/failure"
)

// segment is one fixed-length chunk of the extracted audio.
type segment struct {
	Index int
	Path  string
}

var segmentName = regexp.MustCompile(`segment_(\d+)\.wav$`)

// splitAudio cuts audioPath into chunks of pipeline.chunk_duration. Short
// inputs yield a single segment.
func (p *implProcessor) splitAudio(ctx context.Context, j *job, audioPath string) ([]segment, error) {
	seconds := int(p.cfg.Pipeline.ChunkDuration.Seconds())
	pattern := filepath.Join(j.workDir, "segment_%03d.wav")

	p.logger.Info(ctx, "Splitting audio into %ds segments", seconds)

	args := []string{
		"-i", audioPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(seconds),
		"-c", "copy",
		"-reset_timestamps", "1",
		"-y",
		pattern,
	}

	if _, err := p.executor.Execute(ctx, p.cfg.FFmpeg.BinaryPath, args...); err != nil {
		// Partial outputs are not part of any tracked group yet.
		if partial, lerr := listSegments(j.workDir); lerr == nil {
			for _, s := range partial {
				j.track(s.Path)
				j.release(ctx, s.Path)
			}
		}
		return nil, failure.New(failure.KindAudioSplit, "ffmpeg split audio", err).
			WithDetail(commandDetail(err))
	}

	segments, err := listSegments(j.workDir)
	if err != nil {
		return nil, failure.New(failure.KindAudioSplit, "list segments", err)
	}
	if len(segments) == 0 {
		return nil, failure.New(failure.KindAudioSplit, "ffmpeg produced no segments", nil)
	}

	paths := make([]string, len(segments))
	for i, s := range segments {
		paths[i] = s.Path
	}
	j.track(paths...)

	p.logger.Info(ctx, "Audio split into %d segment(s)", len(segments))
	return segments, nil
}

// listSegments returns the segment files in dir ordered by their numeric
// suffix, so segment_1000 sorts after segment_999.
func listSegments(dir string) ([]segment, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "segment_*.wav"))
	if err != nil {
		return nil, fmt.Errorf("glob segments: %w", err)
	}

	segments := make([]segment, 0, len(matches))
	for _, m := range matches {
		sub := segmentName.FindStringSubmatch(filepath.Base(m))
		if sub == nil {
			continue
		}
		n, err := strconv.Atoi(sub[1])
		if err != nil {
			continue
		}
		segments = append(segments, segment{Index: n, Path: m})
	}

	sort.Slice(segments, func(a, b int) bool {
		return segments[a].Index < segments[b].Index
	})
	for i := range segments {
		segments[i].Index = i
	}
	return segments, nil
}
