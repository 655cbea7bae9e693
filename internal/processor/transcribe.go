package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/nguyentantai21042004/recap-flow/internal/failure"
	"github.com/nguyentantai21042004/recap-flow/internal/metrics"
)

// transcript collects segment texts by index.
type transcript struct {
	parts  []string
	filled []bool
}

func newTranscript(n int) *transcript {
	return &transcript{parts: make([]string, n), filled: make([]bool, n)}
}

func (t *transcript) set(i int, text string) {
	t.parts[i] = text
	t.filled[i] = true
}

// String joins the parts in index order with single spaces.
func (t *transcript) String() (string, error) {
	for i, ok := range t.filled {
		if !ok {
			return "", failure.New(failure.KindTranscriptionFailed,
				fmt.Sprintf("segment %d has no transcript", i), nil)
		}
	}
	return strings.TrimSpace(strings.Join(t.parts, " ")), nil
}

// transcribeSegments sends segments to the transcriber one at a time with
// pipeline.segment_delay between calls. Each segment is removed as soon as
// its text is obtained.
func (p *implProcessor) transcribeSegments(ctx context.Context, j *job, segments []segment) (string, error) {
	acc := newTranscript(len(segments))

	for i, seg := range segments {
		if delay := p.cfg.Pipeline.Delay(); i > 0 && delay > 0 {
			if err := p.sleep(ctx, delay); err != nil {
				return "", failure.New(failure.KindTimeout, "cancelled between segments", err)
			}
		}

		p.logger.Info(ctx, "Transcribing segment %d/%d", i+1, len(segments))
		text, err := p.transcriber.Transcribe(ctx, seg.Path)
		if err != nil {
			return "", err
		}
		acc.set(i, text)
		j.release(ctx, seg.Path)
		metrics.SegmentsTranscribedTotal.Inc()
	}

	return acc.String()
}
