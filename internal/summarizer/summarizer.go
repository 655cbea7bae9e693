package summarizer

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/nguyentantai21042004/recap-flow/internal/failure"
	"github.com/nguyentantai21042004/recap-flow/pkg/retry"
)

// errRateLimited marks an upstream 429 regardless of provider.
var errRateLimited = errors.New("rate limited")

// Summarize sends the whole transcript in one call; each attempt runs under
// its own deadline.
func (s *implSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	var summary string
	start := time.Now()

	err := s.policy.Do(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		var err error
		summary, err = s.generate(attemptCtx, transcript)
		if errors.Is(err, errRateLimited) {
			s.logger.Warn(ctx, "Summarization rate limited (%s)", s.provider)
		}
		return err
	}, classify)
	if err != nil {
		return "", toFailure(err)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", failure.New(failure.KindSummarizationFailed, "failed to generate summary", nil)
	}

	s.logger.Info(ctx, "Summary generated by %s in %s (%d chars)", s.provider, time.Since(start), len(summary))
	return summary, nil
}

func classify(err error) retry.Outcome {
	switch {
	case errors.Is(err, errRateLimited):
		return retry.RateLimited
	case isTimeout(err):
		return retry.Transient
	default:
		return retry.Fatal
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func toFailure(err error) error {
	var fe *failure.Error
	if errors.As(err, &fe) {
		return err
	}

	var ex *retry.ExhaustedError
	if errors.As(err, &ex) {
		return failure.New(failure.KindRateLimitExceeded, "summarization rate limit retries exhausted", err).
			WithDetail(map[string]any{"attempts": ex.Attempts})
	}
	if isTimeout(err) {
		return failure.New(failure.KindTimeout, "summarization request timed out", err)
	}

	se := failure.New(failure.KindSummarization, "error summarizing text", err)
	var ue *upstreamError
	if errors.As(err, &ue) {
		se.WithDetail(map[string]any{"status": ue.StatusCode, "body": ue.Body})
	}
	return se
}
