// Package retry implements a bounded, jittered exponential backoff loop for
// calls to rate-limited upstream services.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Outcome classifies the result of one attempt.
type Outcome int

const (
	Success Outcome = iota
	RateLimited
	Transient
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case RateLimited:
		return "rate_limited"
	case Transient:
		return "transient"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// State is the per-call retry state. It lives for one Do call only.
type State struct {
	Attempts int
	Last     Outcome
	Grace    bool
}

// ErrExhausted is matched by errors.Is on the error Do returns when the
// rate-limit budget (and the grace attempt, if any) ran out.
var ErrExhausted = errors.New("retry budget exhausted")

// ExhaustedError carries the last upstream error after the budget ran out.
type ExhaustedError struct {
	Attempts int
	Grace    bool
	Last     error
}

func (e *ExhaustedError) Error() string {
	if e.Grace {
		return fmt.Sprintf("rate limited after %d attempts and a grace attempt: %v", e.Attempts, e.Last)
	}
	return fmt.Sprintf("rate limited after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// Policy is a reusable backoff policy. The zero value of GraceWait disables
// the grace attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// MaxJitter is clamped to BaseDelay so consecutive delays stay strictly
	// increasing until the cap.
	MaxJitter time.Duration
	// GraceWait is slept once the budget is spent before a single final,
	// uncounted attempt.
	GraceWait time.Duration

	// Sleep and Jitter are replaceable for tests.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(max time.Duration) time.Duration
	// OnRetry is called before every sleep with the delay about to be slept.
	OnRetry func(st State, delay time.Duration)
}

// Delay returns the backoff before the retry following the given attempt
// number (1-based): min(base*2^attempt + jitter, max).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	d += p.jitter()
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p Policy) jitter() time.Duration {
	max := p.MaxJitter
	if max > p.BaseDelay {
		max = p.BaseDelay
	}
	if max <= 0 {
		return 0
	}
	if p.Jitter != nil {
		return p.Jitter(max)
	}
	return time.Duration(rand.Int63n(int64(max)))
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// Do runs call until it succeeds, fails with a non rate-limit outcome, or
// the budget runs out. classify maps a non-nil error to its Outcome.
// Transient and Fatal errors are returned unchanged on first occurrence.
func (p Policy) Do(ctx context.Context, call func(ctx context.Context) error, classify func(error) Outcome) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var st State
	for {
		err := call(ctx)
		if err == nil {
			return nil
		}

		st.Last = classify(err)
		if st.Last != RateLimited {
			return err
		}

		st.Attempts++
		if st.Attempts < maxAttempts {
			delay := p.Delay(st.Attempts)
			if p.OnRetry != nil {
				p.OnRetry(st, delay)
			}
			if err := p.sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}

		if p.GraceWait <= 0 {
			return &ExhaustedError{Attempts: st.Attempts, Last: err}
		}
		return p.grace(ctx, st, call, classify)
	}
}

func (p Policy) grace(ctx context.Context, st State, call func(ctx context.Context) error, classify func(error) Outcome) error {
	st.Grace = true
	if p.OnRetry != nil {
		p.OnRetry(st, p.GraceWait)
	}
	if err := p.sleep(ctx, p.GraceWait); err != nil {
		return err
	}

	err := call(ctx)
	if err == nil {
		return nil
	}
	if classify(err) == RateLimited {
		return &ExhaustedError{Attempts: st.Attempts, Grace: true, Last: err}
	}
	return err
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
