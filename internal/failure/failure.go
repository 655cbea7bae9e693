// Package failure defines the error kinds a pipeline run can end with.
package failure

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a class of pipeline failure.
type Kind string

const (
	KindAudioExtraction      Kind = "AUDIO_EXTRACTION_ERROR"
	KindAudioSplit           Kind = "AUDIO_SPLIT_ERROR"
	KindTranscription        Kind = "TRANSCRIPTION_ERROR"
	KindTranscriptionFailed  Kind = "TRANSCRIPTION_FAILED"
	KindRateLimitExceeded    Kind = "RATE_LIMIT_EXCEEDED"
	KindTimeout              Kind = "TIMEOUT"
	KindSummarization        Kind = "SUMMARIZATION_ERROR"
	KindSummarizationFailed  Kind = "SUMMARIZATION_FAILED"
	KindVideoRendering       Kind = "VIDEO_RENDERING_ERROR"
	KindVideoRenderingFailed Kind = "VIDEO_RENDERING_FAILED"
)

// Error is a typed pipeline failure. Detail is optional diagnostic data
// such as an upstream status code or a command's stderr.
type Error struct {
	Kind    Kind
	Message string
	Detail  any
	Err     error
}

// New creates an Error of the given kind.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetail attaches diagnostic detail and returns e.
func (e *Error) WithDetail(detail any) *Error {
	e.Detail = detail
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the kind to a response status so callers can tell
// retry-worthy conditions apart from fatal ones.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindRateLimitExceeded:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry the whole request later.
func (e *Error) Retryable() bool {
	return e.Kind == KindRateLimitExceeded || e.Kind == KindTimeout
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
