package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nguyentantai21042004/recap-flow/internal/failure"
	"github.com/nguyentantai21042004/recap-flow/pkg/retry"
)

// maxErrorBody bounds how much of an upstream error response is kept.
const maxErrorBody = 2048

type transcriptionResponse struct {
	Text string `json:"text"`
}

// statusError is an upstream non-2xx response.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("transcription http %d: %s", e.StatusCode, e.Body)
}

// Transcribe uploads audioPath and returns its text. Rate limiting is retried
// per the configured policy; timeouts and other failures are returned at once.
func (t *implTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	var text string
	start := time.Now()

	err := t.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		text, err = t.send(ctx, audioPath)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
				t.logger.Warn(ctx, "Transcription rate limited: %s", filepath.Base(audioPath))
			}
		}
		return err
	}, classify)
	if err != nil {
		return "", toFailure(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", failure.New(failure.KindTranscriptionFailed, "empty transcription from upstream", nil).
			WithDetail(map[string]string{"segment": filepath.Base(audioPath)})
	}

	t.logger.Debug(ctx, "Transcribed %s in %s (%d chars)", filepath.Base(audioPath), time.Since(start), len(text))
	return text, nil
}

func (t *implTranscriber) send(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", t.model); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(t.baseURL, "/")+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return tr.Text, nil
}

func classify(err error) retry.Outcome {
	var se *statusError
	if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
		return retry.RateLimited
	}
	if isTimeout(err) {
		return retry.Transient
	}
	return retry.Fatal
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func toFailure(err error) error {
	var ex *retry.ExhaustedError
	if errors.As(err, &ex) {
		return failure.New(failure.KindRateLimitExceeded, "transcription rate limit retries exhausted", err).
			WithDetail(map[string]any{"attempts": ex.Attempts, "grace": ex.Grace})
	}
	if isTimeout(err) {
		return failure.New(failure.KindTimeout, "transcription request timed out", err)
	}

	fe := failure.New(failure.KindTranscription, "error transcribing audio", err)
	var se *statusError
	if errors.As(err, &se) {
		fe.WithDetail(map[string]any{"status": se.StatusCode, "body": se.Body})
	}
	return fe
}
