package transcriber

import (
	"net/http"

	"github.com/nguyentantai21042004/recap-flow/internal/config"
	"github.com/nguyentantai21042004/recap-flow/internal/logger"
	"github.com/nguyentantai21042004/recap-flow/internal/metrics"
	"github.com/nguyentantai21042004/recap-flow/pkg/retry"
)

type implTranscriber struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	policy  retry.Policy
	logger  logger.Logger
}

// New creates a Transcriber for an OpenAI-compatible audio transcription
// endpoint. Sustained 429s get one grace attempt after cfg.Transcription.GraceWait.
func New(cfg *config.Config, log logger.Logger) Transcriber {
	t := &implTranscriber{
		baseURL: cfg.OpenAI.BaseURL,
		apiKey:  cfg.OpenAI.APIKey,
		model:   cfg.OpenAI.TranscriptionModel,
		client:  &http.Client{Timeout: cfg.Transcription.Timeout},
		logger:  log,
	}

	r := cfg.Transcription.Retry
	t.policy = retry.Policy{
		MaxAttempts: r.MaxAttempts,
		BaseDelay:   r.BaseDelay,
		MaxDelay:    r.MaxDelay,
		MaxJitter:   r.MaxJitter,
		GraceWait:   cfg.Transcription.GraceWait,
		OnRetry:     metrics.ObserveRetry("transcription"),
	}
	return t
}
