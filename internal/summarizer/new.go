package summarizer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nguyentantai21042004/recap-flow/internal/config"
	"github.com/nguyentantai21042004/recap-flow/internal/logger"
	"github.com/nguyentantai21042004/recap-flow/internal/metrics"
	"github.com/nguyentantai21042004/recap-flow/pkg/retry"
)

const (
	systemPrompt = "You are a professional video summarizer. Create concise, engaging summaries."
	userPrompt   = "Please summarize the following video transcript in a clear and concise way:\n\n%s"
)

// generateFunc performs one upstream call. Implementations return a
// *failure.Error for an empty response and raw errors otherwise.
type generateFunc func(ctx context.Context, transcript string) (string, error)

type implSummarizer struct {
	provider string
	generate generateFunc
	timeout  time.Duration
	policy   retry.Policy
	logger   logger.Logger
}

// New creates the Summarizer selected by cfg.Summarizer.Provider.
func New(cfg *config.Config, log logger.Logger) (Summarizer, error) {
	r := cfg.Summarization.Retry
	s := &implSummarizer{
		provider: cfg.Summarizer.Provider,
		timeout:  cfg.Summarization.Timeout,
		logger:   log,
		policy: retry.Policy{
			MaxAttempts: r.MaxAttempts,
			BaseDelay:   r.BaseDelay,
			MaxDelay:    r.MaxDelay,
			MaxJitter:   r.MaxJitter,
			OnRetry:     metrics.ObserveRetry("summarization"),
		},
	}

	switch cfg.Summarizer.Provider {
	case "openai", "":
		o := &openAIChat{
			baseURL:     cfg.OpenAI.BaseURL,
			apiKey:      cfg.OpenAI.APIKey,
			model:       cfg.OpenAI.ChatModel,
			temperature: cfg.Summarization.SamplingTemperature(),
			maxTokens:   cfg.Summarization.MaxTokens,
			client:      &http.Client{},
		}
		s.provider = "openai"
		s.generate = o.generate
	case "gemini":
		g := &geminiChat{
			apiKeys:     cfg.Gemini.APIKeys,
			model:       cfg.Gemini.Model,
			temperature: float32(cfg.Summarization.SamplingTemperature()),
			maxTokens:   int32(cfg.Summarization.MaxTokens),
			logger:      log,
		}
		s.generate = g.generate
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Summarizer.Provider)
	}

	return s, nil
}
