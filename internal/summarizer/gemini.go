package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/nguyentantai21042004/recap-flow/internal/failure"
	"github.com/nguyentantai21042004/recap-flow/internal/logger"
	"google.golang.org/genai"
)

type geminiChat struct {
	apiKeys     []string
	model       string
	temperature float32
	maxTokens   int32
	logger      logger.Logger

	mu         sync.Mutex
	currentKey int
}

// generate sends the transcript to Gemini. On 429 / quota errors the next
// API key is selected for the following attempt.
func (g *geminiChat) generate(ctx context.Context, transcript string) (string, error) {
	key := g.key()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}

	temperature := g.temperature
	result, err := client.Models.GenerateContent(ctx, g.model, genai.Text(fmt.Sprintf(userPrompt, transcript)), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		Temperature:       &temperature,
		MaxOutputTokens:   g.maxTokens,
	})
	if err != nil {
		if isGeminiRateLimit(err) {
			g.logger.Warn(ctx, "Gemini key %d rate limited, rotating...", g.rotateKey()+1)
			return "", fmt.Errorf("generate content: %w: %w", errRateLimited, err)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	var text strings.Builder
	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		for _, part := range result.Candidates[0].Content.Parts {
			if part != nil && part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", failure.New(failure.KindSummarizationFailed, "empty response from Gemini", nil)
	}
	return text.String(), nil
}

func (g *geminiChat) key() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.apiKeys[g.currentKey]
}

// rotateKey advances to the next key and returns the index of the key that
// was rate limited.
func (g *geminiChat) rotateKey() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	prev := g.currentKey
	g.currentKey = (g.currentKey + 1) % len(g.apiKeys)
	return prev
}

func isGeminiRateLimit(err error) bool {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}

	// Value-typed API errors and wrapped transport errors only expose the
	// status through the message.
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
