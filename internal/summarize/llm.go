package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/models"
)

// LLM summarizes through an OpenAI-compatible chat completion endpoint.
// Any failure falls back to the extractive summarizer, so a down or
// misconfigured model degrades quality, not availability.
type LLM struct {
	baseURL  string
	model    string
	apiKey   string
	client   *http.Client
	fallback Summarizer
	log      *zap.Logger
}

// NewLLM creates an LLM summarizer from config. The API key is read from the
// environment variable named by cfg.APIKeyEnv.
func NewLLM(cfg *config.SummarizeConfig, fallback Summarizer, log *zap.Logger) *LLM {
	if fallback == nil {
		fallback = NewFrequency(3)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LLM{
		baseURL:  cfg.BaseURL,
		model:    cfg.Model,
		apiKey:   os.Getenv(cfg.APIKeyEnv),
		client:   &http.Client{Timeout: 30 * time.Second},
		fallback: fallback,
		log:      log,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize implements Summarizer.
func (l *LLM) Summarize(ctx context.Context, query string, matches []models.SearchMatch) (string, error) {
	summary, err := l.complete(ctx, query, matches)
	if err != nil {
		l.log.Warn("llm summarization failed, using extractive fallback",
			zap.String("query", query), zap.Error(err))
		return l.fallback.Summarize(ctx, query, matches)
	}
	return summary, nil
}

func (l *LLM) complete(ctx context.Context, query string, matches []models.SearchMatch) (string, error) {
	const maxContextBytes = 8000
	excerpts := buildContext(matches, maxContextBytes)
	if excerpts == "" {
		return "", fmt.Errorf("no excerpts to summarize")
	}
	prompt := fmt.Sprintf("Based on the following research paper excerpts, provide a brief summary addressing the query %q.\n\nExcerpts:\n%s\n\nSummary:", query, excerpts)
	body, err := json.Marshal(chatRequest{
		Model: l.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a research assistant summarizing findings from academic papers."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model returned %s", resp.Status)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("model returned no content")
	}
	return out.Choices[0].Message.Content, nil
}

// FromConfig builds the summarizer the config asks for: the LLM client when
// enabled, otherwise the extractive fallback alone.
func FromConfig(cfg *config.SummarizeConfig, log *zap.Logger) Summarizer {
	freq := NewFrequency(3)
	if cfg == nil || !cfg.Enabled {
		return freq
	}
	return NewLLM(cfg, freq, log)
}
