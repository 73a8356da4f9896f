package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/models"
)

func match(title, text string) models.SearchMatch {
	return models.SearchMatch{
		Metadata: models.RecordMetadata{PaperID: "p1", Title: title, ChunkText: text},
	}
}

var sampleMatches = []models.SearchMatch{
	match("Transformers", "Transformers dominate sequence modeling. "+
		"Transformers use attention to model sequence dependencies."),
	match("Attention", "The weather was nice during the conference. "+
		"Attention layers in transformers scale with sequence length. "+
		"Lunch was served at noon."),
}

func TestFrequencyPicksCentralSentences(t *testing.T) {
	s := NewFrequency(2)
	got, err := s.Summarize(context.Background(), "transformers attention", sampleMatches)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.Contains(got, "attention to model") {
		t.Errorf("summary missed the central sentence: %q", got)
	}
	if strings.Contains(got, "Lunch") {
		t.Errorf("summary kept a filler sentence: %q", got)
	}
	if n := strings.Count(got, "."); n != 2 {
		t.Errorf("summary has %d sentences, want 2: %q", n, got)
	}
}

func TestFrequencyShortInputPassesThrough(t *testing.T) {
	s := NewFrequency(3)
	got, err := s.Summarize(context.Background(), "q", []models.SearchMatch{match("T", "One sentence only.")})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "One sentence only." {
		t.Errorf("got %q, want input unchanged", got)
	}
}

func TestFrequencyNoMatches(t *testing.T) {
	got, err := NewFrequency(3).Summarize(context.Background(), "q", nil)
	if err != nil || got != "" {
		t.Errorf("empty matches: got %q, %v", got, err)
	}
}

func TestFrequencyDeterministic(t *testing.T) {
	s := NewFrequency(2)
	a, _ := s.Summarize(context.Background(), "q", sampleMatches)
	b, _ := s.Summarize(context.Background(), "q", sampleMatches)
	if a != b {
		t.Errorf("summaries differ: %q vs %q", a, b)
	}
}

func TestBuildContextCapsResults(t *testing.T) {
	var matches []models.SearchMatch
	for i := 0; i < 8; i++ {
		matches = append(matches, match("Paper", "Chunk text."))
	}
	got := buildContext(matches, 100000)
	if n := strings.Count(got, "From"); n != maxContextResults {
		t.Errorf("context holds %d excerpts, want %d", n, maxContextResults)
	}
	if !strings.Contains(got, `1. From "Paper":`) {
		t.Errorf("context missing numbered header: %q", got)
	}
}

func TestLLMSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("messages = %+v", req.Messages)
		}
		prompt := req.Messages[1].Content
		if !strings.Contains(prompt, `query "what does BERT do"`) || !strings.Contains(prompt, "dominate sequence modeling") {
			t.Errorf("prompt = %q", prompt)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "A concise summary."}},
			},
		})
	}))
	defer srv.Close()

	t.Setenv("TEST_LLM_KEY", "test-key")
	cfg := &config.SummarizeConfig{Enabled: true, BaseURL: srv.URL, Model: "gpt-4o-mini", APIKeyEnv: "TEST_LLM_KEY"}
	s := NewLLM(cfg, nil, nil)

	got, err := s.Summarize(context.Background(), "what does BERT do", sampleMatches)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "A concise summary." {
		t.Errorf("summary = %q", got)
	}
}

func TestLLMFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := &config.SummarizeConfig{Enabled: true, BaseURL: srv.URL, Model: "m", APIKeyEnv: "UNSET_KEY_VAR"}
	s := NewLLM(cfg, NewFrequency(1), nil)

	got, err := s.Summarize(context.Background(), "q", []models.SearchMatch{match("T", "Only sentence here.")})
	if err != nil {
		t.Fatalf("Summarize should fall back, got error: %v", err)
	}
	if got != "Only sentence here." {
		t.Errorf("fallback summary = %q", got)
	}
}

func TestFromConfig(t *testing.T) {
	if _, ok := FromConfig(&config.SummarizeConfig{Enabled: false}, nil).(*Frequency); !ok {
		t.Error("disabled config should yield the extractive summarizer")
	}
	if _, ok := FromConfig(&config.SummarizeConfig{Enabled: true, BaseURL: "http://x", Model: "m"}, nil).(*LLM); !ok {
		t.Error("enabled config should yield the LLM summarizer")
	}
}
