// Package summarize condenses retrieved paper excerpts into a short answer
// for a query. Summaries are advisory text; a failure here never blocks
// ingestion or search.
package summarize

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/tsunagu/internal/models"
)

// Summarizer condenses ranked search matches into a few sentences
// addressing the query.
type Summarizer interface {
	Summarize(ctx context.Context, query string, matches []models.SearchMatch) (string, error)
}

// maxContextResults bounds how many matches feed a summary.
const maxContextResults = 5

// buildContext renders the leading matches as numbered excerpts, stopping
// once maxChars is reached.
func buildContext(matches []models.SearchMatch, maxChars int) string {
	var parts []string
	total := 0
	for i, m := range matches {
		if i >= maxContextResults {
			break
		}
		title := m.Metadata.Title
		if title == "" {
			title = m.Metadata.PaperID
		}
		excerpt := fmt.Sprintf("%d. From %q:\n%s\n", i+1, title, m.Metadata.ChunkText)
		if total+len(excerpt) > maxChars {
			break
		}
		parts = append(parts, excerpt)
		total += len(excerpt)
	}
	return strings.Join(parts, "\n")
}

// Frequency is an extractive summarizer: it scores sentences across the
// matched excerpts by the frequency of their content words and returns the
// top ones in excerpt order. Deterministic and dependency-free, it is the
// fallback when no language model is configured or reachable.
type Frequency struct {
	// MaxSentences bounds the summary length.
	MaxSentences int
}

// NewFrequency returns a Frequency summarizer emitting up to maxSentences.
func NewFrequency(maxSentences int) *Frequency {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Frequency{MaxSentences: maxSentences}
}

// Summarize implements Summarizer. The query is unused: extraction relies on
// the matches already being ranked for it.
func (f *Frequency) Summarize(ctx context.Context, query string, matches []models.SearchMatch) (string, error) {
	var texts []string
	for i, m := range matches {
		if i >= maxContextResults {
			break
		}
		texts = append(texts, m.Metadata.ChunkText)
	}
	return f.extract(strings.Join(texts, " ")), nil
}

// extract picks the highest-scoring sentences of text in original order.
func (f *Frequency) extract(text string) string {
	sentences := splitSentences(text)
	if len(sentences) <= f.MaxSentences {
		return strings.Join(sentences, " ")
	}

	freq := make(map[string]int)
	for _, s := range sentences {
		for _, w := range tokenizeWords(s) {
			freq[w]++
		}
	}

	type ranked struct {
		pos   int
		score float64
	}
	scores := make([]ranked, len(sentences))
	for i, s := range sentences {
		words := tokenizeWords(s)
		if len(words) == 0 {
			scores[i] = ranked{pos: i}
			continue
		}
		var sum int
		for _, w := range words {
			sum += freq[w]
		}
		scores[i] = ranked{pos: i, score: float64(sum) / float64(len(words))}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	picked := scores[:f.MaxSentences]
	sort.Slice(picked, func(i, j int) bool { return picked[i].pos < picked[j].pos })

	out := make([]string, len(picked))
	for i, r := range picked {
		out[i] = sentences[r.pos]
	}
	return strings.Join(out, " ")
}

// splitSentences splits on sentence-ending punctuation followed by a space
// or newline, keeping the punctuation with the sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		b.WriteByte(c)
		if c == '.' || c == '!' || c == '?' {
			if i+1 >= len(text) || text[i+1] == ' ' || text[i+1] == '\n' {
				if s := strings.TrimSpace(b.String()); s != "" {
					sentences = append(sentences, s)
				}
				b.Reset()
			}
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func tokenizeWords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, w := range fields {
		if len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}
