package chunker

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapse spaces", "  a  b  ", "a b"},
		{"crlf", "a\r\nb", "a\nb"},
		{"blank line run", "one\n\n\n\ntwo", "one\n\ntwo"},
		{"spaces around newline", "a \n b", "a\nb"},
		{"control chars dropped", "a\x0cb", "ab"},
		{"whitespace only", " \n\t ", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New(500, 50)
	if chunks := c.Chunk("p1", "   \n\t  "); len(chunks) != 0 {
		t.Errorf("whitespace-only input should yield no chunks, got %d", len(chunks))
	}
	if chunks := c.Chunk("p1", ""); len(chunks) != 0 {
		t.Errorf("empty input should yield no chunks, got %d", len(chunks))
	}
}

func TestChunk_OneChunkPerParagraph(t *testing.T) {
	text := "First paragraph about attention.\n\nSecond paragraph about recurrence.\n\nThird paragraph about convolution."
	c := New(500, 50)
	chunks := c.Chunk("p1", text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantTexts := []string{
		"First paragraph about attention.",
		"Second paragraph about recurrence.",
		"Third paragraph about convolution.",
	}
	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d index = %d", i, ch.ChunkIndex)
		}
		if ch.PaperID != "p1" {
			t.Errorf("chunk %d paper ID = %q", i, ch.PaperID)
		}
		if ch.Text != wantTexts[i] {
			t.Errorf("chunk %d text = %q, want %q", i, ch.Text, wantTexts[i])
		}
		if OverlapLen(ch) != 0 {
			t.Errorf("no overlap expected across paragraph boundaries, chunk %d has %d", i, OverlapLen(ch))
		}
	}
}

func TestChunk_SentenceSplitWithOverlap(t *testing.T) {
	sentence := "Alpha beta gamma delta epsilon." // 31 bytes
	para := strings.Join([]string{sentence, sentence, sentence, sentence}, " ")
	c := New(70, 10)
	chunks := c.Chunk("p1", para)
	if len(chunks) < 2 {
		t.Fatalf("expected a forced split, got %d chunks", len(chunks))
	}
	normalized := Normalize(para)
	for i, ch := range chunks {
		body := ch.Text[OverlapLen(ch):]
		if normalized[ch.CharStart:ch.CharEnd] != body {
			t.Errorf("chunk %d offsets disagree with text", i)
		}
		if i > 0 {
			if OverlapLen(ch) != 10 {
				t.Errorf("chunk %d overlap = %d, want 10", i, OverlapLen(ch))
			}
			// Overlap prefix must equal the tail of the preceding span.
			prev := normalized[:ch.CharStart]
			if !strings.HasSuffix(prev, ch.Text[:OverlapLen(ch)]) {
				t.Errorf("chunk %d overlap prefix is not the previous tail", i)
			}
		}
		// Splits land on sentence boundaries, so each body ends with punctuation.
		if i < len(chunks)-1 && !strings.HasSuffix(body, ".") {
			t.Errorf("chunk %d does not end at a sentence boundary: %q", i, body)
		}
	}
}

func TestChunk_HardCutWithoutSentenceBoundary(t *testing.T) {
	para := strings.Repeat("a", 120)
	c := New(50, 0)
	chunks := c.Chunk("p1", para)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 hard-cut chunks, got %d", len(chunks))
	}
	if len(chunks[0].Text) != 50 || len(chunks[1].Text) != 50 || len(chunks[2].Text) != 20 {
		t.Errorf("unexpected chunk sizes: %d %d %d",
			len(chunks[0].Text), len(chunks[1].Text), len(chunks[2].Text))
	}
}

func TestChunk_HardCutKeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("α", 120)

	for _, overlap := range []int{0, 10} {
		c := New(51, overlap)
		chunks := c.Chunk("p1", text)
		if len(chunks) < 2 {
			t.Fatalf("overlap %d: expected multiple chunks, got %d", overlap, len(chunks))
		}
		for _, ch := range chunks {
			if !utf8.ValidString(ch.Text) {
				t.Errorf("overlap %d: chunk %d is not valid UTF-8: %q", overlap, ch.ChunkIndex, ch.Text)
			}
		}
		if got := Reconstruct(Normalize(text), chunks); got != Normalize(text) {
			t.Errorf("overlap %d: reconstruction mismatch", overlap)
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	text := "One sentence here. Another one follows!\n\nA second paragraph with quite a few more words in it. It keeps going for a while to force splitting."
	c := New(60, 12)
	a := c.Chunk("p1", text)
	b := c.Chunk("p1", text)
	if !reflect.DeepEqual(a, b) {
		t.Error("chunking is not deterministic for identical input and config")
	}
}

func TestReconstruct(t *testing.T) {
	texts := []string{
		"Short paragraph.\n\nAnother short paragraph.",
		strings.Join([]string{
			"Transformers dispense with recurrence entirely. They rely on attention alone. This was a surprising result at the time.",
			"Later work questioned some of these claims. Results varied across tasks.",
		}, "\n\n"),
		strings.Repeat("x", 200),
	}
	for _, text := range texts {
		normalized := Normalize(text)
		for _, overlap := range []int{0, 10} {
			c := New(50, overlap)
			chunks := c.Chunk("p1", text)
			if got := Reconstruct(normalized, chunks); got != normalized {
				t.Errorf("overlap=%d: reconstruction mismatch:\n got %q\nwant %q", overlap, got, normalized)
			}
		}
	}
}

func TestNew_ClampsConfig(t *testing.T) {
	c := New(0, -1)
	if c.TargetSize() != 500 || c.Overlap() != 0 {
		t.Errorf("defaults: target=%d overlap=%d", c.TargetSize(), c.Overlap())
	}
	c = New(100, 90)
	if c.Overlap() != 50 {
		t.Errorf("overlap should clamp to half target, got %d", c.Overlap())
	}
}
