// Package chunker splits normalized document text into paragraph-level chunks
// for embedding and retrieval.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/tsunagu/internal/models"
)

// Chunker splits text into paragraph-first chunks with bounded size.
//
// Paragraphs at or under the target size become one chunk each. A paragraph
// over the target size is split at sentence boundaries; a hard character cut
// at the target size is used only when no sentence boundary exists within a
// size-and-a-half window. When a paragraph had to be split, the tail of each
// piece is prepended to the next piece as overlap; no overlap is introduced
// across natural paragraph boundaries.
//
// Output is deterministic for identical input and configuration: chunk
// indices are dense from zero in source order, and CharStart/CharEnd are byte
// offsets of the non-overlap portion into the normalized text.
type Chunker struct {
	targetSize int
	overlap    int
}

// New creates a chunker. targetSize and overlap are in bytes of normalized
// text; non-positive targetSize falls back to 500, negative overlap to 0, and
// overlap is clamped to half the target size.
func New(targetSize, overlap int) *Chunker {
	if targetSize <= 0 {
		targetSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > targetSize/2 {
		overlap = targetSize / 2
	}
	return &Chunker{targetSize: targetSize, overlap: overlap}
}

// Chunk normalizes text and splits it into chunks for paperID.
// Empty or whitespace-only input yields an empty slice, not an error.
func (c *Chunker) Chunk(paperID, text string) []models.DocumentChunk {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	var chunks []models.DocumentChunk
	for _, para := range splitParagraphs(normalized) {
		pieces := c.splitParagraph(para.text)
		prevEnd := -1
		for _, p := range pieces {
			chunkText := para.text[p.start:p.end]
			// Overlap from the previous piece of the same paragraph.
			if prevEnd >= 0 && c.overlap > 0 {
				oStart := p.start - c.overlap
				if oStart < 0 {
					oStart = 0
				}
				for oStart < p.start && !utf8.RuneStart(para.text[oStart]) {
					oStart++
				}
				chunkText = para.text[oStart:p.start] + chunkText
			}
			chunks = append(chunks, models.DocumentChunk{
				PaperID:    paperID,
				ChunkIndex: len(chunks),
				Text:       chunkText,
				CharStart:  para.start + p.start,
				CharEnd:    para.start + p.end,
			})
			prevEnd = p.end
		}
	}
	return chunks
}

// TargetSize returns the configured chunk target size in bytes.
func (c *Chunker) TargetSize() int { return c.targetSize }

// Overlap returns the configured overlap in bytes.
func (c *Chunker) Overlap() int { return c.overlap }

type span struct {
	start, end int
}

// splitParagraph cuts one paragraph into spans no larger than the target size
// where a sentence boundary allows it. The search window for a boundary is
// 1.5x the target size; past that a hard cut at the target size is taken.
func (c *Chunker) splitParagraph(para string) []span {
	window := c.targetSize + c.targetSize/2
	var spans []span
	pos := 0
	for len(para)-pos > c.targetSize {
		limit := pos + window
		if limit > len(para) {
			limit = len(para)
		}
		cut := sentenceCut(para, pos, pos+c.targetSize, limit)
		if cut <= pos {
			cut = hardCut(para, pos, pos+c.targetSize)
		}
		spans = append(spans, span{start: pos, end: cut})
		pos = cut
		for pos < len(para) && para[pos] == ' ' {
			pos++
		}
	}
	if pos < len(para) {
		spans = append(spans, span{start: pos, end: len(para)})
	}
	return spans
}

// sentenceCut returns the cut position for para[pos:]: the last sentence end
// at or before target, else the first sentence end before limit, else 0.
// A sentence end is the position just past '.', '!' or '?' followed by a
// space, newline, or end of paragraph.
func sentenceCut(para string, pos, target, limit int) int {
	lastBeforeTarget := 0
	firstInWindow := 0
	for i := pos; i < limit && i < len(para); i++ {
		if !isSentencePunct(para[i]) {
			continue
		}
		next := i + 1
		if next < len(para) && para[next] != ' ' && para[next] != '\n' {
			continue
		}
		end := next
		if end <= pos || end > limit {
			continue
		}
		if end <= target {
			lastBeforeTarget = end
		} else if firstInWindow == 0 {
			firstInWindow = end
		}
	}
	if lastBeforeTarget > 0 {
		return lastBeforeTarget
	}
	return firstInWindow
}

func isSentencePunct(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// hardCut backs a byte-position cut off to the previous rune boundary so no
// chunk ever starts or ends inside a multi-byte rune. When backing off would
// empty the span the cut advances to the next boundary instead.
func hardCut(para string, pos, cut int) int {
	if cut >= len(para) {
		return len(para)
	}
	backed := cut
	for backed > pos && !utf8.RuneStart(para[backed]) {
		backed--
	}
	if backed > pos {
		return backed
	}
	for cut < len(para) && !utf8.RuneStart(para[cut]) {
		cut++
	}
	return cut
}

// OverlapLen returns the length of the overlap prefix carried by chunk:
// the part of Text that precedes the span [CharStart, CharEnd).
func OverlapLen(chunk models.DocumentChunk) int {
	return len(chunk.Text) - (chunk.CharEnd - chunk.CharStart)
}

// Reconstruct rebuilds the normalized source text from chunks in index order,
// dropping overlap prefixes and reinserting the separators recorded by the
// chunk offsets. It is the inverse of Chunk over normalized text and exists
// so callers (and tests) can verify lossless chunking.
func Reconstruct(normalized string, chunks []models.DocumentChunk) string {
	var b strings.Builder
	prevEnd := 0
	for i, ch := range chunks {
		if i > 0 {
			b.WriteString(normalized[prevEnd:ch.CharStart])
		}
		b.WriteString(ch.Text[OverlapLen(ch):])
		prevEnd = ch.CharEnd
	}
	return b.String()
}
