package chunker

import (
	"strings"
	"unicode"
)

// Normalize cleans raw extracted text before chunking: line endings become
// "\n", control characters are dropped, runs of spaces and tabs collapse to a
// single space, spaces around line breaks are trimmed, and three or more
// consecutive newlines collapse to exactly two. The result is trimmed; blank
// or whitespace-only input yields "".
//
// After Normalize the paragraph separator is always exactly "\n\n", which the
// chunker relies on when computing character offsets.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	newlines := 0
	for _, r := range text {
		switch {
		case r == '\n':
			pendingSpace = false
			newlines++
		case r == ' ' || r == '\t' || unicode.IsSpace(r):
			if newlines == 0 {
				pendingSpace = true
			}
		case unicode.IsControl(r):
			// PDF extraction artifacts; drop.
		default:
			if newlines > 0 {
				if b.Len() > 0 {
					if newlines > 2 {
						newlines = 2
					}
					for i := 0; i < newlines; i++ {
						b.WriteByte('\n')
					}
				}
				newlines = 0
			} else if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// paragraph is a span of normalized text with its byte offset.
type paragraph struct {
	text  string
	start int
}

// splitParagraphs splits normalized text into paragraphs on blank lines,
// keeping each paragraph's byte offset into the normalized text.
func splitParagraphs(normalized string) []paragraph {
	var paras []paragraph
	offset := 0
	for _, part := range strings.Split(normalized, "\n\n") {
		if strings.TrimSpace(part) != "" {
			paras = append(paras, paragraph{text: part, start: offset})
		}
		offset += len(part) + 2
	}
	return paras
}
