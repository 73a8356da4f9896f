// Package extract pulls plain text out of paper source files. Output feeds
// the chunker, which owns whitespace normalization; extractors only need to
// keep paragraph breaks as blank lines where the format has them.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the paper formats ingestion accepts.
var SupportedExtensions = []string{".pdf", ".docx", ".txt", ".md"}

// Extractor converts paper source files to plain text.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether path has an ingestable extension.
func (e *Extractor) Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on ext (leading dot
// included). Unsupported extensions are an error rather than a silent
// plain-text fallback, so a stray binary in a watched directory fails loudly.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".txt", ".md", "":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("unsupported format %q", ext)
	}
}
