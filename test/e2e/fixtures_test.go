package e2e

import (
	"strings"
	"testing"

	"github.com/hyperjump/tsunagu/internal/extract"
)

func TestFileBytes_AllExtensionsExtractable(t *testing.T) {
	e := extract.NewExtractor()
	sample := "Signature paragraph for extraction.\n\nBody paragraph with details."
	for _, ext := range FileExtensions {
		t.Run(ext, func(t *testing.T) {
			content := FileBytes(ext, sample)
			if len(content) == 0 {
				t.Fatal("empty file content")
			}
			got, err := e.ExtractBytes(content, ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if !strings.Contains(got, "Signature paragraph for extraction.") {
				t.Errorf("extracted text %q missing signature", got)
			}
			if !strings.Contains(got, "\n\n") {
				t.Errorf("extracted text lost the paragraph break: %q", got)
			}
		})
	}
}
