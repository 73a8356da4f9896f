package e2e

import (
	"archive/zip"
	"bytes"
)

// FileExtensions are the formats exercised by the file-based pipeline test.
// PDF is covered by internal/extract tests; generating a minimal PDF with
// extractable text is not worth the fixture complexity here.
var FileExtensions = []string{".txt", ".md", ".docx"}

// FileBytes renders text as a file of the given extension.
func FileBytes(ext, text string) []byte {
	if ext == ".docx" {
		return minimalDocx(text)
	}
	return []byte(text)
}

func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}
