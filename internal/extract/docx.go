package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const docxDocumentPath = "word/document.xml"

var (
	// wpBlock matches one <w:p> paragraph element including attributes.
	wpBlock = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	// wtText matches the inner text of a <w:t> run, attributes allowed.
	wtText = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
)

var xmlUnescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// extractDOCX extracts text from .docx bytes. A docx is a zip whose body
// lives in word/document.xml; text runs are collected per <w:p> paragraph so
// paragraph structure survives as blank lines for the chunker.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx: not a zip: %w", err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docxDocumentPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", f.Name, err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", f.Name, err)
		}
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("docx missing %s", docxDocumentPath)
	}

	var paragraphs []string
	for _, block := range wpBlock.FindAllString(string(docXML), -1) {
		runs := wtText.FindAllStringSubmatch(block, -1)
		if len(runs) == 0 {
			continue
		}
		var b strings.Builder
		for _, r := range runs {
			b.WriteString(xmlUnescaper.Replace(r[1]))
		}
		if p := strings.TrimSpace(b.String()); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return strings.Join(paragraphs, "\n\n"), nil
}
