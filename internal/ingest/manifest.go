package ingest

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/tsunagu/internal/models"
)

// Manifest maps paper filenames to document-level metadata, loaded from a
// spreadsheet maintained alongside the paper files.
type Manifest struct {
	entries map[string]models.PaperMeta
}

// LoadManifest reads an xlsx manifest. The first sheet must carry a header
// row; recognized columns are "filename", "title", "authors" and "year"
// (case-insensitive), any other column lands in Extra under its lowercased
// header. Rows without a filename are skipped.
func LoadManifest(path string) (*Manifest, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("manifest has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read manifest sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return &Manifest{entries: map[string]models.PaperMeta{}}, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	m := &Manifest{entries: make(map[string]models.PaperMeta, len(rows)-1)}
	for _, row := range rows[1:] {
		var filename string
		var meta models.PaperMeta
		for i, cell := range row {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			switch header[i] {
			case "filename", "file":
				filename = cell
			case "title":
				meta.Title = cell
			case "authors":
				meta.Authors = cell
			case "year":
				if y, err := strconv.Atoi(cell); err == nil {
					meta.Year = y
				}
			default:
				if meta.Extra == nil {
					meta.Extra = make(map[string]interface{})
				}
				meta.Extra[header[i]] = cell
			}
		}
		if filename == "" {
			continue
		}
		m.entries[filename] = meta
	}
	return m, nil
}

// Len returns the number of manifest entries.
func (m *Manifest) Len() int { return len(m.entries) }

// MetaFor returns the metadata for a file, matched by base name.
func (m *Manifest) MetaFor(path string) models.PaperMeta {
	return m.entries[filepath.Base(path)]
}

// MetaFunc adapts the manifest for IngestFiles.
func (m *Manifest) MetaFunc() MetaFunc {
	if m == nil {
		return nil
	}
	return m.MetaFor
}
