// Package cli renders command results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/search"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

// OutputFormat selects how results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// snippetLen bounds chunk text shown per result.
const snippetLen = 200

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteMatches renders search matches.
func WriteMatches(w io.Writer, matches []models.SearchMatch, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, matches)
	}
	fmt.Fprintf(w, "\nFound %d matching chunks\n\n", len(matches))
	for i, m := range matches {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%d. %s | score %.4f\n", i+1, m.RecordID, m.Score)
		if m.Metadata.Title != "" {
			fmt.Fprintf(w, "   %s", m.Metadata.Title)
			if m.Metadata.Year != 0 {
				fmt.Fprintf(w, " (%d)", m.Metadata.Year)
			}
			fmt.Fprintln(w)
		}
		if m.Metadata.ChunkText != "" {
			fmt.Fprintf(w, "\n%s\n", utils.Truncate(m.Metadata.ChunkText, snippetLen))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WritePaperGroups renders matches grouped by paper.
func WritePaperGroups(w io.Writer, groups []search.PaperMatches, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, groups)
	}
	fmt.Fprintf(w, "\nMatches in %d papers\n\n", len(groups))
	for _, g := range groups {
		fmt.Fprintln(w, rule)
		title := g.Title
		if title == "" {
			title = g.PaperID
		}
		fmt.Fprintf(w, "%s | best score %.4f (%d chunks)\n", title, g.BestScore, len(g.Matches))
		for _, m := range g.Matches {
			fmt.Fprintf(w, "   %s | %.4f\n", m.RecordID, m.Score)
			if m.Metadata.ChunkText != "" {
				fmt.Fprintf(w, "   %s\n", utils.Truncate(m.Metadata.ChunkText, snippetLen))
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteSummary renders a result summary ahead of other output.
func WriteSummary(w io.Writer, summary string, format OutputFormat) error {
	if summary == "" {
		return nil
	}
	if format == OutputJSON {
		return writeJSON(w, map[string]string{"summary": summary})
	}
	fmt.Fprintf(w, "\nSummary: %s\n", summary)
	return nil
}

// WriteRelated renders related-paper results.
func WriteRelated(w io.Writer, paperID string, related []search.RelatedPaper, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, related)
	}
	fmt.Fprintf(w, "\nPapers related to %s:\n\n", paperID)
	for i, r := range related {
		title := r.Title
		if title == "" {
			title = r.PaperID
		}
		fmt.Fprintf(w, "%d. %s | score %.4f (paper %s, chunk %d)\n", i+1, title, r.Score, r.PaperID, r.BestChunk)
		if r.Snippet != "" {
			fmt.Fprintf(w, "   %s\n", utils.Truncate(r.Snippet, snippetLen))
		}
	}
	return nil
}

// WriteContradictions renders contradiction candidates.
func WriteContradictions(w io.Writer, claim string, out []search.Contradiction, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, out)
	}
	fmt.Fprintf(w, "\nPossible counter-evidence for: %q\n\n", claim)
	for i, c := range out {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%d. %s | combined %.4f (similarity %.4f, contrast %.4f)\n",
			i+1, c.RecordID, c.CombinedScore, c.Score, c.ContrastScore)
		if c.Metadata.Title != "" {
			fmt.Fprintf(w, "   %s\n", c.Metadata.Title)
		}
		if c.Metadata.ChunkText != "" {
			fmt.Fprintf(w, "\n%s\n", utils.Truncate(c.Metadata.ChunkText, snippetLen))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WritePapers renders a catalog listing.
func WritePapers(w io.Writer, papers []*models.Paper, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, papers)
	}
	fmt.Fprintf(w, "\n%d papers in catalog\n\n", len(papers))
	for _, p := range papers {
		fmt.Fprintf(w, "%-40s  %4d chunks  %s\n", p.ID, p.ChunkCount, p.IngestedAt.Format("2006-01-02"))
		if p.Title != "" {
			fmt.Fprintf(w, "    %s", p.Title)
			if p.Authors != "" {
				fmt.Fprintf(w, " | %s", p.Authors)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

// WriteBatchSummary renders a batch ingest outcome.
func WriteBatchSummary(w io.Writer, summary *models.BatchSummary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, summary)
	}
	fmt.Fprintf(w, "\nIngested %d papers, %d failed\n", summary.Processed, summary.Failed)
	for path, msg := range summary.Failures {
		fmt.Fprintf(w, "  FAIL %s: %s\n", path, msg)
	}
	return nil
}

// ParseFormat maps a -format flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}
