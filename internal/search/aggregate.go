package search

import (
	"sort"

	"github.com/hyperjump/tsunagu/internal/models"
)

// PaperMatches is one paper's slice of a result set.
type PaperMatches struct {
	PaperID   string               `json:"paper_id"`
	Title     string               `json:"title,omitempty"`
	BestScore float64              `json:"best_score"`
	Matches   []models.SearchMatch `json:"matches"`
}

// AggregateByPaper groups matches by paper. Matches inside a group keep
// score-descending order; groups are ordered by their best score, with the
// group seen first winning ties, so the output is deterministic for a given
// input order.
func AggregateByPaper(matches []models.SearchMatch) []PaperMatches {
	byPaper := make(map[string]int)
	var groups []PaperMatches
	for _, m := range matches {
		pid := m.Metadata.PaperID
		if pid == "" {
			continue
		}
		i, seen := byPaper[pid]
		if !seen {
			i = len(groups)
			byPaper[pid] = i
			groups = append(groups, PaperMatches{PaperID: pid, Title: m.Metadata.Title})
		}
		groups[i].Matches = append(groups[i].Matches, m)
	}
	for i := range groups {
		g := &groups[i]
		sort.SliceStable(g.Matches, func(a, b int) bool { return g.Matches[a].Score > g.Matches[b].Score })
		g.BestScore = g.Matches[0].Score
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].BestScore > groups[b].BestScore })
	return groups
}
