package models

import "fmt"

// SearchRequest is a semantic search request.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
	// MinSimilarity drops matches scoring below it. Zero means no threshold.
	MinSimilarity float64 `json:"min_similarity,omitempty"`
	// Filter restricts matches by metadata equality (e.g. {"year": 2021}).
	Filter map[string]interface{} `json:"filter,omitempty"`
}

// Validate checks the request without modifying it.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}

// Limit returns the effective result count for the request: TopK clamped to
// [1, max], with def standing in when TopK is unset. The request itself is
// never mutated, so callers keep ownership of it.
func (r *SearchRequest) Limit(def, max int) int {
	k := r.TopK
	if k <= 0 {
		k = def
	}
	if k <= 0 {
		k = 10
	}
	if max > 0 && k > max {
		k = max
	}
	return k
}
