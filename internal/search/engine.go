// Package search answers semantic queries over ingested papers: free-text
// search, related-paper discovery, and contradiction candidates.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/vectordb"
)

// ErrUnavailable indicates a query could not be answered because the
// embedder or the index failed. The query may be retried as-is.
var ErrUnavailable = errors.New("search unavailable")

// ErrPaperNotFound indicates the requested paper has no records in the index.
var ErrPaperNotFound = errors.New("paper not indexed")

// RelatedPaper is one entry in a related-papers result: the best-matching
// chunk of a distinct paper.
type RelatedPaper struct {
	PaperID   string  `json:"paper_id"`
	Title     string  `json:"title"`
	Score     float64 `json:"similarity_score"`
	BestChunk int     `json:"best_chunk_index"`
	Snippet   string  `json:"snippet,omitempty"`
}

// Contradiction is a candidate counter-claim for a queried statement.
type Contradiction struct {
	models.SearchMatch
	ContrastScore float64 `json:"contrast_score"`
	CombinedScore float64 `json:"combined_score"`
}

// Engine runs retrieval over one embedder and index pair.
type Engine struct {
	embedder embedding.Embedder
	index    vectordb.Index
	contrast ContrastScorer
	cfg      *config.SearchConfig
	log      *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithContrastScorer replaces the default marker-based contrast heuristic.
func WithContrastScorer(s ContrastScorer) EngineOption {
	return func(e *Engine) { e.contrast = s }
}

// NewEngine creates a search engine.
func NewEngine(emb embedding.Embedder, idx vectordb.Index, cfg *config.SearchConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		embedder: emb,
		index:    idx,
		contrast: NewMarkerScorer(),
		cfg:      cfg,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search embeds the query and returns the top matching chunks. Results below
// req.MinSimilarity are dropped after an over-fetch, so a tight threshold
// still fills the requested page when enough candidates clear it.
func (e *Engine) Search(ctx context.Context, req *models.SearchRequest) ([]models.SearchMatch, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	topK := req.Limit(e.cfg.DefaultTopK, e.cfg.MaxTopK)
	started := time.Now()

	vec, err := e.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrUnavailable, err)
	}

	fetch := topK
	if req.MinSimilarity > 0 {
		fetch = topK * e.candidateMultiplier()
	}
	matches, err := e.index.Query(ctx, vec, fetch, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if req.MinSimilarity > 0 {
		kept := matches[:0]
		for _, m := range matches {
			if m.Score >= req.MinSimilarity {
				kept = append(kept, m)
			}
		}
		matches = kept
	}
	if len(matches) > topK {
		matches = matches[:topK]
	}

	e.log.Debug("search done",
		zap.String("query", req.Query),
		zap.Int("matches", len(matches)),
		zap.Duration("took", time.Since(started)))
	return matches, nil
}

// FindRelated returns papers similar to the given one, ranked by the best
// chunk-to-chunk similarity. The paper is represented by its first chunk,
// which for papers holds the title and abstract region.
func (e *Engine) FindRelated(ctx context.Context, paperID string, topK int) ([]RelatedPaper, error) {
	if topK <= 0 {
		topK = e.cfg.DefaultTopK
	}
	rec, err := e.index.FetchByID(ctx, models.ChunkRecordID(paperID, 0))
	if errors.Is(err, vectordb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPaperNotFound, paperID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Over-fetch to survive dropping the paper's own chunks and per-paper dedup.
	fetch := topK * e.candidateMultiplier()
	matches, err := e.index.Query(ctx, rec.Vector, fetch, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	best := make(map[string]models.SearchMatch)
	var order []string
	for _, m := range matches {
		pid := m.Metadata.PaperID
		if pid == paperID || pid == "" {
			continue
		}
		if prev, seen := best[pid]; !seen || m.Score > prev.Score {
			if !seen {
				order = append(order, pid)
			}
			best[pid] = m
		}
	}

	related := make([]RelatedPaper, 0, len(order))
	for _, pid := range order {
		m := best[pid]
		related = append(related, RelatedPaper{
			PaperID:   pid,
			Title:     m.Metadata.Title,
			Score:     m.Score,
			BestChunk: m.Metadata.ChunkIndex,
			Snippet:   m.Metadata.ChunkText,
		})
	}
	sort.SliceStable(related, func(i, j int) bool { return related[i].Score > related[j].Score })
	if len(related) > topK {
		related = related[:topK]
	}
	return related, nil
}

// FindContradictions retrieves chunks topically close to a claim and
// re-ranks them by a blend of similarity and contrast markers. High combined
// scores are candidates for human review, not verdicts.
func (e *Engine) FindContradictions(ctx context.Context, claim string, topK int) ([]Contradiction, error) {
	req := &models.SearchRequest{Query: claim, TopK: topK}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	topK = req.Limit(e.cfg.DefaultTopK, e.cfg.MaxTopK)

	vec, err := e.embedder.Embed(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("%w: embed claim: %v", ErrUnavailable, err)
	}
	matches, err := e.index.Query(ctx, vec, topK*e.candidateMultiplier(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	w := e.cfg.ContrastWeight
	if w <= 0 || w > 1 {
		w = 0.3
	}
	out := make([]Contradiction, 0, len(matches))
	for _, m := range matches {
		contrast := e.contrast.Score(claim, m.Metadata.ChunkText)
		out = append(out, Contradiction{
			SearchMatch:   m,
			ContrastScore: contrast,
			CombinedScore: (1-w)*m.Score + w*contrast,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CombinedScore > out[j].CombinedScore })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (e *Engine) candidateMultiplier() int {
	if e.cfg.CandidateMultiplier > 1 {
		return e.cfg.CandidateMultiplier
	}
	return 3
}
