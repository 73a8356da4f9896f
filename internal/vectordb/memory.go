package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

// MemoryIndex is an in-process Index using brute-force scoring. It backs
// tests and the single-node "memory" mode; contents are not persisted.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	metric    string
	records   []models.VectorRecord // insertion order, which also breaks score ties
	byID      map[string]int
}

// NewMemoryIndex creates an empty in-memory index. Dimension and metric are
// set by CreateCollection.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{byID: make(map[string]int)}
}

// CreateCollection configures dimension and metric. Re-creating with the same
// parameters is a no-op; differing parameters fail with ErrCollectionConflict
// once records exist.
func (m *MemoryIndex) CreateCollection(ctx context.Context, dimension int, metric string) error {
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	switch metric {
	case MetricCosine, MetricEuclidean, MetricDot:
	default:
		return fmt.Errorf("unsupported metric %q", metric)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimension == 0 {
		m.dimension = dimension
		m.metric = metric
		return nil
	}
	if m.dimension == dimension && m.metric == metric {
		return nil
	}
	if len(m.records) > 0 {
		return fmt.Errorf("%w: existing dimension=%d metric=%s, requested dimension=%d metric=%s",
			ErrCollectionConflict, m.dimension, m.metric, dimension, metric)
	}
	m.dimension = dimension
	m.metric = metric
	return nil
}

// Upsert inserts records, replacing any with the same ID in place so the
// original insertion position (and FIFO tie order) is preserved.
func (m *MemoryIndex) Upsert(ctx context.Context, records []models.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimension == 0 {
		return fmt.Errorf("collection not created")
	}
	for _, r := range records {
		if len(r.Vector) != m.dimension {
			return fmt.Errorf("record %s: vector dimension %d, collection expects %d", r.ID, len(r.Vector), m.dimension)
		}
	}
	for _, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		r.Vector = vec
		if pos, ok := m.byID[r.ID]; ok {
			m.records[pos] = r
			continue
		}
		m.byID[r.ID] = len(m.records)
		m.records = append(m.records, r)
	}
	return nil
}

// Query scores every record and returns the topK best, ties FIFO.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]models.SearchMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dimension == 0 || len(m.records) == 0 || topK <= 0 {
		return nil, nil
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("query dimension %d, collection expects %d", len(vector), m.dimension)
	}
	type scored struct {
		pos   int
		score float64
	}
	var candidates []scored
	for pos, rec := range m.records {
		if !matchesFilter(&rec.Metadata, filter) {
			continue
		}
		candidates = append(candidates, scored{pos: pos, score: m.score(vector, rec.Vector)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if topK > len(candidates) {
		topK = len(candidates)
	}
	matches := make([]models.SearchMatch, topK)
	for i := 0; i < topK; i++ {
		rec := m.records[candidates[i].pos]
		matches[i] = models.SearchMatch{
			RecordID: rec.ID,
			Score:    candidates[i].score,
			Metadata: rec.Metadata,
		}
	}
	return matches, nil
}

// FetchByID returns a copy of the stored record or ErrNotFound.
func (m *MemoryIndex) FetchByID(ctx context.Context, id string) (*models.VectorRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec := m.records[pos]
	vec := make([]float32, len(rec.Vector))
	copy(vec, rec.Vector)
	rec.Vector = vec
	return &rec, nil
}

// Delete removes records by ID; unknown IDs are ignored.
func (m *MemoryIndex) Delete(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	for _, rec := range m.records {
		if !removeSet[rec.ID] {
			kept = append(kept, rec)
		}
	}
	m.records = kept
	m.byID = make(map[string]int, len(m.records))
	for pos, rec := range m.records {
		m.byID[rec.ID] = pos
	}
	return nil
}

// DeleteCollection clears all records and the collection schema.
func (m *MemoryIndex) DeleteCollection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	m.byID = make(map[string]int)
	m.dimension = 0
	m.metric = ""
	return nil
}

// Count returns the number of stored records.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error { return nil }

// score maps vector distance to a higher-is-more-similar score for the
// collection metric. Euclidean distance inverts to 1/(1+d).
func (m *MemoryIndex) score(query, stored []float32) float64 {
	switch m.metric {
	case MetricDot:
		var dot float64
		for i := range query {
			dot += float64(query[i]) * float64(stored[i])
		}
		return dot
	case MetricEuclidean:
		var sum float64
		for i := range query {
			d := float64(query[i]) - float64(stored[i])
			sum += d * d
		}
		return 1.0 / (1.0 + math.Sqrt(sum))
	default:
		return utils.CosineSimilarity(query, stored)
	}
}

// matchesFilter reports whether metadata satisfies every filter key by
// equality. Numeric values compare as float64 regardless of original type.
func matchesFilter(meta *models.RecordMetadata, filter map[string]interface{}) bool {
	if len(filter) == 0 {
		return true
	}
	flat := meta.ToMap()
	for k, want := range filter {
		got, ok := flat[k]
		if !ok || !valueEqual(got, want) {
			return false
		}
	}
	return true
}

func valueEqual(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return a == b
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
