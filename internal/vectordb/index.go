// Package vectordb abstracts the external similarity index: collection
// lifecycle, vector upsert, and top-k similarity queries with metadata
// filtering. The index owns records once upserted.
package vectordb

import (
	"context"

	"github.com/hyperjump/tsunagu/internal/models"
)

// Supported distance metrics for a collection.
const (
	MetricCosine    = "cosine"
	MetricEuclidean = "euclidean"
	MetricDot       = "dot"
)

// Index is a collection-oriented similarity store.
type Index interface {
	// CreateCollection ensures the collection exists with the given dimension
	// and metric. Idempotent for identical parameters; differing parameters
	// on an existing non-empty collection fail with ErrCollectionConflict.
	CreateCollection(ctx context.Context, dimension int, metric string) error

	// Upsert inserts or replaces records. Atomic at batch granularity: on
	// error the caller must assume none or all of the batch was applied and
	// decide whether to retry the whole batch.
	Upsert(ctx context.Context, records []models.VectorRecord) error

	// Query returns up to topK matches sorted by descending similarity.
	// Ties break by stored insertion order (FIFO) so repeated identical
	// queries are deterministic. filter restricts matches by metadata
	// equality; nil means no filter. An empty collection yields an empty
	// result, not an error.
	Query(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]models.SearchMatch, error)

	// FetchByID returns the stored record or ErrNotFound.
	FetchByID(ctx context.Context, id string) (*models.VectorRecord, error)

	// Delete removes records by ID. Missing IDs are not an error.
	Delete(ctx context.Context, ids []string) error

	// DeleteCollection drops the collection and all its records.
	DeleteCollection(ctx context.Context) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	Close() error
}
