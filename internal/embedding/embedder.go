// Package embedding provides text embedding for chunks and queries.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable indicates the embedding model could not be loaded or
// reached. Fatal for the document or query in progress, not for the process.
var ErrUnavailable = errors.New("embedding model unavailable")

// Embedder produces fixed-dimension vector embeddings for text.
// Implementations must be deterministic: the same text and configuration
// always yield the same vector (modulo floating-point rounding), and
// EmbedBatch must agree with Embed for each element.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds texts preserving order; the result has the same
	// length as the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// EmbedAll embeds texts through e in sub-batches of at most batchSize,
// preserving input order. Batching is an efficiency measure only; results are
// identical to embedding each text alone. batchSize <= 0 means one batch.
func EmbedAll(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 || batchSize >= len(texts) {
		return e.EmbedBatch(ctx, texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}
