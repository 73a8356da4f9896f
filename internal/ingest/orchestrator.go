// Package ingest turns paper files into indexed vector records: extract,
// chunk, embed, upsert, catalog. A paper is either fully indexed or absent;
// partial failures are rolled back by deleting whatever records were written.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/catalog"
	"github.com/hyperjump/tsunagu/internal/chunker"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/extract"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/paperid"
	"github.com/hyperjump/tsunagu/internal/vectordb"
)

// ErrEmptyDocument indicates the document contained no usable text after
// normalization. The paper is rejected before anything is written.
var ErrEmptyDocument = errors.New("document has no indexable text")

// Orchestrator runs the ingestion pipeline.
type Orchestrator struct {
	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	index     vectordb.Index
	extractor *extract.Extractor
	catalog   *catalog.Catalog
	batchSize int
	workers   int
	log       *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCatalog records ingested papers in a catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *Orchestrator) { o.catalog = c }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithEmbedBatchSize bounds how many chunk texts go to the embedder at once.
func WithEmbedBatchSize(n int) Option {
	return func(o *Orchestrator) { o.batchSize = n }
}

// WithWorkers bounds concurrent per-document ingestion in batch runs.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(ch *chunker.Chunker, emb embedding.Embedder, idx vectordb.Index, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		chunker:   ch,
		embedder:  emb,
		index:     idx,
		extractor: extract.NewExtractor(),
		batchSize: 32,
		workers:   4,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// EnsureCollection creates the index collection for this embedder's
// dimension. Call once at startup; a schema mismatch with an existing
// collection surfaces as vectordb.ErrCollectionConflict.
func (o *Orchestrator) EnsureCollection(ctx context.Context, metric string) error {
	return o.index.CreateCollection(ctx, o.embedder.Dimensions(), metric)
}

// IngestText indexes one paper from already-extracted text. On success every
// chunk is in the index and the catalog knows the paper; on error the index
// holds none of this paper's new records.
func (o *Orchestrator) IngestText(ctx context.Context, paperID, text string, meta models.PaperMeta) (*models.IngestResult, error) {
	started := time.Now()
	chunks := o.chunker.Chunk(paperID, text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: paper %s", ErrEmptyDocument, paperID)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := embedding.EmbedAll(ctx, o.embedder, texts, o.batchSize)
	if err != nil {
		return nil, fmt.Errorf("embed paper %s: %w", paperID, err)
	}

	records := make([]models.VectorRecord, len(chunks))
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		records[i] = models.VectorRecord{
			ID:     ch.RecordID(),
			Vector: vectors[i],
			Metadata: models.RecordMetadata{
				PaperID:    paperID,
				Title:      meta.Title,
				Authors:    meta.Authors,
				Year:       meta.Year,
				ChunkIndex: ch.ChunkIndex,
				ChunkText:  ch.Text,
				Extra:      meta.Extra,
			},
		}
		ids[i] = records[i].ID
	}

	if err := o.index.Upsert(ctx, records); err != nil {
		o.compensate(ctx, paperID, ids)
		return nil, fmt.Errorf("index paper %s: %w", paperID, err)
	}

	// A shorter re-ingest leaves stale tail records from the previous run;
	// remove them now that the new records are committed.
	o.dropStaleTail(ctx, paperID, len(chunks))

	if o.catalog != nil {
		entry := &models.Paper{
			ID:         paperID,
			Title:      meta.Title,
			Authors:    meta.Authors,
			Year:       meta.Year,
			ChunkCount: len(chunks),
		}
		if meta.Extra != nil {
			if src, ok := meta.Extra["source_path"].(string); ok {
				entry.SourcePath = src
			}
		}
		if err := o.catalog.Put(ctx, entry); err != nil {
			o.log.Warn("catalog update failed", zap.String("paper_id", paperID), zap.Error(err))
		}
	}

	o.log.Info("paper ingested",
		zap.String("paper_id", paperID),
		zap.Int("chunks", len(chunks)),
		zap.Duration("took", time.Since(started)))
	return &models.IngestResult{PaperID: paperID, ChunksCreated: len(chunks)}, nil
}

// IngestFile extracts, identifies, and indexes one paper file. The paper ID
// derives from the path, so re-ingesting the same file replaces its records.
func (o *Orchestrator) IngestFile(ctx context.Context, path string, meta models.PaperMeta) (*models.IngestResult, error) {
	text, err := o.extractor.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	id := paperid.FromPath(path)
	if meta.Title == "" {
		meta.Title = paperid.Slug(id)
	}
	if meta.Extra == nil {
		meta.Extra = map[string]interface{}{}
	}
	meta.Extra["source_path"] = path
	return o.IngestText(ctx, id, text, meta)
}

// RemovePaper deletes a paper's records from the index and its catalog
// entry. Unknown papers return catalog.ErrNotFound when a catalog is
// configured; without one the index delete runs blind against chunk 0..n
// probed via FetchByID.
func (o *Orchestrator) RemovePaper(ctx context.Context, paperID string) error {
	var count int
	if o.catalog != nil {
		entry, err := o.catalog.Get(ctx, paperID)
		if err != nil {
			return err
		}
		count = entry.ChunkCount
	} else {
		for {
			_, err := o.index.FetchByID(ctx, models.ChunkRecordID(paperID, count))
			if errors.Is(err, vectordb.ErrNotFound) {
				break
			}
			if err != nil {
				return fmt.Errorf("probe paper %s: %w", paperID, err)
			}
			count++
		}
	}
	ids := make([]string, count)
	for i := range ids {
		ids[i] = models.ChunkRecordID(paperID, i)
	}
	if err := o.index.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete paper %s: %w", paperID, err)
	}
	if o.catalog != nil {
		if err := o.catalog.Delete(ctx, paperID); err != nil && !errors.Is(err, catalog.ErrNotFound) {
			return err
		}
	}
	o.log.Info("paper removed", zap.String("paper_id", paperID), zap.Int("chunks", count))
	return nil
}

// Reset drops the collection and clears the catalog.
func (o *Orchestrator) Reset(ctx context.Context) error {
	if err := o.index.DeleteCollection(ctx); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	if o.catalog != nil {
		if err := o.catalog.Clear(ctx); err != nil {
			return fmt.Errorf("clear catalog: %w", err)
		}
	}
	return nil
}

// compensate removes whatever records a failed upsert may have written.
// Runs detached from ctx so a cancelled ingest still cleans up.
func (o *Orchestrator) compensate(ctx context.Context, paperID string, ids []string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := o.index.Delete(cleanupCtx, ids); err != nil {
		o.log.Warn("rollback delete failed, index may hold partial paper",
			zap.String("paper_id", paperID), zap.Error(err))
		return
	}
	o.log.Debug("rolled back partial ingest", zap.String("paper_id", paperID), zap.Int("records", len(ids)))
}

// dropStaleTail removes record IDs past newCount left over from a previous,
// longer ingest of the same paper.
func (o *Orchestrator) dropStaleTail(ctx context.Context, paperID string, newCount int) {
	if o.catalog == nil {
		return
	}
	prev, err := o.catalog.Get(ctx, paperID)
	if err != nil || prev.ChunkCount <= newCount {
		return
	}
	stale := make([]string, 0, prev.ChunkCount-newCount)
	for i := newCount; i < prev.ChunkCount; i++ {
		stale = append(stale, models.ChunkRecordID(paperID, i))
	}
	if err := o.index.Delete(ctx, stale); err != nil {
		o.log.Warn("stale chunk cleanup failed",
			zap.String("paper_id", paperID), zap.Int("stale", len(stale)), zap.Error(err))
	}
}
