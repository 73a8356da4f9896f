package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/models"
)

// MetaFunc supplies document-level metadata for a file path. A nil MetaFunc
// means no metadata beyond what IngestFile derives itself.
type MetaFunc func(path string) models.PaperMeta

// IngestFiles ingests paths concurrently with the configured worker count.
// One bad file never aborts the run; its error lands in the summary keyed by
// path. Cancellation stops dispatching new files but lets in-flight ones
// finish, so no paper is left half-indexed by the cancel itself.
func (o *Orchestrator) IngestFiles(ctx context.Context, paths []string, metaFor MetaFunc) *models.BatchSummary {
	summary := &models.BatchSummary{Failures: make(map[string]string)}
	if len(paths) == 0 {
		return summary
	}

	// Every log line from this run carries the same batch id.
	log := o.log.With(zap.String("batch_id", uuid.NewString()))

	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := o.workers
	if workers > len(paths) {
		workers = len(paths)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				var meta models.PaperMeta
				if metaFor != nil {
					meta = metaFor(path)
				}
				_, err := o.IngestFile(ctx, path, meta)
				mu.Lock()
				if err != nil {
					summary.Failed++
					summary.Failures[path] = err.Error()
				} else {
					summary.Processed++
				}
				mu.Unlock()
				if err != nil {
					log.Warn("ingest failed", zap.String("path", path), zap.Error(err))
				}
			}
		}()
	}

dispatch:
	for _, path := range paths {
		select {
		case jobs <- path:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	log.Info("batch ingest finished",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed))
	return summary
}

// IngestDirectory walks dir and ingests every supported paper file found.
// Files are dispatched in sorted path order so runs are reproducible.
func (o *Orchestrator) IngestDirectory(ctx context.Context, dir string, metaFor MetaFunc) (*models.BatchSummary, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if o.extractor.Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return o.IngestFiles(ctx, paths, metaFor), nil
}
