package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/tsunagu/internal/chunker"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/vectordb"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestIngestFilesIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	o, idx, _ := newTestOrchestrator(t)
	dir := t.TempDir()

	good1 := writeFixture(t, dir, "a.txt", "Paragraph about graph neural networks.")
	bad := writeFixture(t, dir, "b.txt", "   \n\n   ")
	good2 := writeFixture(t, dir, "c.md", "Paragraph about contrastive learning.")

	summary := o.IngestFiles(ctx, []string{good1, bad, good2}, nil)
	if summary.Processed != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 2 processed 1 failed", summary)
	}
	if _, ok := summary.Failures[bad]; !ok {
		t.Errorf("failure not keyed by path: %v", summary.Failures)
	}
	if n, _ := idx.Count(ctx); n != 2 {
		t.Errorf("index count = %d, want 2", n)
	}
}

func TestIngestDirectorySkipsUnsupported(t *testing.T) {
	ctx := context.Background()
	o, _, cat := newTestOrchestrator(t)
	dir := t.TempDir()

	writeFixture(t, dir, "paper.txt", "A paragraph of real content here.")
	writeFixture(t, dir, "data.csv", "a,b,c")
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFixture(t, sub, "deep.md", "Another paragraph of real content.")

	summary, err := o.IngestDirectory(ctx, dir, nil)
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	if summary.Processed != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 2 processed 0 failed", summary)
	}
	papers, _, err := cat.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if papers != 2 {
		t.Errorf("catalog papers = %d, want 2", papers)
	}
}

// blockingEmbedder parks until its context is cancelled.
type blockingEmbedder struct{ dims int }

func (b *blockingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingEmbedder) Dimensions() int { return b.dims }
func (b *blockingEmbedder) Close() error    { return nil }

func TestIngestFilesStopsOnCancellation(t *testing.T) {
	idx := vectordb.NewMemoryIndex()
	if err := idx.CreateCollection(context.Background(), testDims, vectordb.MetricCosine); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	o := NewOrchestrator(chunker.New(80, 10), &blockingEmbedder{dims: testDims}, idx, WithWorkers(1))

	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		paths = append(paths, writeFixture(t, dir, name, "Some paragraph content."))
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	summary := o.IngestFiles(ctx, paths, nil)
	if summary.Processed != 0 {
		t.Errorf("processed = %d after cancellation, want 0", summary.Processed)
	}
	if summary.Failed == 0 {
		t.Error("expected at least one recorded failure from the cancelled in-flight file")
	}
	if n, _ := idx.Count(context.Background()); n != 0 {
		t.Errorf("index count = %d, want 0", n)
	}
}

func TestIngestFilesEmptyInput(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	summary := o.IngestFiles(context.Background(), nil, nil)
	if summary.Processed != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want zeroes", summary)
	}
}

func TestIngestFilesUsesManifestMeta(t *testing.T) {
	ctx := context.Background()
	o, idx, _ := newTestOrchestrator(t)
	dir := t.TempDir()
	path := writeFixture(t, dir, "gan.txt", "A paragraph about generative adversarial networks.")

	metaFor := func(p string) models.PaperMeta {
		return models.PaperMeta{Title: "GANs", Authors: "Goodfellow et al.", Year: 2014}
	}
	summary := o.IngestFiles(ctx, []string{path}, metaFor)
	if summary.Processed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	matches, err := idx.Query(ctx, mustEmbed(t, testDims, "generative adversarial"), 1, nil)
	if err != nil || len(matches) != 1 {
		t.Fatalf("Query: %v, %d matches", err, len(matches))
	}
	if matches[0].Metadata.Title != "GANs" || matches[0].Metadata.Year != 2014 {
		t.Errorf("metadata = %+v", matches[0].Metadata)
	}
}

func mustEmbed(t *testing.T, dims int, text string) []float32 {
	t.Helper()
	vec, err := embedding.NewMockEmbedder(dims).Embed(context.Background(), text)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	return vec
}
