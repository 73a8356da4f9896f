package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/tsunagu/internal/catalog"
	"github.com/hyperjump/tsunagu/internal/chunker"
	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/ingest"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/paperid"
	"github.com/hyperjump/tsunagu/internal/search"
	"github.com/hyperjump/tsunagu/internal/vectordb"
)

const e2eDimensions = 8

type pipeline struct {
	index   *vectordb.MemoryIndex
	catalog *catalog.Catalog
	orch    *ingest.Orchestrator
	engine  *search.Engine
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	idx := vectordb.NewMemoryIndex()
	emb := embedding.NewMockEmbedder(e2eDimensions)
	if err := idx.CreateCollection(context.Background(), e2eDimensions, vectordb.MetricCosine); err != nil {
		t.Fatal(err)
	}
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "papers.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cat.Close() })

	cfg := &config.SearchConfig{DefaultTopK: 10, MaxTopK: 100, CandidateMultiplier: 3, ContrastWeight: 0.3}
	return &pipeline{
		index:   idx,
		catalog: cat,
		orch:    ingest.NewOrchestrator(chunker.New(500, 50), emb, idx, ingest.WithCatalog(cat)),
		engine:  search.NewEngine(emb, idx, cfg),
	}
}

func TestEndToEnd_IngestSearchRemove(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	corpus := BuildCorpus(2)
	for _, doc := range corpus.Papers {
		if _, err := p.orch.IngestText(ctx, doc.ID, doc.Text, doc.Meta()); err != nil {
			t.Fatalf("ingest %s: %v", doc.ID, err)
		}
	}
	papers, chunks, err := p.catalog.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if int(papers) != len(corpus.Papers) {
		t.Fatalf("catalog has %d papers, want %d", papers, len(corpus.Papers))
	}
	if int(chunks) != 2*len(corpus.Papers) {
		t.Fatalf("catalog has %d chunks, want %d", chunks, 2*len(corpus.Papers))
	}

	for _, tc := range corpus.Cases {
		t.Run(tc.Description, func(t *testing.T) {
			matches, err := p.engine.Search(ctx, &models.SearchRequest{Query: tc.Query, TopK: 10})
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(matches) == 0 {
				t.Fatal("no matches")
			}
			// The query is the chunk's exact text, so cosine score 1 puts
			// it on top of the whole corpus.
			if got := matches[0].Metadata.PaperID; got != tc.PaperID {
				t.Errorf("top match paper = %s, want %s", got, tc.PaperID)
			}
		})
	}

	victim := corpus.Papers[0]
	if err := p.orch.RemovePaper(ctx, victim.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	matches, err := p.engine.Search(ctx, &models.SearchRequest{Query: corpus.Cases[0].Query, TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range matches {
		if m.Metadata.PaperID == victim.ID {
			t.Errorf("removed paper %s still in results", victim.ID)
		}
	}
	papers, _, err = p.catalog.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if int(papers) != len(corpus.Papers)-1 {
		t.Errorf("catalog has %d papers after removal, want %d", papers, len(corpus.Papers)-1)
	}
}

// TestEndToEnd_FileIngestSearch writes the corpus to disk as .txt, .md and
// .docx files and runs the same queries against IngestDirectory output.
// Paper IDs are derived from file paths.
func TestEndToEnd_FileIngestSearch(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	docDir := filepath.Join(t.TempDir(), "papers")
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		t.Fatal(err)
	}

	corpus := BuildCorpus(1)
	fileDocID := make(map[string]string, len(corpus.Papers))
	for i, doc := range corpus.Papers {
		ext := FileExtensions[i%len(FileExtensions)]
		path := filepath.Join(docDir, doc.ID+ext)
		if err := os.WriteFile(path, FileBytes(ext, doc.Text), 0o644); err != nil {
			t.Fatal(err)
		}
		fileDocID[doc.ID] = paperid.FromPath(path)
	}

	summary, err := p.orch.IngestDirectory(ctx, docDir, nil)
	if err != nil {
		t.Fatalf("ingest directory: %v", err)
	}
	if summary.Processed != len(corpus.Papers) || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want %d processed", summary, len(corpus.Papers))
	}

	for _, tc := range corpus.Cases {
		t.Run(tc.Description, func(t *testing.T) {
			matches, err := p.engine.Search(ctx, &models.SearchRequest{Query: tc.Query, TopK: 10})
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(matches) == 0 {
				t.Fatal("no matches")
			}
			if got, want := matches[0].Metadata.PaperID, fileDocID[tc.PaperID]; got != want {
				t.Errorf("top match paper = %s, want %s", got, want)
			}
		})
	}
}

func TestEndToEnd_RelatedPapers(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	corpus := BuildCorpus(1)
	seed := corpus.Papers[:3]
	for _, doc := range seed {
		if _, err := p.orch.IngestText(ctx, doc.ID, doc.Text, doc.Meta()); err != nil {
			t.Fatal(err)
		}
	}

	related, err := p.engine.FindRelated(ctx, seed[0].ID, 5)
	if err != nil {
		t.Fatalf("related: %v", err)
	}
	seen := make(map[string]bool)
	for _, r := range related {
		if r.PaperID == seed[0].ID {
			t.Errorf("related papers include the paper itself")
		}
		if seen[r.PaperID] {
			t.Errorf("paper %s listed twice", r.PaperID)
		}
		seen[r.PaperID] = true
	}
	if len(related) != 2 {
		t.Errorf("got %d related papers, want 2", len(related))
	}
}

func TestEndToEnd_ContradictionDetection(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	docs := []PaperDoc{
		{ID: "claim-paper", Title: "For", Text: "Dropout improves generalization on image benchmarks."},
		{ID: "counter-paper", Title: "Against", Text: "Dropout does not improve generalization on image benchmarks in our replication."},
		{ID: "orthogonal-paper", Title: "Elsewhere", Text: "Graph neural networks aggregate messages from neighboring nodes."},
	}
	for _, doc := range docs {
		if _, err := p.orch.IngestText(ctx, doc.ID, doc.Text, doc.Meta()); err != nil {
			t.Fatal(err)
		}
	}

	out, err := p.engine.FindContradictions(ctx, "Dropout improves generalization on image benchmarks.", 5)
	if err != nil {
		t.Fatalf("contradictions: %v", err)
	}
	byPaper := make(map[string]float64)
	for _, c := range out {
		byPaper[c.Metadata.PaperID] = c.ContrastScore
	}
	if score, ok := byPaper["counter-paper"]; !ok || score <= 0 {
		t.Errorf("counter-paper contrast = %f (present=%v), want > 0", score, ok)
	}
	if score := byPaper["orthogonal-paper"]; score != 0 {
		t.Errorf("orthogonal-paper contrast = %f, want 0", score)
	}
}
