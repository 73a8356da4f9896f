package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/tsunagu/internal/models"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCatalogPutGetDelete(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	p := &models.Paper{
		ID:         "bert-3f2a9c1b",
		Title:      "BERT: Pre-training of Deep Bidirectional Transformers",
		Authors:    "Devlin, Chang, Lee, Toutanova",
		Year:       2019,
		SourcePath: "/papers/bert.pdf",
		ChunkCount: 12,
	}
	if err := c.Put(ctx, p); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if p.IngestedAt.IsZero() {
		t.Error("Put did not set IngestedAt")
	}

	got, err := c.Get(ctx, "bert-3f2a9c1b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != p.Title || got.Year != 2019 || got.ChunkCount != 12 {
		t.Errorf("roundtrip mismatch: %+v", got)
	}

	if err := c.Delete(ctx, "bert-3f2a9c1b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "bert-3f2a9c1b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: %v, want ErrNotFound", err)
	}
	if err := c.Delete(ctx, "bert-3f2a9c1b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: %v, want ErrNotFound", err)
	}
}

func TestCatalogPutReplaces(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	if err := c.Put(ctx, &models.Paper{ID: "p1", Title: "v1", ChunkCount: 3}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put(ctx, &models.Paper{ID: "p1", Title: "v2", ChunkCount: 5}); err != nil {
		t.Fatalf("Put replace: %v", err)
	}

	got, err := c.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "v2" || got.ChunkCount != 5 {
		t.Errorf("replace did not take: %+v", got)
	}

	papers, _, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if papers != 1 {
		t.Errorf("papers = %d after replace, want 1", papers)
	}
}

func TestCatalogGetBySourcePath(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	if err := c.Put(ctx, &models.Paper{ID: "p1", Title: "t", SourcePath: "/papers/a.pdf"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := c.GetBySourcePath(ctx, "/papers/a.pdf")
	if err != nil {
		t.Fatalf("GetBySourcePath: %v", err)
	}
	if got.ID != "p1" {
		t.Errorf("id = %s, want p1", got.ID)
	}
	if _, err := c.GetBySourcePath(ctx, "/papers/b.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("miss: %v, want ErrNotFound", err)
	}
}

func TestCatalogListOrderAndStats(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		p := &models.Paper{ID: id, Title: id, ChunkCount: i + 1, IngestedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := c.Put(ctx, p); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	papers, err := c.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(papers) != 3 || papers[0].ID != "new" || papers[2].ID != "old" {
		t.Errorf("order wrong: %v", papers)
	}

	page, err := c.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("List page: %v", err)
	}
	if len(page) != 1 || page[0].ID != "mid" {
		t.Errorf("pagination wrong: %v", page)
	}

	nPapers, nChunks, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if nPapers != 3 || nChunks != 6 {
		t.Errorf("Stats = %d papers %d chunks, want 3 and 6", nPapers, nChunks)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if nPapers, _, _ = c.Stats(ctx); nPapers != 0 {
		t.Errorf("papers after Clear = %d, want 0", nPapers)
	}
}
