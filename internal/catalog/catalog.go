// Package catalog persists the paper registry in SQLite. The vector index
// owns embeddings; the catalog is the authoritative list of what was
// ingested, with enough metadata to list and delete papers without querying
// the index.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tsunagu/internal/models"
)

// ErrNotFound indicates the paper is not in the catalog.
var ErrNotFound = errors.New("paper not found")

// Catalog is a SQLite-backed paper registry.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database at dbPath, creating parent
// directories as needed.
func Open(dbPath string) (*Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS papers (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		authors TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		source_path TEXT NOT NULL DEFAULT '',
		chunk_count INTEGER NOT NULL DEFAULT 0,
		ingested_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_papers_ingested_at ON papers(ingested_at);
	CREATE INDEX IF NOT EXISTS idx_papers_source_path ON papers(source_path);
	`
	_, err := db.Exec(schema)
	return err
}

// Put inserts or replaces a paper entry. Replacement covers the re-ingest
// path, where the paper ID stays the same but chunk count may change.
func (c *Catalog) Put(ctx context.Context, p *models.Paper) error {
	if p.IngestedAt.IsZero() {
		p.IngestedAt = time.Now().UTC()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO papers (id, title, authors, year, source_path, chunk_count, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Authors, p.Year, p.SourcePath, p.ChunkCount, p.IngestedAt,
	)
	return err
}

// Get returns a paper by ID or ErrNotFound.
func (c *Catalog) Get(ctx context.Context, id string) (*models.Paper, error) {
	var p models.Paper
	err := c.db.QueryRowContext(ctx,
		`SELECT id, title, authors, year, source_path, chunk_count, ingested_at
		 FROM papers WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.Authors, &p.Year, &p.SourcePath, &p.ChunkCount, &p.IngestedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetBySourcePath returns the paper ingested from a source file, or
// ErrNotFound. The watcher uses this to resolve deletions by path.
func (c *Catalog) GetBySourcePath(ctx context.Context, path string) (*models.Paper, error) {
	var p models.Paper
	err := c.db.QueryRowContext(ctx,
		`SELECT id, title, authors, year, source_path, chunk_count, ingested_at
		 FROM papers WHERE source_path = ?`, path,
	).Scan(&p.ID, &p.Title, &p.Authors, &p.Year, &p.SourcePath, &p.ChunkCount, &p.IngestedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: source %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a paper entry. Deleting an absent paper is ErrNotFound so
// callers can distinguish a no-op from real removal.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM papers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns papers ordered by ingestion time, newest first.
func (c *Catalog) List(ctx context.Context, offset, limit int) ([]*models.Paper, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, title, authors, year, source_path, chunk_count, ingested_at
		 FROM papers ORDER BY ingested_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var papers []*models.Paper
	for rows.Next() {
		var p models.Paper
		if err := rows.Scan(&p.ID, &p.Title, &p.Authors, &p.Year, &p.SourcePath, &p.ChunkCount, &p.IngestedAt); err != nil {
			return nil, err
		}
		papers = append(papers, &p)
	}
	return papers, rows.Err()
}

// Stats returns the number of papers and the sum of their chunk counts.
func (c *Catalog) Stats(ctx context.Context) (papers int64, chunks int64, err error) {
	err = c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(chunk_count), 0) FROM papers`,
	).Scan(&papers, &chunks)
	return papers, chunks, err
}

// Clear removes every entry. Used by the reset operation alongside
// DeleteCollection on the index.
func (c *Catalog) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM papers`)
	return err
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
