package models

import "time"

// Paper is a catalog entry for an ingested paper.
type Paper struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Authors    string    `json:"authors" db:"authors"`
	Year       int       `json:"year,omitempty" db:"year"`
	SourcePath string    `json:"source_path,omitempty" db:"source_path"`
	ChunkCount int       `json:"chunk_count" db:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at" db:"ingested_at"`
}

// PaperMeta is the document-level metadata supplied at ingestion time.
// It is merged with per-chunk fields into each vector record's metadata.
type PaperMeta struct {
	Title   string                 `json:"title,omitempty"`
	Authors string                 `json:"authors,omitempty"`
	Year    int                    `json:"year,omitempty"`
	Extra   map[string]interface{} `json:"extra,omitempty"`
}
