// Package models defines core data structures for chunks, vector records, and search results.
package models

import "fmt"

// DocumentChunk is the atomic unit of ingestion: a bounded span of a paper's
// normalized text. Chunks of one paper are contiguous in source order except
// for a configured overlap window across forced splits.
type DocumentChunk struct {
	PaperID    string `json:"paper_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	// CharStart and CharEnd are offsets into the normalized source text,
	// kept for citation and traceability.
	CharStart int `json:"char_start"`
	CharEnd   int `json:"char_end"`
}

// RecordID returns the deterministic vector record ID for this chunk.
func (c *DocumentChunk) RecordID() string {
	return ChunkRecordID(c.PaperID, c.ChunkIndex)
}

// ChunkRecordID builds the record ID for a paper chunk: "{paper_id}_chunk_{index}".
func ChunkRecordID(paperID string, chunkIndex int) string {
	return fmt.Sprintf("%s_chunk_%d", paperID, chunkIndex)
}
