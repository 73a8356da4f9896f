package models

// IngestResult reports a successful single-paper ingestion.
type IngestResult struct {
	PaperID       string `json:"paper_id"`
	ChunksCreated int    `json:"chunks_created"`
}

// BatchSummary reports the outcome of a multi-document ingestion run.
// One bad document never aborts the batch; its failure is recorded here.
type BatchSummary struct {
	Processed int               `json:"processed"`
	Failed    int               `json:"failed"`
	Failures  map[string]string `json:"failures,omitempty"`
}
