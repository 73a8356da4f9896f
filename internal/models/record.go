package models

import "encoding/json"

// RecordMetadata is the metadata stored with every vector record. The named
// fields are the required schema; Extra carries open domain-specific
// attributes (e.g. venue, doi). On the wire Extra is flattened into the
// metadata object so index-side filters can address its keys directly.
type RecordMetadata struct {
	PaperID    string
	Title      string
	Authors    string
	ChunkIndex int
	ChunkText  string
	Year       int
	Extra      map[string]interface{}
}

// reserved metadata keys owned by the named fields.
var reservedMetadataKeys = map[string]bool{
	"paper_id":    true,
	"title":       true,
	"authors":     true,
	"chunk_index": true,
	"chunk_text":  true,
	"year":        true,
}

// ToMap returns the metadata as a flat map with Extra keys merged in.
// Named fields win over Extra keys of the same name.
func (m *RecordMetadata) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, 6+len(m.Extra))
	for k, v := range m.Extra {
		if !reservedMetadataKeys[k] {
			out[k] = v
		}
	}
	out["paper_id"] = m.PaperID
	out["title"] = m.Title
	out["authors"] = m.Authors
	out["chunk_index"] = m.ChunkIndex
	out["chunk_text"] = m.ChunkText
	if m.Year != 0 {
		out["year"] = m.Year
	}
	return out
}

// MetadataFromMap rebuilds RecordMetadata from a flat map, collecting unknown
// keys into Extra. Numeric fields accept float64 (JSON decoding) or int.
func MetadataFromMap(raw map[string]interface{}) RecordMetadata {
	var m RecordMetadata
	for k, v := range raw {
		switch k {
		case "paper_id":
			m.PaperID, _ = v.(string)
		case "title":
			m.Title, _ = v.(string)
		case "authors":
			m.Authors, _ = v.(string)
		case "chunk_index":
			m.ChunkIndex = toInt(v)
		case "chunk_text":
			m.ChunkText, _ = v.(string)
		case "year":
			m.Year = toInt(v)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]interface{})
			}
			m.Extra[k] = v
		}
	}
	return m
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

// MarshalJSON flattens the metadata into a single JSON object.
func (m RecordMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.ToMap())
}

// UnmarshalJSON rebuilds the metadata from a flat JSON object.
func (m *RecordMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = MetadataFromMap(raw)
	return nil
}

// VectorRecord is the persisted unit handed to the vector index. Ownership
// transfers to the index on upsert; the ingestion side only constructs it.
type VectorRecord struct {
	ID       string         `json:"id"`
	Vector   []float32      `json:"vector"`
	Metadata RecordMetadata `json:"metadata"`
}

// SearchMatch is a single query hit. Score semantics follow the collection
// metric (cosine similarity here: higher is more similar). Transient, never
// persisted.
type SearchMatch struct {
	RecordID string         `json:"record_id"`
	Score    float64        `json:"similarity_score"`
	Metadata RecordMetadata `json:"metadata"`
}
