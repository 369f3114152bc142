package store

import "slices"

/*
Record represents a vector in the store
*/
type Record struct {
	ID         string    `json:"id"`
	Embedding  []float32 `json:"embedding"`
	DocumentID string    `json:"document_id,omitempty"`
	Metadata   string    `json:"metadata,omitempty"`
}

// clone returns a copy that shares no memory with r.
func (r *Record) clone() Record {
	return Record{
		ID:         r.ID,
		Embedding:  slices.Clone(r.Embedding),
		DocumentID: r.DocumentID,
		Metadata:   r.Metadata,
	}
}
