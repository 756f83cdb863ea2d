// Package search provides full-text search over note text using Bleve.
// Every document carries its owner so queries never cross accounts.
package search

import (
	"github.com/n1k0r/librenotes-server/internal/domain"
)

// NoteDocument is the indexed form of a live note.
type NoteDocument struct {
	ID      string   `json:"id"` // note uuid
	OwnerID string   `json:"owner_id"`
	Text    string   `json:"text"`
	Tags    []string `json:"tags,omitempty"` // tag uuids

	Created  int64 `json:"created"`  // Unix millis
	Modified int64 `json:"modified"` // Unix millis
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *NoteDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":       d.ID,
		"owner_id": d.OwnerID,
		"text":     d.Text,
		"created":  d.Created,
		"modified": d.Modified,
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	return m
}

// NoteToDocument converts a live note. Tombstones have nothing to index and
// return nil.
func NoteToDocument(note *domain.Note) *NoteDocument {
	if note.IsTombstone() {
		return nil
	}

	tags := make([]string, 0, len(note.Content.Tags))
	for _, ref := range note.Content.Tags {
		tags = append(tags, ref.UUID.String())
	}
	return &NoteDocument{
		ID:       note.UUID.String(),
		OwnerID:  note.OwnerID,
		Text:     note.Content.Text,
		Tags:     tags,
		Created:  note.Content.Created.UnixMilli(),
		Modified: note.LastModified.UnixMilli(),
	}
}
