package domain

import (
	"time"

	"github.com/google/uuid"
)

// Note is a user-owned text note.
// A nil Content marks a tombstone: text and tag associations are gone.
type Note struct {
	Record
	Content *NoteContent
}

// NoteContent is the mutable part of a live note.
type NoteContent struct {
	Text    string
	Created time.Time
	Tags    []TagRef
}

// TagRef points from a note to one of its owner's tags.
type TagRef struct {
	ID   string
	UUID uuid.UUID
}

// NewNote returns a live note.
func NewNote(rec Record, content NoteContent) *Note {
	return &Note{Record: rec, Content: &content}
}

// NewNoteTombstone returns a deleted note.
func NewNoteTombstone(rec Record) *Note {
	return &Note{Record: rec}
}

// IsTombstone reports whether the note has been deleted.
func (n *Note) IsTombstone() bool {
	return n.Content == nil
}

// TagUUIDs returns the uuids of the note's tags in stored order.
func (c NoteContent) TagUUIDs() []uuid.UUID {
	out := make([]uuid.UUID, len(c.Tags))
	for i, ref := range c.Tags {
		out[i] = ref.UUID
	}
	return out
}

// TagIDs returns the internal ids of the note's tags.
func (c NoteContent) TagIDs() []string {
	out := make([]string, len(c.Tags))
	for i, ref := range c.Tags {
		out[i] = ref.ID
	}
	return out
}

// NotePatch lists the note fields a change supplies.
// A set Tags replaces the whole association set.
type NotePatch struct {
	Text Optional[string]
	Tags Optional[[]TagRef]
}

// IsEmpty reports whether the patch changes nothing.
func (p NotePatch) IsEmpty() bool {
	return !p.Text.IsSet() && !p.Tags.IsSet()
}

// Apply returns c with the patch applied.
func (p NotePatch) Apply(c NoteContent) NoteContent {
	if text, ok := p.Text.Get(); ok {
		c.Text = text
	}
	if tags, ok := p.Tags.Get(); ok {
		c.Tags = DedupeTagRefs(tags)
	}
	return c
}

// DedupeTagRefs drops repeated references, keeping first occurrences in order.
func DedupeTagRefs(refs []TagRef) []TagRef {
	seen := make(map[uuid.UUID]struct{}, len(refs))
	out := make([]TagRef, 0, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref.UUID]; dup {
			continue
		}
		seen[ref.UUID] = struct{}{}
		out = append(out, ref)
	}
	return out
}
