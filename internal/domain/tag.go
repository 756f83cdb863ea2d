package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxTagNameLength is the longest tag name accepted, in characters.
const MaxTagNameLength = 30

// Tag is a user-owned label for notes.
// A nil Content marks a tombstone: the tag was deleted and only its Record survives.
type Tag struct {
	Record
	Content *TagContent
}

// TagContent is the mutable part of a live tag.
type TagContent struct {
	Name string
}

// NewTag returns a live tag.
func NewTag(rec Record, content TagContent) *Tag {
	return &Tag{Record: rec, Content: &content}
}

// NewTagTombstone returns a deleted tag.
func NewTagTombstone(rec Record) *Tag {
	return &Tag{Record: rec}
}

// IsTombstone reports whether the tag has been deleted.
func (t *Tag) IsTombstone() bool {
	return t.Content == nil
}

// Ref returns the reference notes use to point at this tag.
func (t *Tag) Ref() TagRef {
	return TagRef{ID: t.ID, UUID: t.UUID}
}

// TagPatch lists the tag fields a change supplies. Unset fields are left alone.
type TagPatch struct {
	Name Optional[string]
}

// IsEmpty reports whether the patch changes nothing.
func (p TagPatch) IsEmpty() bool {
	return !p.Name.IsSet()
}

// Apply returns c with the patch applied.
func (p TagPatch) Apply(c TagContent) TagContent {
	if name, ok := p.Name.Get(); ok {
		c.Name = name
	}
	return c
}

// NormalizeTagName trims surrounding whitespace and composes the name to NFC,
// so visually identical names compare and measure the same way.
func NormalizeTagName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
