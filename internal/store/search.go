package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/n1k0r/librenotes-server/internal/domain"
)

// SearchIndexer keeps the search index in step with note writes.
// Stores call it after a successful commit; failures are logged, never returned,
// since the index can always be rebuilt from the store.
type SearchIndexer interface {
	IndexNote(ctx context.Context, note *domain.Note) error
	DeleteNote(ctx context.Context, noteUUID uuid.UUID) error
}

// NoopSearchIndexer ignores every update. Used when search is disabled and in tests.
type NoopSearchIndexer struct{}

// IndexNote is a no-op.
func (NoopSearchIndexer) IndexNote(context.Context, *domain.Note) error { return nil }

// DeleteNote is a no-op.
func (NoopSearchIndexer) DeleteNote(context.Context, uuid.UUID) error { return nil }

// NewNoopSearchIndexer returns a SearchIndexer that does nothing.
func NewNoopSearchIndexer() SearchIndexer {
	return NoopSearchIndexer{}
}

// SyncNoteIndex pushes note to indexer: live notes are indexed, tombstones removed.
func SyncNoteIndex(ctx context.Context, indexer SearchIndexer, note *domain.Note) error {
	if note.IsTombstone() {
		return indexer.DeleteNote(ctx, note.UUID)
	}
	return indexer.IndexNote(ctx, note)
}
