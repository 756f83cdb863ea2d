package search

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n1k0r/librenotes-server/internal/domain"
)

func setupTestIndex(t *testing.T) (*SearchIndex, string) {
	t.Helper()
	dir := t.TempDir()

	index, created, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	assert.True(t, created)
	t.Cleanup(func() { _ = index.Close() })
	return index, dir
}

func liveNote(owner, text string, created time.Time, tags ...uuid.UUID) *domain.Note {
	refs := make([]domain.TagRef, 0, len(tags))
	for _, tag := range tags {
		refs = append(refs, domain.TagRef{ID: "tag-" + tag.String(), UUID: tag})
	}
	rec := domain.Record{ID: "note-x", UUID: uuid.New(), OwnerID: owner, LastModified: created}
	return domain.NewNote(rec, domain.NoteContent{Text: text, Created: created, Tags: refs})
}

type fakeSource []*domain.Note

func (f fakeSource) EachLiveNote(_ context.Context, fn func(*domain.Note) error) error {
	for _, n := range f {
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}

func hitIDs(res *SearchResult) []string {
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func TestNewSearchIndex(t *testing.T) {
	index, _ := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNewSearchIndex_ReopensExisting(t *testing.T) {
	dir := t.TempDir()
	index, created, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, index.IndexNote(context.Background(), liveNote("u1", "persisted", time.Now())))
	require.NoError(t, index.Close())

	index, created, err = NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer index.Close()
	assert.False(t, created)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSearch_ScopedToOwner(t *testing.T) {
	index, _ := setupTestIndex(t)
	ctx := context.Background()
	now := time.Now()

	mine := liveNote("alice", "buy groceries tomorrow", now)
	theirs := liveNote("bob", "groceries for bob", now)
	require.NoError(t, index.IndexNote(ctx, mine))
	require.NoError(t, index.IndexNote(ctx, theirs))

	res, err := index.Search(ctx, SearchParams{OwnerID: "alice", Query: "grocery"})
	require.NoError(t, err)
	assert.Equal(t, []string{mine.UUID.String()}, hitIDs(res))
	assert.Equal(t, uint64(1), res.Total)
}

func TestSearch_RequiresOwner(t *testing.T) {
	index, _ := setupTestIndex(t)
	_, err := index.Search(context.Background(), SearchParams{Query: "x"})
	assert.Error(t, err)
}

func TestSearch_FuzzyAndPrefix(t *testing.T) {
	index, _ := setupTestIndex(t)
	ctx := context.Background()

	note := liveNote("alice", "meeting with the accountant", time.Now())
	require.NoError(t, index.IndexNote(ctx, note))

	for _, q := range []string{"meeting", "meetign", "accou"} {
		res, err := index.Search(ctx, SearchParams{OwnerID: "alice", Query: q})
		require.NoError(t, err, q)
		assert.Equal(t, []string{note.UUID.String()}, hitIDs(res), q)
	}
}

func TestSearch_TagFilterAndRecentSort(t *testing.T) {
	index, _ := setupTestIndex(t)
	ctx := context.Background()
	work := uuid.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	old := liveNote("alice", "report draft", base, work)
	newer := liveNote("alice", "report final", base.Add(time.Hour), work)
	untagged := liveNote("alice", "report personal", base.Add(2*time.Hour))
	require.NoError(t, index.IndexDocuments([]*NoteDocument{
		NoteToDocument(old), NoteToDocument(newer), NoteToDocument(untagged),
	}))

	res, err := index.Search(ctx, SearchParams{OwnerID: "alice", Query: "report", TagUUID: work.String(), SortBy: "recent"})
	require.NoError(t, err)
	assert.Equal(t, []string{newer.UUID.String(), old.UUID.String()}, hitIDs(res))

	// Empty query lists everything the owner has.
	res, err = index.Search(ctx, SearchParams{OwnerID: "alice", SortBy: "recent", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Total)
	assert.Equal(t, []string{untagged.UUID.String(), newer.UUID.String()}, hitIDs(res))

	res, err = index.Search(ctx, SearchParams{OwnerID: "alice", SortBy: "recent", Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{old.UUID.String()}, hitIDs(res))
}

func TestIndexNote_TombstoneRemoves(t *testing.T) {
	index, _ := setupTestIndex(t)
	ctx := context.Background()

	note := liveNote("alice", "ephemeral", time.Now())
	require.NoError(t, index.IndexNote(ctx, note))

	require.NoError(t, index.IndexNote(ctx, domain.NewNoteTombstone(note.Record)))
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	// Deleting again is harmless.
	assert.NoError(t, index.DeleteNote(ctx, note.UUID))
}

func TestRebuild(t *testing.T) {
	index, _ := setupTestIndex(t)
	ctx := context.Background()

	stale := liveNote("alice", "stale", time.Now())
	require.NoError(t, index.IndexNote(ctx, stale))

	source := fakeSource{
		liveNote("alice", "one", time.Now()),
		liveNote("bob", "two", time.Now()),
	}
	n, err := index.Rebuild(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	res, err := index.Search(ctx, SearchParams{OwnerID: "alice", Query: "stale"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestNoteToDocument(t *testing.T) {
	tag := uuid.New()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	note := liveNote("alice", "text", created, tag)

	doc := NoteToDocument(note)
	require.NotNil(t, doc)
	assert.Equal(t, note.UUID.String(), doc.ID)
	assert.Equal(t, []string{tag.String()}, doc.Tags)
	assert.Equal(t, created.UnixMilli(), doc.Created)

	assert.Nil(t, NoteToDocument(domain.NewNoteTombstone(note.Record)))
}
