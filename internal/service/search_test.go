package service

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/n1k0r/librenotes-server/internal/errors"
	"github.com/n1k0r/librenotes-server/internal/search"
)

func TestSearchService_FollowsWrites(t *testing.T) {
	env := newTestEnv(t)
	index, _, err := search.NewSearchIndex(search.Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	env.store.SetSearchIndexer(index)
	svc := NewSearchService(index, env.store, slog.New(slog.DiscardHandler))

	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	note, err := env.notes.CreateNote(env.ctx, alice, CreateNoteRequest{Text: "quarterly budget review"})
	require.NoError(t, err)
	_, err = env.notes.CreateNote(env.ctx, bob, CreateNoteRequest{Text: "budget for bob"})
	require.NoError(t, err)

	res, err := svc.SearchNotes(env.ctx, alice, SearchNotesRequest{Query: "budget"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, note.UUID, res.Hits[0].Note.UUID)

	// A sync delete drops the note from results too.
	require.NoError(t, env.sync.ApplyNoteChanges(env.ctx, alice, []NoteChange{{UUID: note.UUID.String(), Deleted: true}}))
	res, err = svc.SearchNotes(env.ctx, alice, SearchNotesRequest{Query: "budget"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	n, err := svc.Reindex(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSearchService_Validation(t *testing.T) {
	env := newTestEnv(t)
	index, _, err := search.NewSearchIndex(search.Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	svc := NewSearchService(index, env.store, slog.New(slog.DiscardHandler))

	_, err = svc.SearchNotes(env.ctx, "user-alice", SearchNotesRequest{Query: "   "})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	_, err = svc.SearchNotes(env.ctx, "user-alice", SearchNotesRequest{Query: "x", Limit: 1000})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	_, err = svc.SearchNotes(env.ctx, "user-alice", SearchNotesRequest{Query: "x", Sort: "random"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestSearchService_Disabled(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSearchService(nil, env.store, slog.New(slog.DiscardHandler))

	assert.False(t, svc.Enabled())
	_, err := svc.SearchNotes(env.ctx, "user-alice", SearchNotesRequest{Query: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrUnavailable)
}
