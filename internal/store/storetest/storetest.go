// Package storetest holds the behaviour every store.Store engine must share.
// Engine packages call Run from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n1k0r/librenotes-server/internal/domain"
	"github.com/n1k0r/librenotes-server/internal/store"
)

// Factory opens an empty store that stamps writes with clock.
type Factory func(t *testing.T, clock store.Clock) store.Store

// Clock is a manually advanced store.Clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock stopped at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start.UTC()}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Epoch is the time every suite clock starts at.
var Epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// RecordingIndexer remembers which notes a store pushed to the search index.
type RecordingIndexer struct {
	mu      sync.Mutex
	Indexed []uuid.UUID
	Deleted []uuid.UUID
}

// IndexNote records an index call.
func (r *RecordingIndexer) IndexNote(_ context.Context, note *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Indexed = append(r.Indexed, note.UUID)
	return nil
}

// DeleteNote records a delete call.
func (r *RecordingIndexer) DeleteNote(_ context.Context, noteUUID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deleted = append(r.Deleted, noteUUID)
	return nil
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	clock *Clock
	s     store.Store
}

func newHarness(t *testing.T, factory Factory) *harness {
	t.Helper()
	clock := NewClock(Epoch)
	return &harness{t: t, ctx: context.Background(), clock: clock, s: factory(t, clock.Now)}
}

// user creates an account and returns its id.
func (h *harness) user(name string) string {
	h.t.Helper()
	u := &domain.User{ID: "user-" + name, Username: name, PasswordHash: "hash"}
	u.InitTimestamps(h.clock.Now())
	require.NoError(h.t, h.s.CreateUser(h.ctx, u))
	return u.ID
}

func (h *harness) tag(owner, name string) *domain.Tag {
	h.t.Helper()
	tag, err := h.s.CreateTag(h.ctx, owner, uuid.New(), domain.TagContent{Name: name})
	require.NoError(h.t, err)
	return tag
}

func (h *harness) note(owner, text string, tags ...*domain.Tag) *domain.Note {
	h.t.Helper()
	refs := make([]domain.TagRef, 0, len(tags))
	for _, tag := range tags {
		refs = append(refs, tag.Ref())
	}
	note, err := h.s.CreateNote(h.ctx, owner, uuid.New(), domain.NoteContent{Text: text, Tags: refs})
	require.NoError(h.t, err)
	return note
}

// Run executes the whole conformance suite against factory.
func Run(t *testing.T, factory Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, factory) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, factory) })
	t.Run("Tags", func(t *testing.T) { testTags(t, factory) })
	t.Run("Notes", func(t *testing.T) { testNotes(t, factory) })
	t.Run("ModifiedSince", func(t *testing.T) { testModifiedSince(t, factory) })
	t.Run("OwnerIsolation", func(t *testing.T) { testOwnerIsolation(t, factory) })
	t.Run("SearchHook", func(t *testing.T) { testSearchHook(t, factory) })
}

func testUsers(t *testing.T, factory Factory) {
	h := newHarness(t, factory)
	id := h.user("Alice")

	got, err := h.s.GetUser(h.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Username)
	assert.Equal(t, "hash", got.PasswordHash)

	byName, err := h.s.GetUserByUsername(h.ctx, "aLiCe")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)

	dup := &domain.User{ID: "user-other", Username: "ALICE", PasswordHash: "x"}
	dup.InitTimestamps(h.clock.Now())
	assert.ErrorIs(t, h.s.CreateUser(h.ctx, dup), store.ErrAlreadyExists)

	login := h.clock.Advance(time.Minute)
	got.LastLoginAt = login
	got.UpdatedAt = login
	require.NoError(t, h.s.UpdateUser(h.ctx, got))

	got, err = h.s.GetUser(h.ctx, id)
	require.NoError(t, err)
	assert.True(t, got.LastLoginAt.Equal(login))

	_, err = h.s.GetUser(h.ctx, "user-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.s.GetUserByUsername(h.ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testSessions(t *testing.T, factory Factory) {
	h := newHarness(t, factory)
	userID := h.user("bob")
	now := h.clock.Now()

	newSession := func(id, hash string, lastSeen time.Time, ttl time.Duration) *domain.Session {
		return &domain.Session{
			ID:               id,
			UserID:           userID,
			RefreshTokenHash: hash,
			ExpiresAt:        now.Add(ttl),
			CreatedAt:        now,
			LastSeenAt:       lastSeen,
			DeviceType:       "mobile",
			Platform:         "Android",
			ClientName:       "LibreNotes",
		}
	}

	older := newSession("sess-1", "hash-1", now, time.Hour)
	newer := newSession("sess-2", "hash-2", now.Add(time.Minute), time.Hour)
	short := newSession("sess-3", "hash-3", now, time.Minute)
	for _, s := range []*domain.Session{older, newer, short} {
		require.NoError(t, h.s.CreateSession(h.ctx, s))
	}
	assert.ErrorIs(t, h.s.CreateSession(h.ctx, newSession("sess-4", "hash-1", now, time.Hour)), store.ErrAlreadyExists)

	got, err := h.s.GetSessionByRefreshToken(h.ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.ID)
	assert.Equal(t, "hash-1", got.RefreshTokenHash)
	assert.Equal(t, "Android", got.Platform)

	list, err := h.s.ListUserSessions(h.ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "sess-2", list[0].ID)

	// Rotate the refresh token.
	got.RefreshTokenHash = "hash-1b"
	require.NoError(t, h.s.UpdateSession(h.ctx, got))
	_, err = h.s.GetSessionByRefreshToken(h.ctx, "hash-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.s.GetSessionByRefreshToken(h.ctx, "hash-1b")
	require.NoError(t, err)

	h.clock.Advance(2 * time.Minute)
	_, err = h.s.GetSessionByRefreshToken(h.ctx, "hash-3")
	assert.ErrorIs(t, err, store.ErrNotFound, "expired sessions are invisible")

	n, err := h.s.DeleteExpiredSessions(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, h.s.DeleteSession(h.ctx, "sess-2"))
	require.NoError(t, h.s.DeleteSession(h.ctx, "sess-2"))
	list, err = h.s.ListUserSessions(h.ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sess-1", list[0].ID)
}

func testTags(t *testing.T, factory Factory) {
	h := newHarness(t, factory)
	owner := h.user("carol")

	work := h.tag(owner, "work")
	assert.False(t, work.IsTombstone())
	assert.Equal(t, "work", work.Content.Name)
	assert.True(t, work.LastModified.Equal(Epoch))
	assert.NotEmpty(t, work.ID)

	_, err := h.s.CreateTag(h.ctx, owner, work.UUID, domain.TagContent{Name: "again"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	t1 := h.clock.Advance(time.Second)
	renamed, err := h.s.UpdateTag(h.ctx, owner, work.UUID, domain.TagPatch{Name: domain.Some("Work")})
	require.NoError(t, err)
	assert.Equal(t, "Work", renamed.Content.Name)
	assert.True(t, renamed.LastModified.Equal(t1))

	t2 := h.clock.Advance(time.Second)
	touched, err := h.s.UpdateTag(h.ctx, owner, work.UUID, domain.TagPatch{})
	require.NoError(t, err)
	assert.Equal(t, "Work", touched.Content.Name)
	assert.True(t, touched.LastModified.Equal(t2), "empty patch still stamps last_modified")

	t3 := h.clock.Advance(time.Second)
	dead, err := h.s.TombstoneTag(h.ctx, owner, work.UUID)
	require.NoError(t, err)
	assert.True(t, dead.IsTombstone())
	assert.Equal(t, work.UUID, dead.UUID)
	assert.True(t, dead.LastModified.Equal(t3))

	h.clock.Advance(time.Second)
	still, err := h.s.UpdateTag(h.ctx, owner, work.UUID, domain.TagPatch{Name: domain.Some("zombie")})
	require.NoError(t, err)
	assert.True(t, still.IsTombstone(), "tombstones are terminal")
	assert.True(t, still.LastModified.Equal(t3), "updates to a tombstone write nothing")

	t5 := h.clock.Advance(time.Second)
	again, err := h.s.TombstoneTag(h.ctx, owner, work.UUID)
	require.NoError(t, err)
	assert.True(t, again.LastModified.Equal(t5))

	got, err := h.s.GetTag(h.ctx, owner, work.UUID)
	require.NoError(t, err)
	assert.True(t, got.IsTombstone())

	_, err = h.s.UpdateTag(h.ctx, owner, uuid.New(), domain.TagPatch{})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.s.TombstoneTag(h.ctx, owner, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)

	h.tag(owner, "beta")
	h.tag(owner, "Alpha")
	h.tag(owner, "gamma")
	live, err := h.s.ListTags(h.ctx, owner)
	require.NoError(t, err)
	names := make([]string, 0, len(live))
	for _, tag := range live {
		names = append(names, tag.Content.Name)
	}
	assert.Equal(t, []string{"Alpha", "beta", "gamma"}, names)
}

func testNotes(t *testing.T, factory Factory) {
	h := newHarness(t, factory)
	owner := h.user("dave")
	a := h.tag(owner, "a")
	b := h.tag(owner, "b")

	created := time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)
	note, err := h.s.CreateNote(h.ctx, owner, uuid.New(), domain.NoteContent{
		Text:    "hello",
		Created: created,
		Tags:    []domain.TagRef{a.Ref(), b.Ref(), a.Ref()},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", note.Content.Text)
	assert.True(t, note.Content.Created.Equal(created))
	assert.Equal(t, []uuid.UUID{a.UUID, b.UUID}, note.Content.TagUUIDs(), "duplicate refs collapse")

	defaulted := h.note(owner, "no created")
	assert.True(t, defaulted.Content.Created.Equal(Epoch), "created defaults to now")
	assert.Empty(t, defaulted.Content.Tags)

	t1 := h.clock.Advance(time.Second)
	edited, err := h.s.UpdateNote(h.ctx, owner, note.UUID, domain.NotePatch{Text: domain.Some("hello again")})
	require.NoError(t, err)
	assert.Equal(t, "hello again", edited.Content.Text)
	assert.Equal(t, []uuid.UUID{a.UUID, b.UUID}, edited.Content.TagUUIDs(), "tags untouched when absent")
	assert.True(t, edited.LastModified.Equal(t1))
	assert.True(t, edited.Content.Created.Equal(created))

	retagged, err := h.s.UpdateNote(h.ctx, owner, note.UUID, domain.NotePatch{Tags: domain.Some([]domain.TagRef{b.Ref()})})
	require.NoError(t, err)
	assert.Equal(t, "hello again", retagged.Content.Text)
	assert.Equal(t, []uuid.UUID{b.UUID}, retagged.Content.TagUUIDs())

	cleared, err := h.s.UpdateNote(h.ctx, owner, note.UUID, domain.NotePatch{Tags: domain.Some([]domain.TagRef{})})
	require.NoError(t, err)
	assert.Empty(t, cleared.Content.Tags)

	other := h.user("eve")
	foreign := h.tag(other, "theirs")
	_, err = h.s.UpdateNote(h.ctx, owner, note.UUID, domain.NotePatch{Tags: domain.Some([]domain.TagRef{foreign.Ref()})})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	_, err = h.s.CreateNote(h.ctx, owner, uuid.New(), domain.NoteContent{Text: "x", Tags: []domain.TagRef{foreign.Ref()}})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	t2 := h.clock.Advance(time.Second)
	dead, err := h.s.TombstoneNote(h.ctx, owner, note.UUID)
	require.NoError(t, err)
	assert.True(t, dead.IsTombstone())
	assert.True(t, dead.LastModified.Equal(t2))

	h.clock.Advance(time.Second)
	still, err := h.s.UpdateNote(h.ctx, owner, note.UUID, domain.NotePatch{Text: domain.Some("back")})
	require.NoError(t, err)
	assert.True(t, still.IsTombstone())
	assert.True(t, still.LastModified.Equal(t2))

	_, err = h.s.CreateNote(h.ctx, owner, note.UUID, domain.NoteContent{Text: "reuse"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists, "a tombstoned uuid stays taken")
}

func testModifiedSince(t *testing.T, factory Factory) {
	h := newHarness(t, factory)
	owner := h.user("frank")

	// T1, T2, T3 one second apart.
	first := h.tag(owner, "t1")
	n1 := h.note(owner, "n1", first)
	t2 := h.clock.Advance(time.Second)
	second := h.tag(owner, "t2")
	n2 := h.note(owner, "n2")
	h.clock.Advance(time.Second)
	third := h.tag(owner, "t3")
	_, err := h.s.TombstoneNote(h.ctx, owner, n1.UUID)
	require.NoError(t, err)

	tags, err := h.s.TagsModifiedSince(h.ctx, owner, t2)
	require.NoError(t, err)
	require.Len(t, tags, 2, "boundary is inclusive")
	assert.Equal(t, second.UUID, tags[0].UUID)
	assert.Equal(t, third.UUID, tags[1].UUID)

	all, err := h.s.TagsModifiedSince(h.ctx, owner, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	notes, err := h.s.NotesModifiedSince(h.ctx, owner, t2)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, n2.UUID, notes[0].UUID)
	assert.Equal(t, n1.UUID, notes[1].UUID)
	assert.True(t, notes[1].IsTombstone(), "tombstones are part of the delta")

	none, err := h.s.NotesModifiedSince(h.ctx, owner, h.clock.Advance(time.Second))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testOwnerIsolation(t *testing.T, factory Factory) {
	h := newHarness(t, factory)
	alice := h.user("alice")
	bob := h.user("bob")

	tag := h.tag(alice, "private")
	note := h.note(alice, "secret", tag)
	h.note(bob, "bob's")

	_, err := h.s.GetTag(h.ctx, bob, tag.UUID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.s.GetNote(h.ctx, bob, note.UUID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.s.UpdateNote(h.ctx, bob, note.UUID, domain.NotePatch{Text: domain.Some("pwned")})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.s.TombstoneTag(h.ctx, bob, tag.UUID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = h.s.CreateTag(h.ctx, bob, tag.UUID, domain.TagContent{Name: "steal"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists, "uuids are unique across owners")

	tags, err := h.s.TagsModifiedSince(h.ctx, bob, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, tags)

	notes, err := h.s.ListNotes(h.ctx, bob, store.NoteFilter{})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "bob's", notes[0].Content.Text)

	filtered, err := h.s.ListNotes(h.ctx, alice, store.NoteFilter{TagUUID: &tag.UUID})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, note.UUID, filtered[0].UUID)

	h.clock.Advance(time.Second)
	newer := h.note(alice, "newer")
	listed, err := h.s.ListNotes(h.ctx, alice, store.NoteFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, newer.UUID, listed[0].UUID, "newest created first")

	var live []uuid.UUID
	require.NoError(t, h.s.EachLiveNote(h.ctx, func(n *domain.Note) error {
		live = append(live, n.UUID)
		return nil
	}))
	assert.Len(t, live, 3)
}

func testSearchHook(t *testing.T, factory Factory) {
	h := newHarness(t, factory)
	owner := h.user("gina")
	indexer := &RecordingIndexer{}
	h.s.SetSearchIndexer(indexer)

	note := h.note(owner, "index me")
	_, err := h.s.UpdateNote(h.ctx, owner, note.UUID, domain.NotePatch{Text: domain.Some("again")})
	require.NoError(t, err)
	_, err = h.s.TombstoneNote(h.ctx, owner, note.UUID)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{note.UUID, note.UUID}, indexer.Indexed)
	assert.Equal(t, []uuid.UUID{note.UUID}, indexer.Deleted)
}
