package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/n1k0r/librenotes-server/internal/domain"
)

// Store is the persistence contract shared by the SQLite and Badger engines.
//
// Every tag and note method takes the owner explicitly and never reads or
// writes rows of another owner. A uuid belonging to someone else looks
// exactly like a missing one, except on create where the global uniqueness
// of uuids surfaces as ErrAlreadyExists.
//
// Each method is atomic on its own; callers get no multi-call transactions.
type Store interface {
	UserStore
	SessionStore
	TagStore
	NoteStore

	// SetSearchIndexer installs the hook notified after note writes.
	SetSearchIndexer(indexer SearchIndexer)
	Ping(ctx context.Context) error
	Close() error
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// GetUserByUsername matches case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
}

// SessionStore persists refresh sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	// GetSessionByRefreshToken returns ErrNotFound for unknown or expired sessions.
	GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error)
	DeleteExpiredSessions(ctx context.Context) (int, error)
}

// TagStore persists tags. last_modified is stamped by the store on every write.
type TagStore interface {
	// GetTag returns the tag, live or tombstoned.
	GetTag(ctx context.Context, ownerID string, tagUUID uuid.UUID) (*domain.Tag, error)
	// CreateTag inserts a live tag. ErrAlreadyExists when the uuid is taken by any owner.
	CreateTag(ctx context.Context, ownerID string, tagUUID uuid.UUID, content domain.TagContent) (*domain.Tag, error)
	// UpdateTag applies patch to a live tag. A tombstone is returned unchanged.
	UpdateTag(ctx context.Context, ownerID string, tagUUID uuid.UUID, patch domain.TagPatch) (*domain.Tag, error)
	// TombstoneTag clears the tag's content and marks it deleted.
	TombstoneTag(ctx context.Context, ownerID string, tagUUID uuid.UUID) (*domain.Tag, error)
	// ListTags returns the owner's live tags ordered by name.
	ListTags(ctx context.Context, ownerID string) ([]*domain.Tag, error)
	// TagsModifiedSince returns live tags and tombstones with
	// last_modified >= since, oldest first.
	TagsModifiedSince(ctx context.Context, ownerID string, since time.Time) ([]*domain.Tag, error)
}

// NoteStore persists notes and their tag associations.
type NoteStore interface {
	GetNote(ctx context.Context, ownerID string, noteUUID uuid.UUID) (*domain.Note, error)
	// CreateNote inserts a live note. Tag refs must already be resolved to the owner's tags.
	CreateNote(ctx context.Context, ownerID string, noteUUID uuid.UUID, content domain.NoteContent) (*domain.Note, error)
	UpdateNote(ctx context.Context, ownerID string, noteUUID uuid.UUID, patch domain.NotePatch) (*domain.Note, error)
	// TombstoneNote clears text and tag associations and marks the note deleted.
	TombstoneNote(ctx context.Context, ownerID string, noteUUID uuid.UUID) (*domain.Note, error)
	// ListNotes returns the owner's live notes, newest created first.
	ListNotes(ctx context.Context, ownerID string, filter NoteFilter) ([]*domain.Note, error)
	NotesModifiedSince(ctx context.Context, ownerID string, since time.Time) ([]*domain.Note, error)
	// EachLiveNote calls fn for every live note of every owner. Used to rebuild the search index.
	EachLiveNote(ctx context.Context, fn func(*domain.Note) error) error
}

// NoteFilter narrows ListNotes.
type NoteFilter struct {
	TagUUID *uuid.UUID // only notes carrying this tag
}

// Clock supplies the timestamps a store stamps onto writes.
type Clock func() time.Time

// SystemClock is the default Clock.
func SystemClock() time.Time {
	return time.Now().UTC()
}
