// Package kv implements store.Store on an embedded Badger key-value database.
package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/n1k0r/librenotes-server/internal/domain"
	"github.com/n1k0r/librenotes-server/internal/store"
)

// Store wraps a Badger database.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	now    store.Clock

	mu            sync.RWMutex
	searchIndexer store.SearchIndexer

	users    *Entity[userRecord]
	sessions *Entity[sessionRecord]
	tags     *Entity[tagRecord]
	notes    *Entity[noteRecord]
}

var _ store.Store = (*Store)(nil)

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp last_modified and session times.
func WithClock(clock store.Clock) Option {
	return func(s *Store) { s.now = clock }
}

// Open opens or creates a Badger database in the directory path.
func Open(path string, logger *slog.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	badgerOpts := badger.DefaultOptions(path)
	badgerOpts.Logger = nil
	badgerOpts.SyncWrites = true
	badgerOpts.CompactL0OnClose = true

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	s := &Store{
		db:            db,
		logger:        logger,
		now:           store.SystemClock,
		searchIndexer: store.NewNoopSearchIndexer(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.users = NewEntity("user:", func(u *userRecord) string { return u.ID }).
		WithUniqueIndex("username", func(u *userRecord) []string {
			return []string{strings.ToLower(u.Username)}
		})
	s.sessions = NewEntity("session:", func(r *sessionRecord) string { return r.ID }).
		WithUniqueIndex("refresh", func(r *sessionRecord) []string { return []string{r.RefreshTokenHash} }).
		WithIndex("user", func(r *sessionRecord) []string { return []string{r.UserID} })
	// Tags and notes are keyed by uuid, which makes uuids globally unique.
	s.tags = NewEntity("tag:", func(r *tagRecord) string { return r.UUID }).
		WithIndex("owner", func(r *tagRecord) []string { return []string{r.OwnerID} })
	s.notes = NewEntity("note:", func(r *noteRecord) string { return r.UUID }).
		WithIndex("owner", func(r *noteRecord) []string { return []string{r.OwnerID} })

	logger.Info("badger store opened", "path", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is open.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return errors.New("badger db is closed")
	}
	return nil
}

// SetSearchIndexer sets the indexer notified after note writes.
func (s *Store) SetSearchIndexer(indexer store.SearchIndexer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchIndexer = indexer
}

func (s *Store) syncSearch(ctx context.Context, note *domain.Note) {
	s.mu.RLock()
	indexer := s.searchIndexer
	s.mu.RUnlock()

	if err := store.SyncNoteIndex(ctx, indexer, note); err != nil {
		s.logger.Warn("search index update failed", "note_uuid", note.UUID, "error", err)
	}
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

// view runs fn in a read-only transaction.
func (s *Store) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// update runs fn in a read-write transaction. A lost race against another
// writer surfaces as store.ErrConflict.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(fn)
	if errors.Is(err, badger.ErrConflict) {
		return store.ErrConflict.WithCause(err)
	}
	return err
}
