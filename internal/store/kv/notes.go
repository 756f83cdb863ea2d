package kv

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/n1k0r/librenotes-server/internal/domain"
	"github.com/n1k0r/librenotes-server/internal/id"
	"github.com/n1k0r/librenotes-server/internal/store"
)

func (s *Store) ownedNote(txn *badger.Txn, ownerID string, noteUUID uuid.UUID) (*noteRecord, error) {
	r, err := s.notes.Get(txn, noteUUID.String())
	if err != nil {
		return nil, err
	}
	if r.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	return r, nil
}

// GetNote returns the owner's note, live or tombstoned.
func (s *Store) GetNote(ctx context.Context, ownerID string, noteUUID uuid.UUID) (*domain.Note, error) {
	var note *domain.Note
	err := s.view(ctx, func(txn *badger.Txn) error {
		r, err := s.ownedNote(txn, ownerID, noteUUID)
		if err != nil {
			return err
		}
		note, err = r.toDomain()
		return err
	})
	return note, err
}

// CreateNote inserts a live note. Every tag ref must belong to ownerID.
func (s *Store) CreateNote(ctx context.Context, ownerID string, noteUUID uuid.UUID, content domain.NoteContent) (*domain.Note, error) {
	noteID, err := id.Generate(id.Note)
	if err != nil {
		return nil, err
	}

	now := s.stamp()
	if content.Created.IsZero() {
		content.Created = now
	}
	r := &noteRecord{
		ID:           noteID,
		UUID:         noteUUID.String(),
		OwnerID:      ownerID,
		Text:         content.Text,
		Created:      content.Created.UTC(),
		LastModified: now,
		Tags:         tagRefsToRecords(content.Tags),
	}

	err = s.update(ctx, func(txn *badger.Txn) error {
		if err := s.checkTagRefs(txn, ownerID, content.Tags); err != nil {
			return err
		}
		return s.notes.Insert(txn, r)
	})
	if err != nil {
		return nil, err
	}
	return s.afterNoteWrite(ctx, r)
}

// UpdateNote applies patch to a live note. A tombstone is returned untouched.
func (s *Store) UpdateNote(ctx context.Context, ownerID string, noteUUID uuid.UUID, patch domain.NotePatch) (*domain.Note, error) {
	var (
		out     *noteRecord
		written bool
	)
	err := s.update(ctx, func(txn *badger.Txn) error {
		old, err := s.ownedNote(txn, ownerID, noteUUID)
		if err != nil {
			return err
		}
		if old.Deleted {
			out = old
			return nil
		}

		next := *old
		if text, ok := patch.Text.Get(); ok {
			next.Text = text
		}
		if refs, ok := patch.Tags.Get(); ok {
			if err := s.checkTagRefs(txn, ownerID, refs); err != nil {
				return err
			}
			next.Tags = tagRefsToRecords(refs)
		}
		next.LastModified = s.stamp()
		out, written = &next, true
		return s.notes.Replace(txn, old, &next)
	})
	if err != nil {
		return nil, err
	}
	if !written {
		return out.toDomain()
	}
	return s.afterNoteWrite(ctx, out)
}

// TombstoneNote clears text and tags and marks the note deleted.
func (s *Store) TombstoneNote(ctx context.Context, ownerID string, noteUUID uuid.UUID) (*domain.Note, error) {
	var out *noteRecord
	err := s.update(ctx, func(txn *badger.Txn) error {
		old, err := s.ownedNote(txn, ownerID, noteUUID)
		if err != nil {
			return err
		}

		next := *old
		next.Text = ""
		next.Tags = nil
		next.Deleted = true
		next.LastModified = s.stamp()
		out = &next
		return s.notes.Replace(txn, old, &next)
	})
	if err != nil {
		return nil, err
	}
	return s.afterNoteWrite(ctx, out)
}

func (s *Store) afterNoteWrite(ctx context.Context, r *noteRecord) (*domain.Note, error) {
	note, err := r.toDomain()
	if err != nil {
		return nil, err
	}
	s.syncSearch(ctx, note)
	return note, nil
}

// ListNotes returns the owner's live notes, newest created first.
func (s *Store) ListNotes(ctx context.Context, ownerID string, filter store.NoteFilter) ([]*domain.Note, error) {
	records, err := s.ownerNotes(ctx, ownerID, func(r *noteRecord) bool {
		if r.Deleted {
			return false
		}
		if filter.TagUUID == nil {
			return true
		}
		for _, ref := range r.Tags {
			if ref.UUID == filter.TagUUID.String() {
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Created.Equal(records[j].Created) {
			return records[i].Created.After(records[j].Created)
		}
		return records[i].UUID < records[j].UUID
	})
	return notesToDomain(records)
}

// NotesModifiedSince returns the owner's notes, tombstones included, with
// last_modified >= since, oldest first.
func (s *Store) NotesModifiedSince(ctx context.Context, ownerID string, since time.Time) ([]*domain.Note, error) {
	records, err := s.ownerNotes(ctx, ownerID, func(r *noteRecord) bool { return !r.LastModified.Before(since) })
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].LastModified.Equal(records[j].LastModified) {
			return records[i].LastModified.Before(records[j].LastModified)
		}
		return records[i].UUID < records[j].UUID
	})
	return notesToDomain(records)
}

// EachLiveNote calls fn for every live note in the database.
func (s *Store) EachLiveNote(ctx context.Context, fn func(*domain.Note) error) error {
	var records []*noteRecord
	if err := s.view(ctx, func(txn *badger.Txn) error {
		return s.notes.Each(txn, func(r *noteRecord) error {
			if !r.Deleted {
				records = append(records, r)
			}
			return nil
		})
	}); err != nil {
		return err
	}

	notes, err := notesToDomain(records)
	if err != nil {
		return err
	}
	for _, note := range notes {
		if err := fn(note); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ownerNotes(ctx context.Context, ownerID string, keep func(*noteRecord) bool) ([]*noteRecord, error) {
	var records []*noteRecord
	err := s.view(ctx, func(txn *badger.Txn) error {
		return s.notes.EachIndexed(txn, "owner", ownerID, func(r *noteRecord) error {
			if keep(r) {
				records = append(records, r)
			}
			return nil
		})
	})
	return records, err
}

func notesToDomain(records []*noteRecord) ([]*domain.Note, error) {
	notes := make([]*domain.Note, 0, len(records))
	for _, r := range records {
		n, err := r.toDomain()
		if err != nil {
			return nil, errors.Join(errors.New("decode note "+r.UUID), err)
		}
		notes = append(notes, n)
	}
	return notes, nil
}
