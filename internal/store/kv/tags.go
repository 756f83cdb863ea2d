package kv

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/n1k0r/librenotes-server/internal/domain"
	"github.com/n1k0r/librenotes-server/internal/id"
	"github.com/n1k0r/librenotes-server/internal/store"
)

// ownedTag loads the tag record and hides it unless ownerID owns it.
func (s *Store) ownedTag(txn *badger.Txn, ownerID string, tagUUID uuid.UUID) (*tagRecord, error) {
	r, err := s.tags.Get(txn, tagUUID.String())
	if err != nil {
		return nil, err
	}
	if r.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	return r, nil
}

// GetTag returns the owner's tag, live or tombstoned.
func (s *Store) GetTag(ctx context.Context, ownerID string, tagUUID uuid.UUID) (*domain.Tag, error) {
	var tag *domain.Tag
	err := s.view(ctx, func(txn *badger.Txn) error {
		r, err := s.ownedTag(txn, ownerID, tagUUID)
		if err != nil {
			return err
		}
		tag, err = r.toDomain()
		return err
	})
	return tag, err
}

// CreateTag inserts a live tag.
func (s *Store) CreateTag(ctx context.Context, ownerID string, tagUUID uuid.UUID, content domain.TagContent) (*domain.Tag, error) {
	tagID, err := id.Generate(id.Tag)
	if err != nil {
		return nil, err
	}

	r := &tagRecord{
		ID:           tagID,
		UUID:         tagUUID.String(),
		OwnerID:      ownerID,
		Name:         content.Name,
		LastModified: s.stamp(),
	}
	if err := s.update(ctx, func(txn *badger.Txn) error {
		return s.tags.Insert(txn, r)
	}); err != nil {
		return nil, err
	}
	return r.toDomain()
}

// UpdateTag applies patch to a live tag. A tombstone is returned untouched.
func (s *Store) UpdateTag(ctx context.Context, ownerID string, tagUUID uuid.UUID, patch domain.TagPatch) (*domain.Tag, error) {
	var out *tagRecord
	err := s.update(ctx, func(txn *badger.Txn) error {
		old, err := s.ownedTag(txn, ownerID, tagUUID)
		if err != nil {
			return err
		}
		if old.Deleted {
			out = old
			return nil
		}

		next := *old
		next.Name = patch.Apply(domain.TagContent{Name: old.Name}).Name
		next.LastModified = s.stamp()
		out = &next
		return s.tags.Replace(txn, old, &next)
	})
	if err != nil {
		return nil, err
	}
	return out.toDomain()
}

// TombstoneTag clears the name and marks the tag deleted.
func (s *Store) TombstoneTag(ctx context.Context, ownerID string, tagUUID uuid.UUID) (*domain.Tag, error) {
	var out *tagRecord
	err := s.update(ctx, func(txn *badger.Txn) error {
		old, err := s.ownedTag(txn, ownerID, tagUUID)
		if err != nil {
			return err
		}

		next := *old
		next.Name = ""
		next.Deleted = true
		next.LastModified = s.stamp()
		out = &next
		return s.tags.Replace(txn, old, &next)
	})
	if err != nil {
		return nil, err
	}
	return out.toDomain()
}

// ListTags returns the owner's live tags ordered by name.
func (s *Store) ListTags(ctx context.Context, ownerID string) ([]*domain.Tag, error) {
	records, err := s.ownerTags(ctx, ownerID, func(r *tagRecord) bool { return !r.Deleted })
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := strings.ToLower(records[i].Name), strings.ToLower(records[j].Name)
		if a != b {
			return a < b
		}
		return records[i].UUID < records[j].UUID
	})
	return tagsToDomain(records)
}

// TagsModifiedSince returns the owner's tags, tombstones included, with
// last_modified >= since, oldest first.
func (s *Store) TagsModifiedSince(ctx context.Context, ownerID string, since time.Time) ([]*domain.Tag, error) {
	records, err := s.ownerTags(ctx, ownerID, func(r *tagRecord) bool { return !r.LastModified.Before(since) })
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].LastModified.Equal(records[j].LastModified) {
			return records[i].LastModified.Before(records[j].LastModified)
		}
		return records[i].UUID < records[j].UUID
	})
	return tagsToDomain(records)
}

func (s *Store) ownerTags(ctx context.Context, ownerID string, keep func(*tagRecord) bool) ([]*tagRecord, error) {
	var records []*tagRecord
	err := s.view(ctx, func(txn *badger.Txn) error {
		return s.tags.EachIndexed(txn, "owner", ownerID, func(r *tagRecord) error {
			if keep(r) {
				records = append(records, r)
			}
			return nil
		})
	})
	return records, err
}

func tagsToDomain(records []*tagRecord) ([]*domain.Tag, error) {
	tags := make([]*domain.Tag, 0, len(records))
	for _, r := range records {
		t, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// checkTagRefs verifies every ref names a tag of ownerID.
func (s *Store) checkTagRefs(txn *badger.Txn, ownerID string, refs []domain.TagRef) error {
	for _, ref := range refs {
		r, err := s.ownedTag(txn, ownerID, ref.UUID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && r.ID != ref.ID) {
			return store.ErrInvalidInput.WithCause(errors.New("tag " + ref.UUID.String() + " is not owned by " + ownerID))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
