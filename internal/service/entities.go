package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/n1k0r/librenotes-server/internal/domain"
	domainerrors "github.com/n1k0r/librenotes-server/internal/errors"
	"github.com/n1k0r/librenotes-server/internal/store"
)

// The helpers below are the single write path for tags and notes. Sync and
// the CRUD services both go through them, so a note deleted over REST and a
// note deleted by sync end up as the same tombstone.

var errUUIDInUse = domainerrors.ValidationWithDetails("uuid already in use", map[string]string{
	"uuid": "already in use",
})

// tombstoneTag deletes the owner's tag. A missing tag yields (nil, nil).
func tombstoneTag(ctx context.Context, st store.Store, ownerID string, tagUUID uuid.UUID) (*domain.Tag, error) {
	tag, err := st.TombstoneTag(ctx, ownerID, tagUUID)
	if domainerrors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tombstone tag: %w", err)
	}
	return tag, nil
}

// tombstoneNote deletes the owner's note. A missing note yields (nil, nil).
func tombstoneNote(ctx context.Context, st store.Store, ownerID string, noteUUID uuid.UUID) (*domain.Note, error) {
	note, err := st.TombstoneNote(ctx, ownerID, noteUUID)
	if domainerrors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tombstone note: %w", err)
	}
	return note, nil
}

// upsertTag patches the owner's tag, or creates it when the owner has no tag
// with that uuid. Tombstones are returned unchanged.
func upsertTag(ctx context.Context, st store.Store, ownerID string, tagUUID uuid.UUID, patch domain.TagPatch) (*domain.Tag, error) {
	existing, err := st.GetTag(ctx, ownerID, tagUUID)
	if err != nil && !domainerrors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get tag: %w", err)
	}

	if existing == nil {
		tag, err := st.CreateTag(ctx, ownerID, tagUUID, patch.Apply(domain.TagContent{}))
		if err == nil {
			return tag, nil
		}
		if !domainerrors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("create tag: %w", err)
		}
		// Either another owner holds the uuid, or a concurrent request of
		// this owner created it first.
		existing, err = st.GetTag(ctx, ownerID, tagUUID)
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, errUUIDInUse
		}
		if err != nil {
			return nil, fmt.Errorf("get tag: %w", err)
		}
	}

	if existing.IsTombstone() {
		return existing, nil
	}
	tag, err := st.UpdateTag(ctx, ownerID, tagUUID, patch)
	if err != nil {
		return nil, fmt.Errorf("update tag: %w", err)
	}
	return tag, nil
}

// upsertNote is upsertTag for notes. existing is the caller's lookup of
// noteUUID, nil when absent. created only applies when the note is created.
func upsertNote(
	ctx context.Context,
	st store.Store,
	ownerID string,
	noteUUID uuid.UUID,
	existing *domain.Note,
	patch domain.NotePatch,
	created time.Time,
) (*domain.Note, error) {
	if existing == nil {
		content := patch.Apply(domain.NoteContent{Created: created})
		note, err := st.CreateNote(ctx, ownerID, noteUUID, content)
		if err == nil {
			return note, nil
		}
		if domainerrors.Is(err, store.ErrInvalidInput) {
			return nil, foreignTagError(err)
		}
		if !domainerrors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("create note: %w", err)
		}
		existing, err = st.GetNote(ctx, ownerID, noteUUID)
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, errUUIDInUse
		}
		if err != nil {
			return nil, fmt.Errorf("get note: %w", err)
		}
	}

	if existing.IsTombstone() {
		return existing, nil
	}
	note, err := st.UpdateNote(ctx, ownerID, noteUUID, patch)
	if domainerrors.Is(err, store.ErrInvalidInput) {
		return nil, foreignTagError(err)
	}
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return note, nil
}

// resolveTagRefs maps tag uuids to references of the owner's live tags.
// Any uuid that is malformed, unknown, another owner's or tombstoned fails
// the whole list.
func resolveTagRefs(ctx context.Context, st store.Store, ownerID string, raw []string) ([]domain.TagRef, error) {
	refs := make([]domain.TagRef, 0, len(raw))
	for i, s := range raw {
		tagUUID, err := uuid.Parse(s)
		if err != nil {
			return nil, domainerrors.ValidationWithDetails("invalid tag reference", map[string]string{
				fmt.Sprintf("tags[%d]", i): "must be a valid UUID",
			})
		}

		tag, err := st.GetTag(ctx, ownerID, tagUUID)
		if err != nil && !domainerrors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("get tag: %w", err)
		}
		if tag == nil || tag.IsTombstone() {
			return nil, domainerrors.ValidationWithDetails("unknown tag "+tagUUID.String(), map[string]string{
				fmt.Sprintf("tags[%d]", i): "does not name one of your tags",
			})
		}
		refs = append(refs, tag.Ref())
	}
	return refs, nil
}

func foreignTagError(cause error) error {
	return domainerrors.Validation("tag reference does not belong to the note owner").WithCause(cause)
}

// orDiscard lets constructors accept a nil logger.
func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
