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
	"github.com/n1k0r/librenotes-server/internal/validation"
)

// NoteService is the REST view of an owner's notes.
type NoteService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewNoteService creates a note service.
func NewNoteService(st store.Store, logger *slog.Logger) *NoteService {
	return &NoteService{store: st, validator: validation.New(), logger: orDiscard(logger)}
}

// CreateNoteRequest creates a note. UUID is generated when empty and
// Created defaults to the server time.
type CreateNoteRequest struct {
	UUID    string   `json:"uuid,omitempty" validate:"omitempty,uuidstr"`
	Text    string   `json:"text"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,dive,uuidstr"`
	Created string   `json:"created,omitempty" validate:"omitempty,timestamp"`
}

// UpdateNoteRequest patches a note. A non-nil Tags replaces the tag set.
type UpdateNoteRequest struct {
	Text *string  `json:"text,omitempty"`
	Tags []string `json:"tags,omitempty" validate:"omitempty,dive,uuidstr"`
}

// ListNotesRequest filters ListNotes.
type ListNotesRequest struct {
	Tag string `json:"tag,omitempty" validate:"omitempty,uuidstr"`
}

var errNoteNotFound = domainerrors.NotFound("note not found")

// ListNotes returns the owner's live notes, newest first.
func (s *NoteService) ListNotes(ctx context.Context, ownerID string, req ListNotesRequest) ([]*domain.Note, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var filter store.NoteFilter
	if req.Tag != "" {
		tagUUID := uuid.MustParse(req.Tag)
		filter.TagUUID = &tagUUID
	}

	notes, err := s.store.ListNotes(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// GetNote returns a live note. Tombstones and other owners' notes are not found.
func (s *NoteService) GetNote(ctx context.Context, ownerID string, noteUUID uuid.UUID) (*domain.Note, error) {
	note, err := s.store.GetNote(ctx, ownerID, noteUUID)
	if domainerrors.Is(err, store.ErrNotFound) || (err == nil && note.IsTombstone()) {
		return nil, errNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

// CreateNote creates a note. A uuid that is already taken is a conflict.
func (s *NoteService) CreateNote(ctx context.Context, ownerID string, req CreateNoteRequest) (*domain.Note, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	refs, err := resolveTagRefs(ctx, s.store, ownerID, req.Tags)
	if err != nil {
		return nil, err
	}

	content := domain.NoteContent{Text: req.Text, Tags: refs}
	if req.Created != "" {
		content.Created, _ = domain.ParseTimestamp(req.Created)
	}

	noteUUID := uuid.New()
	if req.UUID != "" {
		noteUUID = uuid.MustParse(req.UUID)
	}

	note, err := s.store.CreateNote(ctx, ownerID, noteUUID, content)
	switch {
	case domainerrors.Is(err, store.ErrAlreadyExists):
		return nil, domainerrors.AlreadyExists("note uuid already in use")
	case domainerrors.Is(err, store.ErrInvalidInput):
		return nil, foreignTagError(err)
	case err != nil:
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.logger.Debug("note created", "owner_id", ownerID, "note_uuid", note.UUID)
	return note, nil
}

// UpdateNote patches a live note.
func (s *NoteService) UpdateNote(ctx context.Context, ownerID string, noteUUID uuid.UUID, req UpdateNoteRequest) (*domain.Note, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	existing, err := s.GetNote(ctx, ownerID, noteUUID)
	if err != nil {
		return nil, err
	}

	patch := domain.NotePatch{Text: domain.FromPtr(req.Text)}
	if req.Tags != nil {
		refs, err := resolveTagRefs(ctx, s.store, ownerID, req.Tags)
		if err != nil {
			return nil, err
		}
		patch.Tags = domain.Some(refs)
	}
	return upsertNote(ctx, s.store, ownerID, noteUUID, existing, patch, time.Time{})
}

// DeleteNote tombstones a note. Deleting a tombstone again succeeds.
func (s *NoteService) DeleteNote(ctx context.Context, ownerID string, noteUUID uuid.UUID) error {
	note, err := tombstoneNote(ctx, s.store, ownerID, noteUUID)
	if err != nil {
		return err
	}
	if note == nil {
		return errNoteNotFound
	}
	s.logger.Debug("note deleted", "owner_id", ownerID, "note_uuid", noteUUID)
	return nil
}
