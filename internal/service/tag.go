package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/n1k0r/librenotes-server/internal/domain"
	domainerrors "github.com/n1k0r/librenotes-server/internal/errors"
	"github.com/n1k0r/librenotes-server/internal/store"
	"github.com/n1k0r/librenotes-server/internal/validation"
)

// TagService is the REST view of an owner's tags.
type TagService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewTagService creates a tag service.
func NewTagService(st store.Store, logger *slog.Logger) *TagService {
	return &TagService{store: st, validator: validation.New(), logger: orDiscard(logger)}
}

// CreateTagRequest creates a tag. UUID is generated when empty.
type CreateTagRequest struct {
	UUID string `json:"uuid,omitempty" validate:"omitempty,uuidstr"`
	Name string `json:"name" validate:"required,tagname"`
}

// UpdateTagRequest patches a tag.
type UpdateTagRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,tagname"`
}

var errTagNotFound = domainerrors.NotFound("tag not found")

// ListTags returns the owner's live tags ordered by name.
func (s *TagService) ListTags(ctx context.Context, ownerID string) ([]*domain.Tag, error) {
	tags, err := s.store.ListTags(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// GetTag returns a live tag. Tombstones and other owners' tags are not found.
func (s *TagService) GetTag(ctx context.Context, ownerID string, tagUUID uuid.UUID) (*domain.Tag, error) {
	tag, err := s.store.GetTag(ctx, ownerID, tagUUID)
	if domainerrors.Is(err, store.ErrNotFound) || (err == nil && tag.IsTombstone()) {
		return nil, errTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return tag, nil
}

// CreateTag creates a tag. A uuid that is already taken, by anyone, is a conflict.
func (s *TagService) CreateTag(ctx context.Context, ownerID string, req CreateTagRequest) (*domain.Tag, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	tagUUID := uuid.New()
	if req.UUID != "" {
		tagUUID = uuid.MustParse(req.UUID)
	}

	tag, err := s.store.CreateTag(ctx, ownerID, tagUUID, domain.TagContent{Name: domain.NormalizeTagName(req.Name)})
	if domainerrors.Is(err, store.ErrAlreadyExists) {
		return nil, domainerrors.AlreadyExists("tag uuid already in use")
	}
	if err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}

	s.logger.Debug("tag created", "owner_id", ownerID, "tag_uuid", tag.UUID)
	return tag, nil
}

// UpdateTag patches a live tag.
func (s *TagService) UpdateTag(ctx context.Context, ownerID string, tagUUID uuid.UUID, req UpdateTagRequest) (*domain.Tag, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.GetTag(ctx, ownerID, tagUUID); err != nil {
		return nil, err
	}

	var patch domain.TagPatch
	if req.Name != nil {
		patch.Name = domain.Some(domain.NormalizeTagName(*req.Name))
	}
	return upsertTag(ctx, s.store, ownerID, tagUUID, patch)
}

// DeleteTag tombstones a tag. Deleting a tombstone again succeeds.
func (s *TagService) DeleteTag(ctx context.Context, ownerID string, tagUUID uuid.UUID) error {
	tag, err := tombstoneTag(ctx, s.store, ownerID, tagUUID)
	if err != nil {
		return err
	}
	if tag == nil {
		return errTagNotFound
	}
	s.logger.Debug("tag deleted", "owner_id", ownerID, "tag_uuid", tagUUID)
	return nil
}
