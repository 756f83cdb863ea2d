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

// TagChange is one tag record sent by a client. Absent fields are left alone.
type TagChange struct {
	UUID    string  `json:"uuid,omitempty" validate:"omitempty,uuidstr"`
	Name    *string `json:"name,omitempty" validate:"omitempty,tagname"`
	Deleted bool    `json:"deleted,omitempty"`
}

// NoteChange is one note record sent by a client. A non-nil Tags, even an
// empty one, replaces the note's whole tag set.
type NoteChange struct {
	UUID    string   `json:"uuid,omitempty" validate:"omitempty,uuidstr"`
	Text    *string  `json:"text,omitempty"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,dive,uuidstr"`
	Created *string  `json:"created,omitempty" validate:"omitempty,timestamp"`
	Deleted bool     `json:"deleted,omitempty"`
}

// SyncRequest is the body of a sync call.
type SyncRequest struct {
	LastSync *string      `json:"last_sync,omitempty" validate:"omitempty,timestamp"`
	Tags     []TagChange  `json:"tags,omitempty" validate:"dive"`
	Notes    []NoteChange `json:"notes,omitempty" validate:"dive"`
}

// TagDelta is a tag as reported back to clients. Tombstones carry only
// uuid and deleted.
type TagDelta struct {
	UUID    uuid.UUID `json:"uuid"`
	Name    *string   `json:"name,omitempty"`
	Deleted bool      `json:"deleted"`
}

// NoteDelta is a note as reported back to clients. Tombstones carry only
// uuid and deleted.
type NoteDelta struct {
	UUID    uuid.UUID   `json:"uuid"`
	Text    *string     `json:"text,omitempty"`
	Tags    []uuid.UUID `json:"tags,omitzero"`
	Created *string     `json:"created,omitempty"`
	Deleted bool        `json:"deleted"`
}

// SyncResponse is the result of a sync call. Time is the watermark the
// client sends back as last_sync next time.
type SyncResponse struct {
	Time  string      `json:"time"`
	Tags  []TagDelta  `json:"tags"`
	Notes []NoteDelta `json:"notes"`
}

// SyncService applies client changes and reports what changed since a
// client's watermark. Every call is scoped to one owner.
type SyncService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
	now       store.Clock
}

// SyncOption customises a SyncService.
type SyncOption func(*SyncService)

// WithSyncClock overrides the clock that stamps the response time.
func WithSyncClock(clock store.Clock) SyncOption {
	return func(s *SyncService) { s.now = clock }
}

// NewSyncService creates a sync service.
func NewSyncService(st store.Store, logger *slog.Logger, opts ...SyncOption) *SyncService {
	s := &SyncService{
		store:     st,
		validator: validation.New(),
		logger:    orDiscard(logger),
		now:       store.SystemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync applies req's tag changes, then its note changes, then returns every
// entity of ownerID modified after req.LastSync.
//
// The whole request is shape-checked before anything is written. Changes are
// then committed one at a time, so a reference error part way through
// leaves earlier changes in place; resending the batch is safe.
func (s *SyncService) Sync(ctx context.Context, ownerID string, req SyncRequest) (*SyncResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var watermark time.Time
	if req.LastSync != nil {
		var err error
		if watermark, err = domain.ParseTimestamp(*req.LastSync); err != nil {
			return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
				"last_sync": "must be an RFC 3339 timestamp or epoch milliseconds",
			})
		}
	}

	now := s.now().UTC()

	if err := s.applyTags(ctx, ownerID, req.Tags); err != nil {
		return nil, err
	}
	if err := s.applyNotes(ctx, ownerID, req.Notes); err != nil {
		return nil, err
	}

	tags, notes, err := s.Deltas(ctx, ownerID, watermark)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("sync completed",
		"owner_id", ownerID,
		"tag_changes", len(req.Tags),
		"note_changes", len(req.Notes),
		"tag_deltas", len(tags),
		"note_deltas", len(notes),
	)

	return &SyncResponse{
		Time:  domain.FormatTimestamp(now),
		Tags:  tags,
		Notes: notes,
	}, nil
}

// ApplyTagChanges shape-checks changes, then applies them in order.
func (s *SyncService) ApplyTagChanges(ctx context.Context, ownerID string, changes []TagChange) error {
	if err := s.validator.Validate(SyncRequest{Tags: changes}); err != nil {
		return err
	}
	return s.applyTags(ctx, ownerID, changes)
}

// ApplyNoteChanges shape-checks changes, then applies them in order.
func (s *SyncService) ApplyNoteChanges(ctx context.Context, ownerID string, changes []NoteChange) error {
	if err := s.validator.Validate(SyncRequest{Notes: changes}); err != nil {
		return err
	}
	return s.applyNotes(ctx, ownerID, changes)
}

func (s *SyncService) applyTags(ctx context.Context, ownerID string, changes []TagChange) error {
	for i, c := range changes {
		if err := s.applyTag(ctx, ownerID, c); err != nil {
			return withIndex(err, "tags", i)
		}
	}
	return nil
}

func (s *SyncService) applyNotes(ctx context.Context, ownerID string, changes []NoteChange) error {
	for i, c := range changes {
		if err := s.applyNote(ctx, ownerID, c); err != nil {
			return withIndex(err, "notes", i)
		}
	}
	return nil
}

func (s *SyncService) applyTag(ctx context.Context, ownerID string, c TagChange) error {
	if c.Deleted {
		if c.UUID == "" {
			return nil
		}
		_, err := tombstoneTag(ctx, s.store, ownerID, uuid.MustParse(c.UUID))
		return err
	}

	tagUUID := uuid.New()
	if c.UUID != "" {
		tagUUID = uuid.MustParse(c.UUID)
	}
	var patch domain.TagPatch
	if c.Name != nil {
		patch.Name = domain.Some(domain.NormalizeTagName(*c.Name))
	}

	_, err := upsertTag(ctx, s.store, ownerID, tagUUID, patch)
	return err
}

func (s *SyncService) applyNote(ctx context.Context, ownerID string, c NoteChange) error {
	if c.Deleted {
		if c.UUID == "" {
			return nil
		}
		_, err := tombstoneNote(ctx, s.store, ownerID, uuid.MustParse(c.UUID))
		return err
	}

	noteUUID := uuid.New()
	if c.UUID != "" {
		noteUUID = uuid.MustParse(c.UUID)
	}

	existing, err := s.store.GetNote(ctx, ownerID, noteUUID)
	if err != nil && !domainerrors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("get note: %w", err)
	}
	if existing != nil && existing.IsTombstone() {
		return nil
	}

	patch := domain.NotePatch{Text: domain.FromPtr(c.Text)}
	if c.Tags != nil {
		refs, err := resolveTagRefs(ctx, s.store, ownerID, c.Tags)
		if err != nil {
			return err
		}
		patch.Tags = domain.Some(refs)
	}

	var created time.Time
	if c.Created != nil {
		// Already shape-checked.
		created, _ = domain.ParseTimestamp(*c.Created)
	}

	_, err = upsertNote(ctx, s.store, ownerID, noteUUID, existing, patch, created)
	return err
}

// Deltas returns the owner's tags and notes modified at or after
// domain.EffectiveSince(watermark), oldest first. A zero watermark returns
// everything.
func (s *SyncService) Deltas(ctx context.Context, ownerID string, watermark time.Time) ([]TagDelta, []NoteDelta, error) {
	since := domain.EffectiveSince(watermark)

	tags, err := s.store.TagsModifiedSince(ctx, ownerID, since)
	if err != nil {
		return nil, nil, fmt.Errorf("tags modified since: %w", err)
	}
	notes, err := s.store.NotesModifiedSince(ctx, ownerID, since)
	if err != nil {
		return nil, nil, fmt.Errorf("notes modified since: %w", err)
	}

	tagDeltas := make([]TagDelta, 0, len(tags))
	for _, t := range tags {
		tagDeltas = append(tagDeltas, NewTagDelta(t))
	}
	noteDeltas := make([]NoteDelta, 0, len(notes))
	for _, n := range notes {
		noteDeltas = append(noteDeltas, NewNoteDelta(n))
	}
	return tagDeltas, noteDeltas, nil
}

// NewTagDelta renders t for clients.
func NewTagDelta(t *domain.Tag) TagDelta {
	if t.IsTombstone() {
		return TagDelta{UUID: t.UUID, Deleted: true}
	}
	name := t.Content.Name
	return TagDelta{UUID: t.UUID, Name: &name}
}

// NewNoteDelta renders n for clients.
func NewNoteDelta(n *domain.Note) NoteDelta {
	if n.IsTombstone() {
		return NoteDelta{UUID: n.UUID, Deleted: true}
	}
	text := n.Content.Text
	created := domain.FormatTimestamp(n.Content.Created)
	return NoteDelta{
		UUID:    n.UUID,
		Text:    &text,
		Tags:    n.Content.TagUUIDs(),
		Created: &created,
	}
}

// withIndex prefixes a validation error's message with the record it came
// from so clients can find the offending change.
func withIndex(err error, list string, i int) error {
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) && domainErr.Code == domainerrors.CodeValidation {
		out := domainerrors.Validationf("%s[%d]: %s", list, i, domainErr.Message).WithCause(domainErr)
		if domainErr.Details != nil {
			out = out.WithDetails(domainErr.Details)
		}
		return out
	}
	return err
}
