package kv

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/n1k0r/librenotes-server/internal/domain"
)

// Persisted shapes. The domain types hide secrets and flatten variants
// differently, so each kind has its own record.

type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastLoginAt  time.Time `json:"last_login_at"`
}

func userToRecord(u *domain.User) *userRecord {
	return &userRecord{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLoginAt:  u.LastLoginAt,
	}
}

func (r *userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLoginAt:  r.LastLoginAt,
	}
}

type sessionRecord struct {
	domain.Session
	RefreshTokenHash string `json:"refresh_token_hash"`
}

func sessionToRecord(s *domain.Session) *sessionRecord {
	return &sessionRecord{Session: *s, RefreshTokenHash: s.RefreshTokenHash}
}

func (r *sessionRecord) toDomain() *domain.Session {
	s := r.Session
	s.RefreshTokenHash = r.RefreshTokenHash
	return &s
}

type tagRecord struct {
	ID           string    `json:"id"`
	UUID         string    `json:"uuid"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"`
	LastModified time.Time `json:"last_modified"`
	Deleted      bool      `json:"deleted"`
}

func (r *tagRecord) toDomain() (*domain.Tag, error) {
	rec, err := record(r.ID, r.UUID, r.OwnerID, r.LastModified)
	if err != nil {
		return nil, err
	}
	if r.Deleted {
		return domain.NewTagTombstone(rec), nil
	}
	return domain.NewTag(rec, domain.TagContent{Name: r.Name}), nil
}

type tagRefRecord struct {
	ID   string `json:"id"`
	UUID string `json:"uuid"`
}

type noteRecord struct {
	ID           string         `json:"id"`
	UUID         string         `json:"uuid"`
	OwnerID      string         `json:"owner_id"`
	Text         string         `json:"text"`
	Created      time.Time      `json:"created"`
	LastModified time.Time      `json:"last_modified"`
	Deleted      bool           `json:"deleted"`
	Tags         []tagRefRecord `json:"tags"`
}

func (r *noteRecord) toDomain() (*domain.Note, error) {
	rec, err := record(r.ID, r.UUID, r.OwnerID, r.LastModified)
	if err != nil {
		return nil, err
	}
	if r.Deleted {
		return domain.NewNoteTombstone(rec), nil
	}

	tags := make([]domain.TagRef, 0, len(r.Tags))
	for _, t := range r.Tags {
		tagUUID, err := uuid.Parse(t.UUID)
		if err != nil {
			return nil, fmt.Errorf("parse tag uuid %q: %w", t.UUID, err)
		}
		tags = append(tags, domain.TagRef{ID: t.ID, UUID: tagUUID})
	}
	return domain.NewNote(rec, domain.NoteContent{Text: r.Text, Created: r.Created, Tags: tags}), nil
}

func tagRefsToRecords(refs []domain.TagRef) []tagRefRecord {
	out := make([]tagRefRecord, 0, len(refs))
	for _, ref := range domain.DedupeTagRefs(refs) {
		out = append(out, tagRefRecord{ID: ref.ID, UUID: ref.UUID.String()})
	}
	return out
}

func record(id, rawUUID, ownerID string, lastModified time.Time) (domain.Record, error) {
	parsed, err := uuid.Parse(rawUUID)
	if err != nil {
		return domain.Record{}, fmt.Errorf("parse uuid %q: %w", rawUUID, err)
	}
	return domain.Record{ID: id, UUID: parsed, OwnerID: ownerID, LastModified: lastModified.UTC()}, nil
}
