package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/n1k0r/librenotes-server/internal/domain"
	"github.com/n1k0r/librenotes-server/internal/id"
	"github.com/n1k0r/librenotes-server/internal/store"
)

// tagColumns must match the scan order in scanTag.
const tagColumns = `id, uuid, owner_id, name, last_modified, deleted`

// scanTag reads one tags row and rebuilds the live or tombstoned variant.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var (
		rec          domain.Record
		rawUUID      string
		name         string
		lastModified string
		deleted      int
	)

	if err := scanner.Scan(&rec.ID, &rawUUID, &rec.OwnerID, &name, &lastModified, &deleted); err != nil {
		return nil, err
	}

	var err error
	if rec.UUID, err = uuid.Parse(rawUUID); err != nil {
		return nil, fmt.Errorf("parse tag uuid %q: %w", rawUUID, err)
	}
	if rec.LastModified, err = parseTime(lastModified); err != nil {
		return nil, fmt.Errorf("parse last_modified: %w", err)
	}

	if deleted != 0 {
		return domain.NewTagTombstone(rec), nil
	}
	return domain.NewTag(rec, domain.TagContent{Name: name}), nil
}

func getTag(ctx context.Context, q queryer, ownerID string, tagUUID uuid.UUID) (*domain.Tag, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE uuid = ? AND owner_id = ?`, tagUUID.String(), ownerID)

	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return t, err
}

// GetTag returns the owner's tag with tagUUID, live or tombstoned.
func (s *Store) GetTag(ctx context.Context, ownerID string, tagUUID uuid.UUID) (*domain.Tag, error) {
	return getTag(ctx, s.db, ownerID, tagUUID)
}

// CreateTag inserts a live tag.
// Returns store.ErrAlreadyExists when the uuid is in use by any owner.
func (s *Store) CreateTag(ctx context.Context, ownerID string, tagUUID uuid.UUID, content domain.TagContent) (*domain.Tag, error) {
	tagID, err := id.Generate(id.Tag)
	if err != nil {
		return nil, err
	}

	rec := domain.Record{ID: tagID, UUID: tagUUID, OwnerID: ownerID, LastModified: s.stamp()}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tags (id, uuid, owner_id, name, last_modified, deleted)
		VALUES (?, ?, ?, ?, ?, 0)`,
		rec.ID, rec.UUID.String(), rec.OwnerID, content.Name, formatTime(rec.LastModified),
	)
	if isUniqueViolation(err) {
		return nil, store.ErrAlreadyExists.WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	return domain.NewTag(rec, content), nil
}

// UpdateTag applies patch to a live tag and stamps last_modified.
// A tombstone is returned untouched.
func (s *Store) UpdateTag(ctx context.Context, ownerID string, tagUUID uuid.UUID, patch domain.TagPatch) (*domain.Tag, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	name, setName := patch.Name.Get()

	// Write first so the transaction holds the write lock before reading.
	_, err = tx.ExecContext(ctx, `
		UPDATE tags SET
			name = CASE WHEN ? THEN ? ELSE name END,
			last_modified = ?
		WHERE uuid = ? AND owner_id = ? AND deleted = 0`,
		boolToInt(setName), name, formatTime(s.stamp()), tagUUID.String(), ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("update tag: %w", err)
	}

	t, err := getTag(ctx, tx, ownerID, tagUUID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

// TombstoneTag clears the tag's name, marks it deleted and stamps last_modified.
// Tombstoning a tombstone only advances last_modified.
func (s *Store) TombstoneTag(ctx context.Context, ownerID string, tagUUID uuid.UUID) (*domain.Tag, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE tags SET name = '', deleted = 1, last_modified = ?
		WHERE uuid = ? AND owner_id = ?`,
		formatTime(s.stamp()), tagUUID.String(), ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("tombstone tag: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}

	t, err := getTag(ctx, tx, ownerID, tagUUID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

// ListTags returns the owner's live tags ordered by name.
func (s *Store) ListTags(ctx context.Context, ownerID string) ([]*domain.Tag, error) {
	return s.queryTags(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE owner_id = ? AND deleted = 0 ORDER BY name COLLATE NOCASE, uuid`,
		ownerID)
}

// TagsModifiedSince returns the owner's tags, tombstones included, with
// last_modified >= since.
func (s *Store) TagsModifiedSince(ctx context.Context, ownerID string, since time.Time) ([]*domain.Tag, error) {
	return s.queryTags(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE owner_id = ? AND last_modified >= ? ORDER BY last_modified, uuid`,
		ownerID, formatTime(since))
}

func (s *Store) queryTags(ctx context.Context, query string, args ...any) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
