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

// noteColumns must match the scan order in scanNote.
const noteColumns = `n.id, n.uuid, n.owner_id, n.text, n.created, n.last_modified, n.deleted`

// noteRow is a scanned notes row before its tag associations are attached.
type noteRow struct {
	rec     domain.Record
	text    string
	created time.Time
	deleted bool
}

func scanNote(scanner interface{ Scan(dest ...any) error }) (*noteRow, error) {
	var (
		r            noteRow
		rawUUID      string
		created      string
		lastModified string
		deleted      int
	)

	if err := scanner.Scan(&r.rec.ID, &rawUUID, &r.rec.OwnerID, &r.text, &created, &lastModified, &deleted); err != nil {
		return nil, err
	}

	var err error
	if r.rec.UUID, err = uuid.Parse(rawUUID); err != nil {
		return nil, fmt.Errorf("parse note uuid %q: %w", rawUUID, err)
	}
	if r.created, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse created: %w", err)
	}
	if r.rec.LastModified, err = parseTime(lastModified); err != nil {
		return nil, fmt.Errorf("parse last_modified: %w", err)
	}
	r.deleted = deleted != 0
	return &r, nil
}

// toDomain materialises the row as a live note or a tombstone.
func (r *noteRow) toDomain(tags []domain.TagRef) *domain.Note {
	if r.deleted {
		return domain.NewNoteTombstone(r.rec)
	}
	if tags == nil {
		tags = []domain.TagRef{}
	}
	return domain.NewNote(r.rec, domain.NoteContent{Text: r.text, Created: r.created, Tags: tags})
}

// loadNotes runs a note query and attaches tag references in one extra query.
func loadNotes(ctx context.Context, q queryer, query string, args ...any) ([]*domain.Note, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var scanned []*noteRow
	for rows.Next() {
		r, err := scanNote(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		scanned = append(scanned, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	tagsByNote, err := loadNoteTags(ctx, q, scanned)
	if err != nil {
		return nil, err
	}

	notes := make([]*domain.Note, 0, len(scanned))
	for _, r := range scanned {
		notes = append(notes, r.toDomain(tagsByNote[r.rec.ID]))
	}
	return notes, nil
}

// loadNoteTags returns the tag references of every live note in rows, keyed by note id.
func loadNoteTags(ctx context.Context, q queryer, notes []*noteRow) (map[string][]domain.TagRef, error) {
	ids := make([]any, 0, len(notes))
	for _, r := range notes {
		if !r.deleted {
			ids = append(ids, r.rec.ID)
		}
	}
	out := make(map[string][]domain.TagRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT nt.note_id, t.id, t.uuid
		FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id IN (`+placeholders(len(ids))+`)
		ORDER BY nt.note_id, nt.position`, ids...)
	if err != nil {
		return nil, fmt.Errorf("query note tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			noteID  string
			ref     domain.TagRef
			rawUUID string
		)
		if err := rows.Scan(&noteID, &ref.ID, &rawUUID); err != nil {
			return nil, err
		}
		if ref.UUID, err = uuid.Parse(rawUUID); err != nil {
			return nil, fmt.Errorf("parse tag uuid %q: %w", rawUUID, err)
		}
		out[noteID] = append(out[noteID], ref)
	}
	return out, rows.Err()
}

func getNote(ctx context.Context, q queryer, ownerID string, noteUUID uuid.UUID) (*domain.Note, error) {
	notes, err := loadNotes(ctx, q,
		`SELECT `+noteColumns+` FROM notes n WHERE n.uuid = ? AND n.owner_id = ?`,
		noteUUID.String(), ownerID)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, store.ErrNotFound
	}
	return notes[0], nil
}

// replaceNoteTags swaps the note's associations for refs. Each ref must be a
// tag of ownerID, otherwise store.ErrInvalidInput is returned.
func replaceNoteTags(ctx context.Context, tx *sql.Tx, ownerID, noteID string, refs []domain.TagRef) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("clear note tags: %w", err)
	}

	for i, ref := range domain.DedupeTagRefs(refs) {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO note_tags (note_id, tag_id, position)
			SELECT ?, id, ? FROM tags WHERE id = ? AND owner_id = ?`,
			noteID, i, ref.ID, ownerID,
		)
		if err != nil {
			return fmt.Errorf("insert note tag: %w", err)
		}
		if err := expectOneRow(res); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.ErrInvalidInput.WithCause(fmt.Errorf("tag %s is not owned by %s", ref.UUID, ownerID))
			}
			return err
		}
	}
	return nil
}

// GetNote returns the owner's note with noteUUID, live or tombstoned.
func (s *Store) GetNote(ctx context.Context, ownerID string, noteUUID uuid.UUID) (*domain.Note, error) {
	return getNote(ctx, s.db, ownerID, noteUUID)
}

// CreateNote inserts a live note with its tag associations.
// Returns store.ErrAlreadyExists when the uuid is in use by any owner.
func (s *Store) CreateNote(ctx context.Context, ownerID string, noteUUID uuid.UUID, content domain.NoteContent) (*domain.Note, error) {
	noteID, err := id.Generate(id.Note)
	if err != nil {
		return nil, err
	}

	now := s.stamp()
	if content.Created.IsZero() {
		content.Created = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (id, uuid, owner_id, text, created, last_modified, deleted)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
		noteID, noteUUID.String(), ownerID, content.Text, formatTime(content.Created), formatTime(now),
	)
	if isUniqueViolation(err) {
		return nil, store.ErrAlreadyExists.WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}

	if err := replaceNoteTags(ctx, tx, ownerID, noteID, content.Tags); err != nil {
		return nil, err
	}

	note, err := getNote(ctx, tx, ownerID, noteUUID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.syncSearch(ctx, note)
	return note, nil
}

// UpdateNote applies patch to a live note and stamps last_modified.
// A tombstone is returned untouched.
func (s *Store) UpdateNote(ctx context.Context, ownerID string, noteUUID uuid.UUID, patch domain.NotePatch) (*domain.Note, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	text, setText := patch.Text.Get()
	res, err := tx.ExecContext(ctx, `
		UPDATE notes SET
			text = CASE WHEN ? THEN ? ELSE text END,
			last_modified = ?
		WHERE uuid = ? AND owner_id = ? AND deleted = 0`,
		boolToInt(setText), text, formatTime(s.stamp()), noteUUID.String(), ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	note, err := getNote(ctx, tx, ownerID, noteUUID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Tombstone: nothing was written.
		return note, nil
	}

	if refs, ok := patch.Tags.Get(); ok {
		if err := replaceNoteTags(ctx, tx, ownerID, note.ID, refs); err != nil {
			return nil, err
		}
		if note, err = getNote(ctx, tx, ownerID, noteUUID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.syncSearch(ctx, note)
	return note, nil
}

// TombstoneNote clears text and tag associations, marks the note deleted and
// stamps last_modified.
func (s *Store) TombstoneNote(ctx context.Context, ownerID string, noteUUID uuid.UUID) (*domain.Note, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE notes SET text = '', deleted = 1, last_modified = ?
		WHERE uuid = ? AND owner_id = ?`,
		formatTime(s.stamp()), noteUUID.String(), ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("tombstone note: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM note_tags WHERE note_id = (SELECT id FROM notes WHERE uuid = ? AND owner_id = ?)`,
		noteUUID.String(), ownerID,
	); err != nil {
		return nil, fmt.Errorf("clear note tags: %w", err)
	}

	note, err := getNote(ctx, tx, ownerID, noteUUID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.syncSearch(ctx, note)
	return note, nil
}

// ListNotes returns the owner's live notes, newest created first.
func (s *Store) ListNotes(ctx context.Context, ownerID string, filter store.NoteFilter) ([]*domain.Note, error) {
	if filter.TagUUID != nil {
		return loadNotes(ctx, s.db, `
			SELECT `+noteColumns+` FROM notes n
			JOIN note_tags nt ON nt.note_id = n.id
			JOIN tags t ON t.id = nt.tag_id
			WHERE n.owner_id = ? AND n.deleted = 0 AND t.uuid = ? AND t.owner_id = n.owner_id
			ORDER BY n.created DESC, n.uuid`,
			ownerID, filter.TagUUID.String())
	}
	return loadNotes(ctx, s.db,
		`SELECT `+noteColumns+` FROM notes n WHERE n.owner_id = ? AND n.deleted = 0 ORDER BY n.created DESC, n.uuid`,
		ownerID)
}

// NotesModifiedSince returns the owner's notes, tombstones included, with
// last_modified >= since.
func (s *Store) NotesModifiedSince(ctx context.Context, ownerID string, since time.Time) ([]*domain.Note, error) {
	return loadNotes(ctx, s.db,
		`SELECT `+noteColumns+` FROM notes n WHERE n.owner_id = ? AND n.last_modified >= ? ORDER BY n.last_modified, n.uuid`,
		ownerID, formatTime(since))
}

// EachLiveNote calls fn for every live note in the database.
func (s *Store) EachLiveNote(ctx context.Context, fn func(*domain.Note) error) error {
	notes, err := loadNotes(ctx, s.db,
		`SELECT `+noteColumns+` FROM notes n WHERE n.deleted = 0 ORDER BY n.owner_id, n.created`)
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
