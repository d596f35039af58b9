package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mkondo/notes-api/internal/model"
)

// AttachmentRepo persists attachment metadata. The bytes themselves live in
// object storage; rows here only carry filename, content type, size and the
// storage key. Rows cascade away when their note is deleted.
type AttachmentRepo struct{ DB *sql.DB }

func NewAttachmentRepo(db *sql.DB) *AttachmentRepo { return &AttachmentRepo{DB: db} }

// Create inserts an attachment row and reads back id and created_at.
func (r *AttachmentRepo) Create(ctx context.Context, a *model.Attachment) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO attachments (note_id, filename, content_type, byte_size, storage_key) VALUES (?,?,?,?,?)",
		a.NoteID, a.Filename, a.ContentType, a.ByteSize, a.StorageKey)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return r.DB.QueryRowContext(ctx,
		"SELECT created_at FROM attachments WHERE id=?", a.ID).Scan(&a.CreatedAt)
}

// Get fetches one attachment scoped to its note.
func (r *AttachmentRepo) Get(ctx context.Context, noteID, id uint64) (model.Attachment, error) {
	var a model.Attachment
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, note_id, filename, content_type, byte_size, storage_key, created_at FROM attachments WHERE id=? AND note_id=? LIMIT 1",
		id, noteID).Scan(&a.ID, &a.NoteID, &a.Filename, &a.ContentType, &a.ByteSize, &a.StorageKey, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Attachment{}, ErrNotFound
	}
	return a, err
}

// ListByNote returns a note's attachments, oldest first.
func (r *AttachmentRepo) ListByNote(ctx context.Context, noteID uint64) ([]model.Attachment, error) {
	return r.list(ctx,
		"SELECT id, note_id, filename, content_type, byte_size, storage_key, created_at FROM attachments WHERE note_id=? ORDER BY created_at ASC, id ASC",
		noteID)
}

// ListByNotes returns attachments for a set of notes in one query, grouped
// by note id. Used by note listings to avoid per-note round trips.
func (r *AttachmentRepo) ListByNotes(ctx context.Context, noteIDs []uint64) (map[uint64][]model.Attachment, error) {
	out := make(map[uint64][]model.Attachment, len(noteIDs))
	if len(noteIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(noteIDs)), ",")
	args := make([]any, len(noteIDs))
	for i, id := range noteIDs {
		args[i] = id
	}
	atts, err := r.list(ctx,
		"SELECT id, note_id, filename, content_type, byte_size, storage_key, created_at FROM attachments WHERE note_id IN ("+placeholders+") ORDER BY created_at ASC, id ASC",
		args...)
	if err != nil {
		return nil, err
	}
	for _, a := range atts {
		out[a.NoteID] = append(out[a.NoteID], a)
	}
	return out, nil
}

// Delete removes one attachment row scoped to its note.
func (r *AttachmentRepo) Delete(ctx context.Context, noteID, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM attachments WHERE id=? AND note_id=?", id, noteID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AttachmentRepo) list(ctx context.Context, query string, args ...any) ([]model.Attachment, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Attachment
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.ID, &a.NoteID, &a.Filename, &a.ContentType, &a.ByteSize, &a.StorageKey, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
