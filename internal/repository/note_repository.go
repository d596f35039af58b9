package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mkondo/notes-api/internal/model"
)

// NoteRepo provides CRUD over notes. Every owner-facing query is scoped by
// user_id so a note belonging to someone else is indistinguishable from a
// missing one. Child rows are removed by the parent_note_id ON DELETE
// CASCADE foreign key; the repository never deletes children explicitly.
type NoteRepo struct{ DB *sql.DB }

func NewNoteRepo(db *sql.DB) *NoteRepo { return &NoteRepo{DB: db} }

// NoteRow is a note plus a snapshot of its parent's status, fetched in the
// same query. The depth-2 invariant means the parent's own status is its
// effective status, so one LEFT JOIN is enough to derive visibility.
type NoteRow struct {
	model.Note
	ParentStatus *model.Status
}

// ListQuery carries the caller-supplied filters for List. Search matches
// title or body case-insensitively (LIKE; ranking is the database's
// concern). Sort accepts created_at or updated_at with an optional leading
// '-'; anything else falls back to -created_at.
type ListQuery struct {
	Search string
	Sort   string
}

const noteColumns = `n.id, n.user_id, n.title, n.body, n.status, n.parent_note_id,
	n.favorited_at, n.created_at, n.updated_at, p.status AS parent_status`

const noteJoin = `FROM notes n LEFT JOIN notes p ON p.id = n.parent_note_id`

// Create inserts the note and reads back the generated ID and timestamps.
func (r *NoteRepo) Create(ctx context.Context, n *model.Note) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO notes (user_id, title, body, status, parent_note_id, favorited_at) VALUES (?,?,?,?,?,?)",
		n.UserID, n.Title, n.Body, string(n.Status), nullableID(n.ParentNoteID), nullableTime(n.FavoritedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return r.DB.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM notes WHERE id=?", n.ID).
		Scan(&n.CreatedAt, &n.UpdatedAt)
}

// GetOwned fetches a note by id scoped to its owner.
func (r *NoteRepo) GetOwned(ctx context.Context, userID, id uint64) (NoteRow, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+noteColumns+" "+noteJoin+" WHERE n.id=? AND n.user_id=? LIMIT 1",
		id, userID)
	return scanNoteRow(row)
}

// GetAny fetches a note by id with no ownership scope. It exists solely so
// parent references can be validated with a precise error ("must belong to
// the same user") instead of a generic not-found.
func (r *NoteRepo) GetAny(ctx context.Context, id uint64) (model.Note, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+noteColumns+" "+noteJoin+" WHERE n.id=? LIMIT 1", id)
	nr, err := scanNoteRow(row)
	return nr.Note, err
}

// GetPublished fetches a note by id for anonymous access. Visibility is
// the effective status: archived notes are always hidden, a child inherits
// its parent's status, and a root note shows its own. The WHERE clause
// mirrors that derivation so an invisible note is indistinguishable from a
// missing one.
func (r *NoteRepo) GetPublished(ctx context.Context, id uint64) (NoteRow, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+noteColumns+" "+noteJoin+
			" WHERE n.id=? AND n.status<>'archived' AND COALESCE(p.status, n.status)='published' LIMIT 1", id)
	return scanNoteRow(row)
}

// List returns the user's notes with optional search and sorting.
func (r *NoteRepo) List(ctx context.Context, userID uint64, q ListQuery) ([]NoteRow, error) {
	where := "n.user_id=?"
	args := []any{userID}
	if q.Search != "" {
		where += " AND (LOWER(n.title) LIKE ? OR LOWER(n.body) LIKE ?)"
		pattern := "%" + strings.ToLower(q.Search) + "%"
		args = append(args, pattern, pattern)
	}
	query := "SELECT " + noteColumns + " " + noteJoin + " WHERE " + where +
		" ORDER BY " + sortClause(q.Sort)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		nr, err := scanNoteRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, nr)
	}
	return out, rows.Err()
}

// Update rewrites the mutable columns and reads back updated_at.
func (r *NoteRepo) Update(ctx context.Context, n *model.Note) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE notes SET title=?, body=?, status=?, parent_note_id=?, favorited_at=?, updated_at=NOW() WHERE id=? AND user_id=?",
		n.Title, n.Body, string(n.Status), nullableID(n.ParentNoteID), nullableTime(n.FavoritedAt), n.ID, n.UserID)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		// RowsAffected is 0 both for a missing row and for a no-op
		// update; distinguish with a lookup.
		var exists bool
		if err := r.DB.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM notes WHERE id=? AND user_id=?)",
			n.ID, n.UserID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return r.DB.QueryRowContext(ctx,
		"SELECT updated_at FROM notes WHERE id=?", n.ID).Scan(&n.UpdatedAt)
}

// Delete removes a note owned by the user. Children go with it via the
// foreign key cascade.
func (r *NoteRepo) Delete(ctx context.Context, userID, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM notes WHERE id=? AND user_id=?", id, userID)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNoteRow(row rowScanner) (NoteRow, error) {
	var (
		nr           NoteRow
		status       string
		parentID     sql.NullInt64
		favoritedAt  sql.NullTime
		parentStatus sql.NullString
	)
	err := row.Scan(&nr.ID, &nr.UserID, &nr.Title, &nr.Body, &status, &parentID,
		&favoritedAt, &nr.CreatedAt, &nr.UpdatedAt, &parentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return NoteRow{}, ErrNotFound
	}
	if err != nil {
		return NoteRow{}, err
	}
	nr.Status = model.Status(status)
	if parentID.Valid {
		id := uint64(parentID.Int64)
		nr.ParentNoteID = &id
	}
	if favoritedAt.Valid {
		t := favoritedAt.Time
		nr.FavoritedAt = &t
	}
	if parentStatus.Valid {
		s := model.Status(parentStatus.String)
		nr.ParentStatus = &s
	}
	return nr, nil
}

// sortClause maps a `sort` query parameter onto an ORDER BY expression.
// Only created_at and updated_at are sortable; unknown fields fall back to
// the default of newest first.
func sortClause(sort string) string {
	field := sort
	desc := false
	if strings.HasPrefix(field, "-") {
		desc = true
		field = strings.TrimPrefix(field, "-")
	}
	switch field {
	case "created_at", "updated_at":
	default:
		return "n.created_at DESC"
	}
	if desc {
		return "n." + field + " DESC"
	}
	return "n." + field + " ASC"
}

func nullableID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
