package model

import "time"

// Status is the visibility state of a note. The three values are a
// closed set; anything else is rejected at write time.
type Status string

const (
	StatusPersonal  Status = "personal"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPersonal, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Note represents a row in the `notes` table. A note belongs to exactly
// one user. ParentNoteID links a child to its parent; nesting is capped
// at depth 2, so a parent never has a parent of its own. FavoritedAt is
// nil when the note is not favorited and is cleared automatically when
// the note transitions to archived.
//
// Deleting a user cascades to their notes; deleting a parent note
// cascades to its children.
type Note struct {
	ID           uint64     // notes.id
	UserID       uint64     // notes.user_id
	Title        string     // notes.title (may be empty)
	Body         string     // notes.body (may be empty)
	Status       Status     // notes.status
	ParentNoteID *uint64    // notes.parent_note_id (nullable)
	FavoritedAt  *time.Time // notes.favorited_at (nullable)
	CreatedAt    time.Time  // notes.created_at
	UpdatedAt    time.Time  // notes.updated_at
}

// Attachment is the metadata row for a binary blob attached to a note.
// The bytes themselves live in object storage under StorageKey; only
// content type and size are validated server-side.
type Attachment struct {
	ID          uint64    // attachments.id
	NoteID      uint64    // attachments.note_id
	Filename    string    // attachments.filename
	ContentType string    // attachments.content_type
	ByteSize    int64     // attachments.byte_size
	StorageKey  string    // attachments.storage_key
	CreatedAt   time.Time // attachments.created_at
}
