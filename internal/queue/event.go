package queue

import "time"

// QueueNotePublished is the durable queue carrying note publication events.
const QueueNotePublished = "note.published"

// NotePublishedEvent is emitted whenever a note transitions into the
// published status.
type NotePublishedEvent struct {
	NoteID      uint64    `json:"note_id"`
	UserID      uint64    `json:"user_id"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
}
