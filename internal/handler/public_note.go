package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkondo/notes-api/internal/httperr"
	"github.com/mkondo/notes-api/internal/model"
	"github.com/mkondo/notes-api/internal/note"
)

// PublicNoteHandler serves the anonymous read-only view of published notes.
type PublicNoteHandler struct {
	Notes       NoteStore
	Attachments AttachmentStore
	FileURL     func(key string) string
}

func NewPublicNoteHandler(notes NoteStore, atts AttachmentStore) *PublicNoteHandler {
	return &PublicNoteHandler{Notes: notes, Attachments: atts}
}

type publicNoteResponse struct {
	ID          uint64               `json:"id"`
	Title       string               `json:"title"`
	Body        string               `json:"body"`
	Attachments []attachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Get returns a published note by ID. Visibility is the effective status: a
// note whose own status is published but whose parent is not stays hidden,
// and everything non-visible is a plain 404 with no hint the note exists.
func (h *PublicNoteHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return httperr.JSON(c, http.StatusNotFound, "not_found", "resource not found")
	}
	ctx := c.Request().Context()

	row, err := h.Notes.GetPublished(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if note.EffectiveStatus(row.Status, row.ParentStatus) != model.StatusPublished {
		return httperr.JSON(c, http.StatusNotFound, "not_found", "resource not found")
	}

	atts, err := h.Attachments.ListByNote(ctx, row.ID)
	if err != nil {
		return respondError(c, err)
	}
	out := publicNoteResponse{
		ID:          row.ID,
		Title:       row.Title,
		Body:        row.Body,
		Attachments: []attachmentResponse{},
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	for _, a := range atts {
		ar := attachmentResponse{
			ID:          a.ID,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			ByteSize:    a.ByteSize,
			CreatedAt:   a.CreatedAt,
		}
		if h.FileURL != nil {
			ar.URL = h.FileURL(a.StorageKey)
		}
		out.Attachments = append(out.Attachments, ar)
	}
	return c.JSON(http.StatusOK, map[string]publicNoteResponse{"note": out})
}
