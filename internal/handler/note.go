package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkondo/notes-api/internal/httperr"
	"github.com/mkondo/notes-api/internal/model"
	"github.com/mkondo/notes-api/internal/note"
	"github.com/mkondo/notes-api/internal/queue"
	"github.com/mkondo/notes-api/internal/repository"
)

// NoteHandler serves the owner-facing note CRUD. Publish, FileURL and
// RemoveBlob are optional collaborators; a nil value disables the concern
// (no events, no URLs, no blob cleanup) without changing request handling.
type NoteHandler struct {
	Notes       NoteStore
	Attachments AttachmentStore
	Publish     func(ctx context.Context, ev queue.NotePublishedEvent) error
	FileURL     func(key string) string
	RemoveBlob  func(ctx context.Context, key string) error
	Now         func() time.Time
}

func NewNoteHandler(notes NoteStore, atts AttachmentStore) *NoteHandler {
	return &NoteHandler{Notes: notes, Attachments: atts, Now: time.Now}
}

func (h *NoteHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

// noteRequest is the write payload. Pointers distinguish "absent" from
// "zero" so PATCH can be partial; parent_note_id of 0 detaches the parent.
type noteRequest struct {
	Title        *string       `json:"title"`
	Body         *string       `json:"body"`
	Status       *model.Status `json:"status"`
	ParentNoteID *uint64       `json:"parent_note_id"`
	Favorited    *bool         `json:"favorited"`
}

type attachmentResponse struct {
	ID          uint64    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	ByteSize    int64     `json:"byte_size"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type noteResponse struct {
	ID              uint64               `json:"id"`
	Title           string               `json:"title"`
	Body            string               `json:"body"`
	Status          model.Status         `json:"status"`
	EffectiveStatus model.Status         `json:"effective_status"`
	ParentNoteID    *uint64              `json:"parent_note_id"`
	FavoritedAt     *time.Time           `json:"favorited_at"`
	Attachments     []attachmentResponse `json:"attachments"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func (h *NoteHandler) toNoteResponse(row repository.NoteRow, atts []model.Attachment) noteResponse {
	out := noteResponse{
		ID:              row.ID,
		Title:           row.Title,
		Body:            row.Body,
		Status:          row.Status,
		EffectiveStatus: note.EffectiveStatus(row.Status, row.ParentStatus),
		ParentNoteID:    row.ParentNoteID,
		FavoritedAt:     row.FavoritedAt,
		Attachments:     []attachmentResponse{},
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
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
	return out
}

// List returns the caller's notes. Supports ?q= substring search over title
// and body and ?sort= of created_at/updated_at with a '-' prefix for
// descending.
func (h *NoteHandler) List(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "missing authentication")
	}
	ctx := c.Request().Context()

	rows, err := h.Notes.List(ctx, userID, repository.ListQuery{
		Search: c.QueryParam("q"),
		Sort:   c.QueryParam("sort"),
	})
	if err != nil {
		return respondError(c, err)
	}

	ids := make([]uint64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	attsByNote, err := h.Attachments.ListByNotes(ctx, ids)
	if err != nil {
		return respondError(c, err)
	}

	out := make([]noteResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, h.toNoteResponse(r, attsByNote[r.ID]))
	}
	return c.JSON(http.StatusOK, map[string][]noteResponse{"notes": out})
}

// Get returns one owned note with its attachments.
func (h *NoteHandler) Get(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "missing authentication")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return httperr.JSON(c, http.StatusNotFound, "not_found", "resource not found")
	}
	ctx := c.Request().Context()

	row, err := h.Notes.GetOwned(ctx, userID, id)
	if err != nil {
		return respondError(c, err)
	}
	atts, err := h.Attachments.ListByNote(ctx, row.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]noteResponse{"note": h.toNoteResponse(row, atts)})
}

// Create validates and inserts a new note. Validation failures accumulate
// across fields before anything is written.
func (h *NoteHandler) Create(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "missing authentication")
	}
	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}
	ctx := c.Request().Context()

	n := model.Note{UserID: userID, Status: model.StatusPersonal}
	if req.Title != nil {
		n.Title = *req.Title
	}
	if req.Body != nil {
		n.Body = *req.Body
	}
	if req.Status != nil {
		n.Status = *req.Status
	}
	if req.ParentNoteID != nil && *req.ParentNoteID != 0 {
		n.ParentNoteID = req.ParentNoteID
	}
	if req.Favorited != nil && *req.Favorited {
		now := h.now()
		n.FavoritedAt = &now
	}

	ve := note.ValidateStatus(n.Status)
	parent, perr := h.resolveParent(ctx, n)
	if perr != nil {
		return respondError(c, perr)
	}
	ve = append(ve, note.ValidateParent(n, parent)...)
	if len(ve) > 0 {
		return respondError(c, ve)
	}

	note.ApplyArchiveTransition(&n, model.StatusPersonal)
	if err := h.Notes.Create(ctx, &n); err != nil {
		return respondError(c, err)
	}
	if n.Status == model.StatusPublished {
		h.publishEvent(n)
	}

	row, err := h.Notes.GetOwned(ctx, userID, n.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]noteResponse{"note": h.toNoteResponse(row, nil)})
}

// Update applies a partial write to an owned note. Concurrent updates are
// last-write-wins at the row level.
func (h *NoteHandler) Update(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "missing authentication")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return httperr.JSON(c, http.StatusNotFound, "not_found", "resource not found")
	}
	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}
	ctx := c.Request().Context()

	existing, err := h.Notes.GetOwned(ctx, userID, id)
	if err != nil {
		return respondError(c, err)
	}
	previous := existing.Status

	n := existing.Note
	if req.Title != nil {
		n.Title = *req.Title
	}
	if req.Body != nil {
		n.Body = *req.Body
	}
	if req.Status != nil {
		n.Status = *req.Status
	}
	if req.ParentNoteID != nil {
		if *req.ParentNoteID == 0 {
			n.ParentNoteID = nil
		} else {
			n.ParentNoteID = req.ParentNoteID
		}
	}
	if req.Favorited != nil {
		if *req.Favorited {
			if n.FavoritedAt == nil {
				now := h.now()
				n.FavoritedAt = &now
			}
		} else {
			n.FavoritedAt = nil
		}
	}

	ve := note.ValidateStatus(n.Status)
	parent, perr := h.resolveParent(ctx, n)
	if perr != nil {
		return respondError(c, perr)
	}
	ve = append(ve, note.ValidateParent(n, parent)...)
	if len(ve) > 0 {
		return respondError(c, ve)
	}

	note.ApplyArchiveTransition(&n, previous)
	if err := h.Notes.Update(ctx, &n); err != nil {
		return respondError(c, err)
	}
	if previous != model.StatusPublished && n.Status == model.StatusPublished {
		h.publishEvent(n)
	}

	row, err := h.Notes.GetOwned(ctx, userID, n.ID)
	if err != nil {
		return respondError(c, err)
	}
	atts, err := h.Attachments.ListByNote(ctx, n.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]noteResponse{"note": h.toNoteResponse(row, atts)})
}

// Delete removes an owned note. Children cascade away in the database;
// attachment blobs are removed best-effort after the row is gone.
func (h *NoteHandler) Delete(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "missing authentication")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return httperr.JSON(c, http.StatusNotFound, "not_found", "resource not found")
	}
	ctx := c.Request().Context()

	atts, err := h.Attachments.ListByNote(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return respondError(c, err)
	}
	if err := h.Notes.Delete(ctx, userID, id); err != nil {
		return respondError(c, err)
	}
	if h.RemoveBlob != nil {
		for _, a := range atts {
			_ = h.RemoveBlob(ctx, a.StorageKey)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// resolveParent loads the snapshot ValidateParent needs. The lookup is
// deliberately unscoped: a parent owned by someone else must produce the
// cross-user validation error, not a generic not-found.
func (h *NoteHandler) resolveParent(ctx context.Context, n model.Note) (*model.Note, error) {
	if n.ParentNoteID == nil {
		return nil, nil
	}
	p, err := h.Notes.GetAny(ctx, *n.ParentNoteID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// publishEvent emits a note.published event. Failures are swallowed; event
// delivery must never fail the write that triggered it.
func (h *NoteHandler) publishEvent(n model.Note) {
	if h.Publish == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.Publish(ctx, queue.NotePublishedEvent{
		NoteID:      n.ID,
		UserID:      n.UserID,
		Title:       n.Title,
		PublishedAt: h.now(),
	})
}
