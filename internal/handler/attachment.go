package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mkondo/notes-api/internal/httperr"
	"github.com/mkondo/notes-api/internal/model"
	"github.com/mkondo/notes-api/internal/note"
)

// attachRequest finalizes a previously presigned upload by recording its
// metadata against a note.
type attachRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	ByteSize    int64  `json:"byte_size"`
	StorageKey  string `json:"storage_key"`
}

// Attach records an uploaded blob as an attachment of an owned note. The
// metadata is re-validated here; the presign step is advisory and clients
// cannot be trusted to have respected it.
func (h *NoteHandler) Attach(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "missing authentication")
	}
	noteID, ok := pathID(c, "id")
	if !ok {
		return httperr.JSON(c, http.StatusNotFound, "not_found", "resource not found")
	}
	var req attachRequest
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}
	if req.StorageKey == "" {
		return httperr.JSON(c, http.StatusBadRequest, "bad_request", "storage_key is required")
	}
	ctx := c.Request().Context()

	if _, err := h.Notes.GetOwned(ctx, userID, noteID); err != nil {
		return respondError(c, err)
	}
	if ve := note.ValidateAttachmentMeta(req.Filename, req.ContentType, req.ByteSize); len(ve) > 0 {
		return respondError(c, ve)
	}

	a := model.Attachment{
		NoteID:      noteID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		ByteSize:    req.ByteSize,
		StorageKey:  req.StorageKey,
	}
	if err := h.Attachments.Create(ctx, &a); err != nil {
		return respondError(c, err)
	}

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
	return c.JSON(http.StatusCreated, map[string]attachmentResponse{"attachment": ar})
}

// Detach removes an attachment from an owned note, deleting the metadata
// row first and the blob best-effort after.
func (h *NoteHandler) Detach(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "missing authentication")
	}
	noteID, ok := pathID(c, "id")
	if !ok {
		return httperr.JSON(c, http.StatusNotFound, "not_found", "resource not found")
	}
	attID, ok := pathID(c, "attachment_id")
	if !ok {
		return httperr.JSON(c, http.StatusNotFound, "not_found", "resource not found")
	}
	ctx := c.Request().Context()

	if _, err := h.Notes.GetOwned(ctx, userID, noteID); err != nil {
		return respondError(c, err)
	}
	a, err := h.Attachments.Get(ctx, noteID, attID)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Attachments.Delete(ctx, noteID, attID); err != nil {
		return respondError(c, err)
	}
	if h.RemoveBlob != nil {
		_ = h.RemoveBlob(ctx, a.StorageKey)
	}
	return c.NoContent(http.StatusNoContent)
}
