// Package handler contains the HTTP endpoints. Handlers depend on small
// store interfaces rather than concrete repositories so they can be
// exercised end to end with in-memory fakes.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mkondo/notes-api/internal/httperr"
	"github.com/mkondo/notes-api/internal/model"
	"github.com/mkondo/notes-api/internal/note"
	"github.com/mkondo/notes-api/internal/repository"
)

// UserStore is the persistence surface the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, email, password string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// NoteStore is the persistence surface the note endpoints need.
type NoteStore interface {
	Create(ctx context.Context, n *model.Note) error
	GetOwned(ctx context.Context, userID, id uint64) (repository.NoteRow, error)
	GetAny(ctx context.Context, id uint64) (model.Note, error)
	GetPublished(ctx context.Context, id uint64) (repository.NoteRow, error)
	List(ctx context.Context, userID uint64, q repository.ListQuery) ([]repository.NoteRow, error)
	Update(ctx context.Context, n *model.Note) error
	Delete(ctx context.Context, userID, id uint64) error
}

// AttachmentStore is the persistence surface for attachment metadata.
type AttachmentStore interface {
	Create(ctx context.Context, a *model.Attachment) error
	Get(ctx context.Context, noteID, id uint64) (model.Attachment, error)
	ListByNote(ctx context.Context, noteID uint64) ([]model.Attachment, error)
	ListByNotes(ctx context.Context, noteIDs []uint64) (map[uint64][]model.Attachment, error)
	Delete(ctx context.Context, noteID, id uint64) error
}

// currentUserID reads the authenticated user injected by the JWT middleware.
func currentUserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get("user_id").(uint64)
	return id, ok && id > 0
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// respondError translates domain errors into the structured error body.
// Validation failures carry field-level details; everything unrecognized is
// a logged 500 with no internals leaked.
func respondError(c echo.Context, err error) error {
	var ve note.ValidationError
	switch {
	case errors.As(err, &ve):
		return httperr.WithDetails(c, http.StatusUnprocessableEntity,
			"validation_failed", "validation failed", ve)
	case errors.Is(err, repository.ErrNotFound):
		return httperr.JSON(c, http.StatusNotFound, "not_found", "resource not found")
	default:
		slog.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err)
		return httperr.JSON(c, http.StatusInternalServerError,
			"internal_error", "something went wrong")
	}
}
