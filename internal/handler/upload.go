package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkondo/notes-api/internal/httperr"
	"github.com/mkondo/notes-api/internal/note"
	"github.com/mkondo/notes-api/internal/storage"
)

// BlobStore is the object-storage surface the upload and attachment
// endpoints need.
type BlobStore interface {
	PresignUpload(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
	ObjectURL(key string) string
}

// UploadHandler brokers presigned upload URLs. Blobs may be nil when the
// deployment has no object store; the endpoint then answers 503.
type UploadHandler struct {
	Blobs BlobStore
}

func NewUploadHandler(blobs BlobStore) *UploadHandler { return &UploadHandler{Blobs: blobs} }

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	ByteSize    int64  `json:"byte_size"`
}

type presignResponse struct {
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
	ExpiresIn  int64  `json:"expires_in"`
}

// Presign validates the declared metadata and returns a presigned PUT URL
// plus the storage key to hand back on attach.
func (h *UploadHandler) Presign(c echo.Context) error {
	if _, ok := currentUserID(c); !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "missing authentication")
	}
	if h.Blobs == nil {
		return httperr.JSON(c, http.StatusServiceUnavailable, "storage_unavailable", "object storage is not configured")
	}
	var req presignRequest
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}
	if ve := note.ValidateAttachmentMeta(req.Filename, req.ContentType, req.ByteSize); len(ve) > 0 {
		return respondError(c, ve)
	}

	key := storage.NewObjectKey(req.Filename)
	url, err := h.Blobs.PresignUpload(c.Request().Context(), key)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, presignResponse{
		UploadURL:  url,
		StorageKey: key,
		ExpiresIn:  int64(storage.PresignTTL / time.Second),
	})
}
