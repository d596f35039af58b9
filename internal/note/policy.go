// Package note enforces the record-level invariants on notes: the status
// enum, the two-level parent/child hierarchy, the attachment allowlist and
// the favorite-clearing rule on archive. Everything here is a pure function
// of the candidate note plus an optional parent snapshot; persistence is
// the caller's problem.
package note

import (
	"fmt"
	"strings"

	"github.com/mkondo/notes-api/internal/model"
)

// MaxAttachmentBytes is the upper bound on a single attachment (30MB,
// boundary inclusive).
const MaxAttachmentBytes = 30 * 1024 * 1024

// allowedContentTypes is the fixed allowlist for attachment content types.
// Anything outside it is rejected regardless of file extension.
var allowedContentTypes = map[string]bool{
	"image/jpeg":       true,
	"image/png":        true,
	"image/gif":        true,
	"image/webp":       true,
	"application/pdf":  true,
	"text/plain":       true,
	"text/csv":         true,
	"application/json": true,
	"application/zip":  true,
}

// AllowedContentTypes returns the allowlist in a stable order, for error
// messages and docs.
func AllowedContentTypes() []string {
	return []string{
		"image/jpeg", "image/png", "image/gif", "image/webp",
		"application/pdf", "text/plain", "text/csv", "application/json",
		"application/zip",
	}
}

// FieldError describes a single invariant violation on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) Error() string { return e.Field + " " + e.Message }

// ValidationError collects every violation found on a write; callers must
// not short-circuit on the first offending field.
type ValidationError []FieldError

func (v ValidationError) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ValidateStatus checks the status enum.
func ValidateStatus(s model.Status) ValidationError {
	if s.Valid() {
		return nil
	}
	return ValidationError{{
		Field:   "status",
		Code:    "inclusion",
		Message: "must be personal|published|archived",
	}}
}

// ValidateParent checks the hierarchy invariants for a candidate note whose
// ParentNoteID is already resolved to a parent snapshot (nil when the
// referenced row does not exist). A note may have a parent, but a parent may
// not itself have a parent, and both must belong to the same user. A note
// listing itself as its own parent is rejected outright; nothing in the
// write path should ever produce that shape.
func ValidateParent(candidate model.Note, parent *model.Note) ValidationError {
	if candidate.ParentNoteID == nil {
		return nil
	}
	if candidate.ID != 0 && *candidate.ParentNoteID == candidate.ID {
		return ValidationError{{
			Field:   "parent_note_id",
			Code:    "self_parent",
			Message: "cannot be its own parent",
		}}
	}
	if parent == nil {
		return ValidationError{{
			Field:   "parent_note_id",
			Code:    "not_found",
			Message: "must reference an existing note",
		}}
	}
	var ve ValidationError
	if parent.ParentNoteID != nil {
		ve = append(ve, FieldError{
			Field:   "parent_note_id",
			Code:    "max_depth",
			Message: "cannot create grandchild notes (max depth is 2)",
		})
	}
	if parent.UserID != candidate.UserID {
		ve = append(ve, FieldError{
			Field:   "parent_note_id",
			Code:    "cross_user",
			Message: "must belong to the same user",
		})
	}
	return ve
}

// ValidateAttachmentMeta checks one attachment's metadata against the
// allowlist and size bound.
func ValidateAttachmentMeta(filename, contentType string, byteSize int64) ValidationError {
	var ve ValidationError
	if !allowedContentTypes[contentType] {
		ve = append(ve, FieldError{
			Field:   "attachments",
			Code:    "content_type",
			Message: fmt.Sprintf("unsupported file type %q (%s)", contentType, filename),
		})
	}
	if byteSize <= 0 {
		ve = append(ve, FieldError{
			Field:   "attachments",
			Code:    "byte_size",
			Message: fmt.Sprintf("file size must be greater than 0 (%s)", filename),
		})
	} else if byteSize > MaxAttachmentBytes {
		ve = append(ve, FieldError{
			Field:   "attachments",
			Code:    "byte_size",
			Message: fmt.Sprintf("file size must be 30MB or less (%s)", filename),
		})
	}
	return ve
}

// ValidateAttachments runs ValidateAttachmentMeta over a set, accumulating
// one error per offending attachment instead of stopping at the first.
func ValidateAttachments(atts []model.Attachment) ValidationError {
	var ve ValidationError
	for _, a := range atts {
		ve = append(ve, ValidateAttachmentMeta(a.Filename, a.ContentType, a.ByteSize)...)
	}
	return ve
}

// EffectiveStatus derives the visibility a note presents after resolving
// parent inheritance: archived if the note itself is archived, else the
// parent's status when a parent exists, else the note's own status. The
// depth-2 invariant guarantees the parent has no parent of its own, so one
// snapshot is all that is ever needed.
func EffectiveStatus(own model.Status, parent *model.Status) model.Status {
	if own == model.StatusArchived {
		return model.StatusArchived
	}
	if parent != nil {
		return *parent
	}
	return own
}

// ApplyArchiveTransition clears FavoritedAt when the note is entering the
// archived state. Any explicit favorite set/clear in the same update has
// already been applied by the caller; archiving wins.
func ApplyArchiveTransition(n *model.Note, previous model.Status) {
	if n.Status == model.StatusArchived && previous != model.StatusArchived {
		n.FavoritedAt = nil
	}
}
