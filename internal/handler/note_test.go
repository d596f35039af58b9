package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkondo/notes-api/internal/model"
	"github.com/mkondo/notes-api/internal/queue"
)

// asUser injects an authenticated user the way the JWT middleware would.
func asUser(id uint64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", id)
			return next(c)
		}
	}
}

type noteApp struct {
	e         *echo.Echo
	store     *fakeStore
	h         *NoteHandler
	published []queue.NotePublishedEvent
}

func newNoteApp(t *testing.T, userID uint64) *noteApp {
	t.Helper()
	store := newFakeStore()

	app := &noteApp{store: store}
	h := NewNoteHandler(noteStoreAdapter{store}, attachmentStoreAdapter{store})
	h.Now = func() time.Time { return store.now }
	h.Publish = func(_ context.Context, ev queue.NotePublishedEvent) error {
		app.published = append(app.published, ev)
		return nil
	}
	app.h = h

	pub := NewPublicNoteHandler(noteStoreAdapter{store}, attachmentStoreAdapter{store})

	e := echo.New()
	g := e.Group("/v1", asUser(userID))
	g.GET("/notes", h.List)
	g.POST("/notes", h.Create)
	g.GET("/notes/:id", h.Get)
	g.PATCH("/notes/:id", h.Update)
	g.DELETE("/notes/:id", h.Delete)
	g.POST("/notes/:id/attachments", h.Attach)
	g.DELETE("/notes/:id/attachments/:attachment_id", h.Detach)
	e.GET("/p/:id", pub.Get)
	app.e = e
	return app
}

type noteBody struct {
	Note struct {
		ID              uint64     `json:"id"`
		Title           string     `json:"title"`
		Status          string     `json:"status"`
		EffectiveStatus string     `json:"effective_status"`
		ParentNoteID    *uint64    `json:"parent_note_id"`
		FavoritedAt     *time.Time `json:"favorited_at"`
	} `json:"note"`
}

func decodeNote(t *testing.T, data []byte) noteBody {
	t.Helper()
	var b noteBody
	if err := json.Unmarshal(data, &b); err != nil {
		t.Fatalf("decode note: %v (%s)", err, data)
	}
	return b
}

func TestCreateNoteDefaults(t *testing.T) {
	app := newNoteApp(t, 1)

	rec := doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"groceries"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	b := decodeNote(t, rec.Body.Bytes())
	if b.Note.Status != "personal" {
		t.Errorf("status = %q, want personal", b.Note.Status)
	}
	if b.Note.EffectiveStatus != "personal" {
		t.Errorf("effective_status = %q, want personal", b.Note.EffectiveStatus)
	}
}

func TestCreateNoteRejectsBadStatus(t *testing.T) {
	app := newNoteApp(t, 1)

	rec := doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"draft note","status":"draft"}`, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Details []struct {
				Field string `json:"field"`
				Code  string `json:"code"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "validation_failed" {
		t.Errorf("code = %q", resp.Error.Code)
	}
	if len(resp.Error.Details) != 1 || resp.Error.Details[0].Field != "status" || resp.Error.Details[0].Code != "inclusion" {
		t.Errorf("details = %+v, want one status inclusion error", resp.Error.Details)
	}
}

func TestCreateNoteAllowsEmptyTitle(t *testing.T) {
	app := newNoteApp(t, 1)

	// Title is optional; a body-only scratch note is a valid write.
	rec := doJSON(app.e, http.MethodPost, "/v1/notes",
		`{"body":"untitled scratch","status":"personal"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	b := decodeNote(t, rec.Body.Bytes())
	if b.Note.Title != "" {
		t.Errorf("title = %q, want empty", b.Note.Title)
	}

	// Clearing the title on update is equally valid.
	rec = doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"named"}`, "")
	n := decodeNote(t, rec.Body.Bytes())
	rec = doJSON(app.e, http.MethodPatch, fmt.Sprintf("/v1/notes/%d", n.Note.ID), `{"title":""}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear title: status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if updated := decodeNote(t, rec.Body.Bytes()); updated.Note.Title != "" {
		t.Errorf("title = %q, want empty after clearing", updated.Note.Title)
	}
}

func TestCreateChildAndRejectGrandchild(t *testing.T) {
	app := newNoteApp(t, 1)

	rec := doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"root"}`, "")
	root := decodeNote(t, rec.Body.Bytes())

	rec = doJSON(app.e, http.MethodPost, "/v1/notes",
		fmt.Sprintf(`{"title":"child","parent_note_id":%d}`, root.Note.ID), "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("child: status = %d (body %s)", rec.Code, rec.Body.String())
	}
	child := decodeNote(t, rec.Body.Bytes())

	rec = doJSON(app.e, http.MethodPost, "/v1/notes",
		fmt.Sprintf(`{"title":"grandchild","parent_note_id":%d}`, child.Note.ID), "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("grandchild: status = %d, want 422", rec.Code)
	}
	if want := "cannot create grandchild notes (max depth is 2)"; !jsonContains(rec.Body.Bytes(), want) {
		t.Errorf("body = %s, want message %q", rec.Body.String(), want)
	}
}

func TestCreateRejectsCrossUserParent(t *testing.T) {
	app := newNoteApp(t, 1)

	// A note owned by someone else, planted directly in the store.
	other := model.Note{UserID: 2, Title: "theirs", Status: model.StatusPersonal}
	if err := app.store.CreateNote(context.Background(), &other); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(app.e, http.MethodPost, "/v1/notes",
		fmt.Sprintf(`{"title":"mine","parent_note_id":%d}`, other.ID), "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
	if want := "must belong to the same user"; !jsonContains(rec.Body.Bytes(), want) {
		t.Errorf("body = %s, want message %q", rec.Body.String(), want)
	}
}

func TestUpdateRejectsSelfParent(t *testing.T) {
	app := newNoteApp(t, 1)

	rec := doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"loner"}`, "")
	n := decodeNote(t, rec.Body.Bytes())

	rec = doJSON(app.e, http.MethodPatch, fmt.Sprintf("/v1/notes/%d", n.Note.ID),
		fmt.Sprintf(`{"parent_note_id":%d}`, n.Note.ID), "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
	if !jsonContains(rec.Body.Bytes(), "cannot be its own parent") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestArchiveClearsFavorite(t *testing.T) {
	app := newNoteApp(t, 1)

	rec := doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"keeper","favorited":true}`, "")
	n := decodeNote(t, rec.Body.Bytes())
	if n.Note.FavoritedAt == nil {
		t.Fatal("favorited_at should be set on create with favorited=true")
	}

	rec = doJSON(app.e, http.MethodPatch, fmt.Sprintf("/v1/notes/%d", n.Note.ID),
		`{"status":"archived"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	updated := decodeNote(t, rec.Body.Bytes())
	if updated.Note.FavoritedAt != nil {
		t.Error("favorited_at must be cleared on transition to archived")
	}
	if updated.Note.Status != "archived" {
		t.Errorf("status = %q", updated.Note.Status)
	}
}

func TestArchiveWinsOverFavoriteInSameUpdate(t *testing.T) {
	app := newNoteApp(t, 1)

	rec := doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"keeper"}`, "")
	n := decodeNote(t, rec.Body.Bytes())

	rec = doJSON(app.e, http.MethodPatch, fmt.Sprintf("/v1/notes/%d", n.Note.ID),
		`{"status":"archived","favorited":true}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	updated := decodeNote(t, rec.Body.Bytes())
	if updated.Note.FavoritedAt != nil {
		t.Error("archiving must win over favoriting in the same request")
	}
}

func TestPublishEmitsEvent(t *testing.T) {
	app := newNoteApp(t, 1)

	rec := doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"draft"}`, "")
	n := decodeNote(t, rec.Body.Bytes())

	rec = doJSON(app.e, http.MethodPatch, fmt.Sprintf("/v1/notes/%d", n.Note.ID),
		`{"status":"published"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	if len(app.published) != 1 {
		t.Fatalf("published %d events, want 1", len(app.published))
	}
	if app.published[0].NoteID != n.Note.ID || app.published[0].Title != "draft" {
		t.Errorf("event = %+v", app.published[0])
	}

	// A second write that stays published does not re-emit.
	rec = doJSON(app.e, http.MethodPatch, fmt.Sprintf("/v1/notes/%d", n.Note.ID),
		`{"title":"still published"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(app.published) != 1 {
		t.Errorf("published %d events after no-op transition, want 1", len(app.published))
	}
}

func TestListSearchFilters(t *testing.T) {
	app := newNoteApp(t, 1)

	for _, title := range []string{"Grocery run", "Meeting notes", "grocery budget"} {
		doJSON(app.e, http.MethodPost, "/v1/notes", fmt.Sprintf(`{"title":%q}`, title), "")
	}

	rec := doJSON(app.e, http.MethodGet, "/v1/notes?q=grocery", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Notes []struct {
			Title string `json:"title"`
		} `json:"notes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Notes) != 2 {
		t.Errorf("got %d notes, want 2 (search is case-insensitive)", len(resp.Notes))
	}
}

func TestOwnershipFoldsIntoNotFound(t *testing.T) {
	app := newNoteApp(t, 1)

	other := model.Note{UserID: 2, Title: "theirs", Status: model.StatusPersonal}
	if err := app.store.CreateNote(context.Background(), &other); err != nil {
		t.Fatal(err)
	}

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		body := ""
		if method == http.MethodPatch {
			body = `{"title":"hijack"}`
		}
		rec := doJSON(app.e, method, fmt.Sprintf("/v1/notes/%d", other.ID), body, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s someone else's note: status = %d, want 404", method, rec.Code)
		}
	}
}

func TestDeleteCascadesChildren(t *testing.T) {
	app := newNoteApp(t, 1)

	rec := doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"root"}`, "")
	root := decodeNote(t, rec.Body.Bytes())
	rec = doJSON(app.e, http.MethodPost, "/v1/notes",
		fmt.Sprintf(`{"title":"child","parent_note_id":%d}`, root.Note.ID), "")
	child := decodeNote(t, rec.Body.Bytes())

	rec = doJSON(app.e, http.MethodDelete, fmt.Sprintf("/v1/notes/%d", root.Note.ID), "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	rec = doJSON(app.e, http.MethodGet, fmt.Sprintf("/v1/notes/%d", child.Note.ID), "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("child after cascade: status = %d, want 404", rec.Code)
	}
}

func TestAttachValidatesMetadata(t *testing.T) {
	app := newNoteApp(t, 1)

	rec := doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"with files"}`, "")
	n := decodeNote(t, rec.Body.Bytes())
	path := fmt.Sprintf("/v1/notes/%d/attachments", n.Note.ID)

	rec = doJSON(app.e, http.MethodPost, path,
		`{"filename":"report.pdf","content_type":"application/pdf","byte_size":1024,"storage_key":"attachments/abc.pdf"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("valid attach: status = %d (body %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(app.e, http.MethodPost, path,
		`{"filename":"tool.exe","content_type":"application/x-msdownload","byte_size":1024,"storage_key":"attachments/x.exe"}`, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("disallowed type: status = %d, want 422", rec.Code)
	}

	rec = doJSON(app.e, http.MethodPost, path,
		fmt.Sprintf(`{"filename":"big.zip","content_type":"application/zip","byte_size":%d,"storage_key":"attachments/big.zip"}`, 30*1024*1024+1), "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("oversized: status = %d, want 422", rec.Code)
	}
}

func TestDetachRemovesAttachment(t *testing.T) {
	app := newNoteApp(t, 1)

	rec := doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"with files"}`, "")
	n := decodeNote(t, rec.Body.Bytes())

	rec = doJSON(app.e, http.MethodPost, fmt.Sprintf("/v1/notes/%d/attachments", n.Note.ID),
		`{"filename":"a.png","content_type":"image/png","byte_size":10,"storage_key":"attachments/a.png"}`, "")
	var att struct {
		Attachment struct {
			ID uint64 `json:"id"`
		} `json:"attachment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(app.e, http.MethodDelete,
		fmt.Sprintf("/v1/notes/%d/attachments/%d", n.Note.ID, att.Attachment.ID), "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("detach: status = %d", rec.Code)
	}
	rec = doJSON(app.e, http.MethodDelete,
		fmt.Sprintf("/v1/notes/%d/attachments/%d", n.Note.ID, att.Attachment.ID), "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second detach: status = %d, want 404", rec.Code)
	}
}

func TestPublicNoteVisibility(t *testing.T) {
	app := newNoteApp(t, 1)

	rec := doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"public","status":"published"}`, "")
	published := decodeNote(t, rec.Body.Bytes())
	rec = doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"private"}`, "")
	private := decodeNote(t, rec.Body.Bytes())
	rec = doJSON(app.e, http.MethodPost, "/v1/notes",
		fmt.Sprintf(`{"title":"child of public","parent_note_id":%d}`, published.Note.ID), "")
	inheriting := decodeNote(t, rec.Body.Bytes())
	rec = doJSON(app.e, http.MethodPost, "/v1/notes",
		fmt.Sprintf(`{"title":"archived child","status":"archived","parent_note_id":%d}`, published.Note.ID), "")
	archived := decodeNote(t, rec.Body.Bytes())

	cases := []struct {
		name string
		id   uint64
		want int
	}{
		{"published root is visible", published.Note.ID, http.StatusOK},
		{"personal note is hidden", private.Note.ID, http.StatusNotFound},
		{"personal child inherits published parent", inheriting.Note.ID, http.StatusOK},
		{"archived child stays hidden", archived.Note.ID, http.StatusNotFound},
		{"unknown id", 9999, http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := doJSON(app.e, http.MethodGet, fmt.Sprintf("/p/%d", tc.id), "", "")
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestPublishedChildOfPersonalParentIsHidden(t *testing.T) {
	app := newNoteApp(t, 1)

	rec := doJSON(app.e, http.MethodPost, "/v1/notes", `{"title":"private root"}`, "")
	root := decodeNote(t, rec.Body.Bytes())
	rec = doJSON(app.e, http.MethodPost, "/v1/notes",
		fmt.Sprintf(`{"title":"eager child","status":"published","parent_note_id":%d}`, root.Note.ID), "")
	child := decodeNote(t, rec.Body.Bytes())
	if child.Note.EffectiveStatus != "personal" {
		t.Errorf("effective_status = %q, want personal (inherited)", child.Note.EffectiveStatus)
	}

	pubRec := doJSON(app.e, http.MethodGet, fmt.Sprintf("/p/%d", child.Note.ID), "", "")
	if pubRec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 (parent visibility wins)", pubRec.Code)
	}
}

func jsonContains(data []byte, substr string) bool {
	return strings.Contains(string(data), substr)
}
