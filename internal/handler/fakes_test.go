package handler

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkondo/notes-api/internal/model"
	"github.com/mkondo/notes-api/internal/repository"
	"github.com/mkondo/notes-api/internal/utils"
)

// fakeStore is an in-memory implementation of UserStore, NoteStore and
// AttachmentStore, close enough to the MySQL repositories to exercise the
// handlers end to end.
type fakeStore struct {
	users  map[uint64]model.User
	notes  map[uint64]model.Note
	atts   map[uint64]model.Attachment
	nextID uint64
	now    time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[uint64]model.User{},
		notes: map[uint64]model.Note{},
		atts:  map[uint64]model.Attachment{},
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) id() uint64 {
	f.nextID++
	return f.nextID
}

// --- UserStore ---

func (f *fakeStore) Create(_ context.Context, email, password string, _ int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		return 0, err
	}
	u := model.User{ID: f.id(), Email: email, PasswordHash: hash, CreatedAt: f.now, UpdatedAt: f.now}
	f.users[u.ID] = u
	return u.ID, nil
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

// --- NoteStore ---

func (f *fakeStore) toRow(n model.Note) repository.NoteRow {
	row := repository.NoteRow{Note: n}
	if n.ParentNoteID != nil {
		if p, ok := f.notes[*n.ParentNoteID]; ok {
			s := p.Status
			row.ParentStatus = &s
		}
	}
	return row
}

func (f *fakeStore) CreateNote(_ context.Context, n *model.Note) error {
	n.ID = f.id()
	n.CreatedAt = f.now
	n.UpdatedAt = f.now
	f.notes[n.ID] = *n
	return nil
}

func (f *fakeStore) GetOwned(_ context.Context, userID, id uint64) (repository.NoteRow, error) {
	n, ok := f.notes[id]
	if !ok || n.UserID != userID {
		return repository.NoteRow{}, repository.ErrNotFound
	}
	return f.toRow(n), nil
}

func (f *fakeStore) GetAny(_ context.Context, id uint64) (model.Note, error) {
	n, ok := f.notes[id]
	if !ok {
		return model.Note{}, repository.ErrNotFound
	}
	return n, nil
}

func (f *fakeStore) GetPublished(_ context.Context, id uint64) (repository.NoteRow, error) {
	n, ok := f.notes[id]
	if !ok || n.Status == model.StatusArchived {
		return repository.NoteRow{}, repository.ErrNotFound
	}
	row := f.toRow(n)
	effective := n.Status
	if row.ParentStatus != nil {
		effective = *row.ParentStatus
	}
	if effective != model.StatusPublished {
		return repository.NoteRow{}, repository.ErrNotFound
	}
	return row, nil
}

func (f *fakeStore) List(_ context.Context, userID uint64, q repository.ListQuery) ([]repository.NoteRow, error) {
	var out []repository.NoteRow
	for _, n := range f.notes {
		if n.UserID != userID {
			continue
		}
		if q.Search != "" {
			needle := strings.ToLower(q.Search)
			if !strings.Contains(strings.ToLower(n.Title), needle) &&
				!strings.Contains(strings.ToLower(n.Body), needle) {
				continue
			}
		}
		out = append(out, f.toRow(n))
	}
	asc := q.Sort == "created_at" || q.Sort == "updated_at"
	sort.Slice(out, func(i, j int) bool {
		if asc {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, n *model.Note) error {
	old, ok := f.notes[n.ID]
	if !ok || old.UserID != n.UserID {
		return repository.ErrNotFound
	}
	n.UpdatedAt = f.now.Add(time.Minute)
	f.notes[n.ID] = *n
	return nil
}

func (f *fakeStore) Delete(_ context.Context, userID, id uint64) error {
	n, ok := f.notes[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	delete(f.notes, id)
	for cid, c := range f.notes {
		if c.ParentNoteID != nil && *c.ParentNoteID == id {
			delete(f.notes, cid)
		}
	}
	for aid, a := range f.atts {
		if a.NoteID == id {
			delete(f.atts, aid)
		}
	}
	return nil
}

// --- AttachmentStore ---

func (f *fakeStore) CreateAttachment(_ context.Context, a *model.Attachment) error {
	a.ID = f.id()
	a.CreatedAt = f.now
	f.atts[a.ID] = *a
	return nil
}

func (f *fakeStore) Get(_ context.Context, noteID, id uint64) (model.Attachment, error) {
	a, ok := f.atts[id]
	if !ok || a.NoteID != noteID {
		return model.Attachment{}, repository.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) ListByNote(_ context.Context, noteID uint64) ([]model.Attachment, error) {
	var out []model.Attachment
	for _, a := range f.atts {
		if a.NoteID == noteID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListByNotes(_ context.Context, noteIDs []uint64) (map[uint64][]model.Attachment, error) {
	out := map[uint64][]model.Attachment{}
	for _, id := range noteIDs {
		atts, _ := f.ListByNote(nil, id)
		if len(atts) > 0 {
			out[id] = atts
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteAttachment(_ context.Context, noteID, id uint64) error {
	a, ok := f.atts[id]
	if !ok || a.NoteID != noteID {
		return repository.ErrNotFound
	}
	delete(f.atts, id)
	return nil
}

// noteStoreAdapter and attachmentStoreAdapter split the single fakeStore
// across the two interfaces whose method names collide (Create, Delete).
type noteStoreAdapter struct{ *fakeStore }

func (a noteStoreAdapter) Create(ctx context.Context, n *model.Note) error {
	return a.CreateNote(ctx, n)
}

type attachmentStoreAdapter struct{ *fakeStore }

func (a attachmentStoreAdapter) Create(ctx context.Context, att *model.Attachment) error {
	return a.CreateAttachment(ctx, att)
}

func (a attachmentStoreAdapter) Delete(ctx context.Context, noteID, id uint64) error {
	return a.DeleteAttachment(ctx, noteID, id)
}
