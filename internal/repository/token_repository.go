package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkondo/notes-api/internal/token"
)

// TokenRepo persists refresh tokens. The raw token string carries a unique
// index; lookups are exact matches. It implements token.RefreshStore.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Insert stores a refresh token row. A unique-constraint collision comes
// back as ErrDuplicate so the caller can retry with fresh entropy.
func (r *TokenRepo) Insert(ctx context.Context, userID uint64, tok string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES (?,?,?)",
		userID, tok, expiresAt)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: refresh token", ErrDuplicate)
		}
		return err
	}
	return nil
}

// Lookup fetches a refresh token row by exact string match. Expiry is not
// checked here; the token service owns that decision (and the lazy delete
// that goes with it).
func (r *TokenRepo) Lookup(ctx context.Context, tok string) (token.RefreshRecord, bool, error) {
	var rec token.RefreshRecord
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM refresh_tokens WHERE token=? LIMIT 1",
		tok).Scan(&rec.UserID, &rec.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return token.RefreshRecord{}, false, nil
	}
	if err != nil {
		return token.RefreshRecord{}, false, err
	}
	return rec, true, nil
}

// Delete removes a refresh token row. Deleting a missing token is a no-op;
// concurrent deletes of the same token must not error.
func (r *TokenRepo) Delete(ctx context.Context, tok string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token=?", tok)
	return err
}
