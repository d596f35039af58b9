package model

import "time"

// User represents a row in the `users` table. Emails are stored
// lowercased so the unique index doubles as a case-insensitive
// uniqueness check.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email (lowercased)
	PasswordHash string    // users.password_hash (bcrypt)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. The raw
// opaque token string is stored with a unique index; lookups are exact
// string matches. ExpiresAt is immutable once the row is created.
//
// Deleting a user cascades to their refresh tokens.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	Token     string    // refresh_tokens.token (raw, unique)
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
}
