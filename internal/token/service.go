// Package token issues, verifies and rotates the two bearer credentials:
// short-lived signed JWT access tokens (never persisted) and long-lived
// opaque refresh tokens (persisted, exact-match lookup).
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAccessTTL is the validity window of an access token.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL is the absolute lifetime of a refresh token.
	DefaultRefreshTTL = 30 * 24 * time.Hour

	// refreshTokenBytes of entropy, rendered as hex (64 chars).
	refreshTokenBytes = 32
)

var (
	// ErrInvalidToken covers malformed, unsigned, wrong-type and
	// not-found tokens. Callers respond 401 with a generic message.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired means the signature (or the stored row) was fine
	// but the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// RefreshRecord is the persisted state of one refresh token.
type RefreshRecord struct {
	UserID    uint64
	ExpiresAt time.Time
}

// RefreshStore is the persistence collaborator for refresh tokens. Insert
// must fail on a duplicate token string (unique constraint); Delete must be
// idempotent, removing nothing is not an error.
type RefreshStore interface {
	Insert(ctx context.Context, userID uint64, token string, expiresAt time.Time) error
	Lookup(ctx context.Context, token string) (RefreshRecord, bool, error)
	Delete(ctx context.Context, token string) error
}

// Service mints and verifies bearer credentials. The signing secret is set
// once at construction and never mutated; the clock is injectable so expiry
// behavior is testable.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshStore
	now        func() time.Time
}

// New builds a Service around a signing secret and a refresh-token store.
// Non-positive TTLs fall back to the defaults.
func New(secret string, accessTTL, refreshTTL time.Duration, store RefreshStore) *Service {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
		now:        time.Now,
	}
}

// IssueAccessToken signs an HS256 JWT asserting the user's identity for the
// access window. No side effects beyond reading the clock.
func (s *Service) IssueAccessToken(userID uint64) (string, error) {
	now := s.now().UTC()
	claims := jwt.MapClaims{
		"user_id": userID,
		"type":    "access",
		"iat":     now.Unix(),
		"exp":     now.Add(s.accessTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken checks signature, expiry and token type, returning the
// user ID encoded in the claims. It never mutates state.
func (s *Service) VerifyAccessToken(raw string) (uint64, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || claims["type"] != "access" {
		return 0, ErrInvalidToken
	}
	// JWT numbers decode as float64.
	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return 0, ErrInvalidToken
	}
	return uint64(id), nil
}

// IssueRefreshToken generates a cryptographically random opaque token and
// persists it with an absolute expiry. A duplicate-token collision surfaces
// the store's error; the odds are negligible and the caller may retry.
func (s *Service) IssueRefreshToken(ctx context.Context, userID uint64) (string, time.Time, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("generate refresh token: %w", err)
	}
	raw := hex.EncodeToString(buf)
	expiresAt := s.now().UTC().Add(s.refreshTTL)
	if err := s.store.Insert(ctx, userID, raw, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("store refresh token: %w", err)
	}
	return raw, expiresAt, nil
}

// RotateRefreshToken exchanges a refresh token for a fresh access token.
// The refresh token itself is not rotated; it stays valid until its
// absolute expiry or explicit logout. An expired token is deleted on
// detection (lazy cleanup, there is no background sweep) before the error
// is surfaced.
func (s *Service) RotateRefreshToken(ctx context.Context, raw string) (string, error) {
	rec, found, err := s.store.Lookup(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("lookup refresh token: %w", err)
	}
	if !found {
		return "", ErrInvalidToken
	}
	if !rec.ExpiresAt.After(s.now()) {
		if err := s.store.Delete(ctx, raw); err != nil {
			return "", fmt.Errorf("delete expired refresh token: %w", err)
		}
		return "", ErrTokenExpired
	}
	return s.IssueAccessToken(rec.UserID)
}

// RevokeRefreshToken deletes the matching record if present. Revoking a
// token that does not exist is not an error (idempotent logout, tolerant
// of concurrent deletes).
func (s *Service) RevokeRefreshToken(ctx context.Context, raw string) error {
	return s.store.Delete(ctx, raw)
}
