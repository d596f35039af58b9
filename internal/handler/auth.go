package handler

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mkondo/notes-api/internal/httperr"
	"github.com/mkondo/notes-api/internal/model"
	"github.com/mkondo/notes-api/internal/repository"
	"github.com/mkondo/notes-api/internal/token"
	"github.com/mkondo/notes-api/internal/utils"
)

const minPasswordLen = 8

// AuthHandler serves registration, login and the refresh-token lifecycle.
type AuthHandler struct {
	Users      UserStore
	Tokens     *token.Service
	BcryptCost int
}

func NewAuthHandler(users UserStore, tokens *token.Service, bcryptCost int) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: tokens, BcryptCost: bcryptCost}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type sessionResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")}
}

// Register creates an account and immediately opens a session, returning
// both tokens alongside the user.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return httperr.JSON(c, http.StatusUnprocessableEntity, "validation_failed", "email must be a valid address")
	}
	if len(req.Password) < minPasswordLen {
		return httperr.JSON(c, http.StatusUnprocessableEntity, "validation_failed", "password must be at least 8 characters")
	}

	ctx := c.Request().Context()
	id, err := h.Users.Create(ctx, req.Email, req.Password, h.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return httperr.JSON(c, http.StatusConflict, "email_taken", "email is already registered")
		}
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return h.openSession(c, http.StatusCreated, u)
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password are indistinguishable in the response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}

	ctx := c.Request().Context()
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httperr.JSON(c, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		}
		return respondError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return httperr.JSON(c, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	}
	return h.openSession(c, http.StatusOK, u)
}

func (h *AuthHandler) openSession(c echo.Context, status int, u model.User) error {
	access, err := h.Tokens.IssueAccessToken(u.ID)
	if err != nil {
		return respondError(c, err)
	}
	refresh, _, err := h.Tokens.IssueRefreshToken(c.Request().Context(), u.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status, sessionResponse{
		User:         toUserResponse(u),
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return httperr.JSON(c, http.StatusBadRequest, "bad_request", "refresh_token is required")
	}

	access, err := h.Tokens.RotateRefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrTokenExpired):
			return httperr.JSON(c, http.StatusUnauthorized, "refresh_token_expired", "refresh token has expired")
		case errors.Is(err, token.ErrInvalidToken):
			return httperr.JSON(c, http.StatusUnauthorized, "invalid_refresh_token", "refresh token is invalid")
		default:
			return respondError(c, err)
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"access_token": access})
}

// Logout revokes the presented refresh token. Revoking an unknown token
// still succeeds so logout can be retried safely.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return httperr.JSON(c, http.StatusBadRequest, "bad_request", "refresh_token is required")
	}
	if err := h.Tokens.RevokeRefreshToken(c.Request().Context(), req.RefreshToken); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged_out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "missing authentication")
	}
	u, err := h.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]userResponse{"user": toUserResponse(u)})
}
