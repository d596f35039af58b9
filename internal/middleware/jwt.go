// Package middleware provides reusable HTTP middleware: bearer-token
// authentication, request logging, Redis rate limiting and a Redis response
// cache.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mkondo/notes-api/internal/httperr"
	"github.com/mkondo/notes-api/internal/token"
)

// JWTAuth validates a Bearer access token via the token service and injects
// the authenticated user's ID into the request context under "user_id".
// Protected routes read it back with c.Get("user_id").(uint64).
func JWTAuth(tokens *token.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authz := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			}
			raw := strings.TrimPrefix(authz, "Bearer ")

			userID, err := tokens.VerifyAccessToken(raw)
			if err != nil {
				if errors.Is(err, token.ErrTokenExpired) {
					return httperr.JSON(c, http.StatusUnauthorized, "token_expired", "access token expired")
				}
				return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "invalid access token")
			}

			c.Set("user_id", userID)
			return next(c)
		}
	}
}
