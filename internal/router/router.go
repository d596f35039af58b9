// Package router wires middleware and handlers onto the Echo instance.
package router

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mkondo/notes-api/internal/config"
	"github.com/mkondo/notes-api/internal/handler"
	"github.com/mkondo/notes-api/internal/middleware"
	"github.com/mkondo/notes-api/internal/token"
)

// Deps carries everything the route table needs. Redis may be nil; the
// rate limiter and response cache then run as pass-throughs.
type Deps struct {
	Logger  *slog.Logger
	Auth    *handler.AuthHandler
	Notes   *handler.NoteHandler
	Public  *handler.PublicNoteHandler
	Uploads *handler.UploadHandler
	Tokens  *token.Service

	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
}

// Register installs the full route table:
//
//	GET    /healthz
//	POST   /v1/auth/register
//	POST   /v1/auth/login
//	POST   /v1/auth/refresh
//	DELETE /v1/auth/logout
//	GET    /v1/me
//	GET    /v1/notes            (?q=, ?sort=)
//	POST   /v1/notes
//	GET    /v1/notes/:id
//	PATCH  /v1/notes/:id
//	DELETE /v1/notes/:id
//	POST   /v1/uploads
//	POST   /v1/notes/:id/attachments
//	DELETE /v1/notes/:id/attachments/:attachment_id
//	GET    /p/:id               (anonymous, cached)
func Register(e *echo.Echo, d Deps) {
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))

	// The limiter is attached per group, not via e.Use: on protected
	// routes it must run after JWTAuth so the user dimension of the
	// bucket key is the real user id rather than "anon".
	limiter := middleware.NewTokenBucket(d.RateLimit, d.Redis)

	e.GET("/healthz", handler.Health, limiter)

	auth := e.Group("/v1/auth", limiter)
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.DELETE("/logout", d.Auth.Logout)

	v1 := e.Group("/v1", middleware.JWTAuth(d.Tokens), limiter)
	v1.GET("/me", d.Auth.Me)

	v1.GET("/notes", d.Notes.List)
	v1.POST("/notes", d.Notes.Create)
	v1.GET("/notes/:id", d.Notes.Get)
	v1.PATCH("/notes/:id", d.Notes.Update)
	v1.DELETE("/notes/:id", d.Notes.Delete)

	v1.POST("/uploads", d.Uploads.Presign)
	v1.POST("/notes/:id/attachments", d.Notes.Attach)
	v1.DELETE("/notes/:id/attachments/:attachment_id", d.Notes.Detach)

	e.GET("/p/:id", d.Public.Get, limiter, middleware.NewRedisCache(d.Cache, d.Redis))
}
