package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/note-service/internal/api/http/handlers"
	"github.com/spec-kit/note-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Tokens      *handlers.TokensHandler
	AccessGuard *auth.AccessGuard
}

// RegisterRoutes wires HTTP routes. Token management and logout sit behind
// the access guard; registration and login are the only open auth routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.AccessGuard.Handle, cfg.Auth.Logout)

	api := app.Group("/api", cfg.AccessGuard.Handle)
	api.Get("/tokens", cfg.Tokens.List)
	api.Post("/tokens", cfg.Tokens.Create)
	api.Delete("/tokens/:identifier", cfg.Tokens.Delete)
}
