package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskforge/taskforge-api/internal/config"
	"github.com/taskforge/taskforge-api/internal/handler"
	"github.com/taskforge/taskforge-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	UserHandler      *handler.UserHandler
	ProjectHandler   *handler.ProjectHandler
	ActivityHandler  *handler.ActivityHandler
	JWTMiddleware    fiber.Handler
	ExposePrometheus bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.ExposePrometheus {
		app.Get("/metrics", observability.MetricsHandler())
	}

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := app.Group("/api/v1/auth")
		deps.AuthHandler.Register(auth)
	}

	if deps.UserHandler != nil {
		users := app.Group("/api/v1/users", jwtMiddleware)
		deps.UserHandler.Register(users)
	}

	if deps.ProjectHandler != nil {
		projects := app.Group("/api/v1/projects", jwtMiddleware)
		deps.ProjectHandler.Register(projects)
	}

	if deps.ActivityHandler != nil {
		activities := app.Group("/api/v1/activities", jwtMiddleware)
		deps.ActivityHandler.Register(activities)
	}
}
