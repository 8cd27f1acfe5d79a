package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskroom/taskroom-go-api/internal/config"
	"github.com/taskroom/taskroom-go-api/internal/handler"
	"github.com/taskroom/taskroom-go-api/internal/middleware"
	"github.com/taskroom/taskroom-go-api/internal/models"
	"github.com/taskroom/taskroom-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TaskHandler       *handler.TaskHandler
	AssignmentHandler *handler.AssignmentHandler
	SolutionHandler   *handler.SolutionHandler
	AuthHandler       *handler.AuthHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	teacherOnly := middleware.RequireRole(models.RoleTeacher)

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		deps.AuthHandler.Register(auth)
	}

	if deps.TaskHandler != nil {
		tasks := api.Group("/tasks", jwtMiddleware)
		deps.TaskHandler.Register(tasks, teacherOnly)
	}

	if deps.AssignmentHandler != nil {
		assignments := api.Group("/assignments", jwtMiddleware)
		deps.AssignmentHandler.Register(assignments, teacherOnly)
	}

	if deps.SolutionHandler != nil {
		solutions := api.Group("/solutions", jwtMiddleware)
		deps.SolutionHandler.Register(solutions, teacherOnly)
	}
}
