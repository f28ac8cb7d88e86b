package routes

import (
	"time"

	"github.com/forumkit/trustcore/internal/config"
	"github.com/forumkit/trustcore/internal/handlers"
	"github.com/forumkit/trustcore/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	eventHandler *handlers.EventHandler,
	userHandler *handlers.UserHandler,
	reviewHandler *handlers.ReviewHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 120 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Event ingress — machine callers only (content store, membership)
	api.Post("/events", middleware.ServiceKeyRequired(cfg), eventHandler.Ingest)

	// Read models for the surrounding application
	api.Get("/users/:id/standing", userHandler.Standing)
	api.Get("/users/:id/gamification", userHandler.Gamification)

	// Moderator surface (JWT + role check)
	review := api.Group("/review", middleware.JWTProtected(cfg), middleware.ModeratorRequired(cfg))
	review.Get("/queue", reviewHandler.Queue)
	review.Post("/items/:id/resolve", reviewHandler.Resolve)
	review.Post("/resolve-batch", reviewHandler.ResolveBatch)
	review.Get("/stats", reviewHandler.Stats)

	// Admin surface for parked events
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.ModeratorRequired(cfg))
	admin.Get("/events/parked", eventHandler.ListParked)
	admin.Post("/events/:id/replay", eventHandler.Replay)
}
