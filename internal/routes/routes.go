package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ilivehere/backend/internal/config"
	"github.com/ilivehere/backend/internal/handlers"
	"github.com/ilivehere/backend/internal/middleware"
	"github.com/ilivehere/backend/internal/services"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Health     *handlers.HealthHandler
	Story      *handlers.StoryHandler
	Event      *handlers.EventHandler
	Moderation *handlers.ModerationHandler
}

func Setup(app *fiber.App, cfg *config.Config, authService *services.AuthService, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)
	api.Get("/areas", h.Story.ListAreas)

	// Anonymous submissions: 10 req/min per IP, stories and events together
	anonymous := limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
	api.Post("/stories/anonymous", anonymous, h.Story.CreateAnonymous)
	api.Post("/events/anonymous", anonymous, h.Event.CreateAnonymous)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	signedIn := []fiber.Handler{middleware.JWTProtected(cfg), middleware.LoadUser(authService)}

	// Protected routes (JWT required) - apply middleware to individual routes
	// so public routes above stay public
	api.Post("/auth/logout", middleware.JWTProtected(cfg), h.Auth.Logout)
	api.Get("/auth/me", append(signedIn, h.Auth.Me)...)

	stories := api.Group("/stories", signedIn...)
	stories.Post("/", h.Story.CreateTrusted)
	stories.Get("/", h.Story.List)
	stories.Get("/:id", h.Story.Get)
	stories.Put("/:id", h.Story.Update)
	stories.Put("/:id/picture", h.Story.SetPicture)

	events := api.Group("/events", signedIn...)
	events.Post("/", h.Event.CreateTrusted)
	events.Get("/", h.Event.List)
	events.Get("/:id", h.Event.Get)

	admin := api.Group("/admin", append(signedIn, middleware.StaffRequired())...)
	admin.Post("/stories/:id/moderate", h.Moderation.Moderate)
	admin.Get("/stories/:id/events", h.Moderation.Events)
	admin.Post("/events/:id/moderate", h.Event.Moderate)
	admin.Get("/events/:id/trail", h.Event.Trail)
}
