package router

import (
	"github.com/soundhaven/soundhaven/app/controllers"
	"github.com/soundhaven/soundhaven/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": "soundhaven", "status": "ok"})
	})

	// Auth
	app.Post("/register", controllers.HandleAuthRegister)
	app.Get("/activate", controllers.HandleAuthActivate)
	app.Post("/login", controllers.HandleAuthLogin)
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Social OAuth
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Billing provider webhooks (no session, signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)

	// Short share URLs resolve to the JSON detail endpoints
	app.Get("/t/:sharelink", controllers.HandleGetTrack)
	app.Get("/a/:sharelink", controllers.HandleGetAlbum)
}
