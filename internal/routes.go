package internal

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	v1 "pagebeam/api/v1"
)

// publicCORSConfig is shared by every public endpoint. The beacon and the
// tracking script are fetched cross-origin from the instrumented sites.
var publicCORSConfig = cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Referrer, User-Agent",
}

// MountRoutes mounts all public API routes on the server.
func MountRoutes(app *fiber.App, handler *v1.Handler) {
	app.Use(cors.New(publicCORSConfig))

	// Health check endpoint
	app.Get("/_health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// === PUBLIC API ROUTES ===
	app.Post("/api/analytics", handler.TrackPageView)
	app.Get("/api/analytics", handler.Health)
	app.Get("/api/analytics/stats", handler.Stats)

	// === SDK ROUTES ===
	app.Get("/api/analytics/sdk.js", handler.Beacon)
}
