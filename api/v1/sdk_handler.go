package v1

import (
	"bytes"
	_ "embed"
	"log/slog"
	"text/template"

	"github.com/gofiber/fiber/v2"
)

//go:embed beacon.js
var beaconTemplate string

// Beacon serves the client-side tracking script. The script is rendered with
// the request's base URL and cached via strong ETags.
func (h *Handler) Beacon(c *fiber.Ctx) error {
	tmpl, err := template.New("beacon.js").Parse(beaconTemplate)
	if err != nil {
		h.Logger.Error("Failed to parse beacon template", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	var buf bytes.Buffer
	data := map[string]string{
		"BaseURL": c.BaseURL(),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		h.Logger.Error("Failed to render beacon template", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	content := buf.Bytes()
	etag := generateETag(content)

	if c.Get("If-None-Match") == etag {
		return c.Status(fiber.StatusNotModified).Send(nil) // No body for 304
	}

	c.Set("Content-Type", "application/javascript")
	c.Set("Cache-Control", "public, max-age=3600") // 1 hour
	c.Set("ETag", etag)
	c.Set("Cross-Origin-Resource-Policy", "cross-origin")
	return c.Send(content)
}
