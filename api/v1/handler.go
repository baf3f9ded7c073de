// Package v1 exposes the public analytics API: the beacon ingestion endpoint
// and the dashboard stats endpoint.
package v1

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"pagebeam/internal/geo"
	"pagebeam/internal/pkg/useragent"
	"pagebeam/internal/sessions"
	"pagebeam/internal/storage"
)

const (
	errInvalidRequest  = "Invalid request"
	fallbackSessionID  = "fallback"
	healthProbeMessage = "Analytics API endpoint"
)

// Handler carries the dependencies of the public API, injected at startup.
type Handler struct {
	Guard    *storage.Guard
	Sessions *sessions.Manager
	Geo      geo.Resolver
	Logger   *slog.Logger
}

// NewHandler wires the public API handler.
func NewHandler(guard *storage.Guard, mgr *sessions.Manager, resolver geo.Resolver, logger *slog.Logger) *Handler {
	return &Handler{Guard: guard, Sessions: mgr, Geo: resolver, Logger: logger}
}

// TrackParams is the beacon request body.
type TrackParams struct {
	Path             string `json:"path"`
	Referrer         string `json:"referrer"`
	SessionID        string `json:"sessionId"`
	ScreenResolution string `json:"screenResolution"`
}

// TrackPageView handles POST /api/analytics. It resolves request metadata,
// assigns the beacon to a session and appends the page view, echoing the
// effective session id for the client to store and resend.
func (h *Handler) TrackPageView(c *fiber.Ctx) error {
	var params TrackParams
	if err := c.BodyParser(&params); err != nil {
		h.Logger.Debug("Failed to parse beacon body", slog.Any("error", err))
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidRequest})
	}
	if strings.TrimSpace(params.Path) == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidRequest})
	}

	// Degraded mode: acknowledge without resolving metadata so the client
	// keeps working exactly as if tracking succeeded.
	if !h.Guard.Configured() {
		sessionID := params.SessionID
		if sessions.IsNewSession(sessionID) {
			sessionID = fallbackSessionID
		}
		return c.JSON(fiber.Map{"success": true, "sessionId": sessionID})
	}

	userAgent := c.Get("User-Agent")
	ip := clientIP(c)

	location := h.Geo.Resolve(c.Context(), ip)

	sessionID, isNew := h.Sessions.Track(params.SessionID, ip, userAgent)

	view := &storage.PageView{
		Path:             params.Path,
		Referrer:         params.Referrer,
		UserAgent:        userAgent,
		IPAddress:        ip,
		Country:          location.Country,
		City:             location.City,
		DeviceType:       useragent.ClassifyDevice(userAgent),
		Browser:          useragent.ClassifyBrowser(userAgent),
		OS:               useragent.ClassifyOS(userAgent),
		ScreenResolution: params.ScreenResolution,
		SessionID:        sessionID,
		IsUniqueVisitor:  isNew,
	}
	storage.Do(h.Guard, func(s storage.Store) error {
		_, err := s.InsertPageView(view)
		return err
	})

	h.Logger.Debug("Tracked page view",
		slog.String("path", params.Path),
		slog.String("session_id", sessionID),
		slog.Bool("new_session", isNew))

	return c.JSON(fiber.Map{"success": true, "sessionId": sessionID})
}

// Health handles GET /api/analytics as a static probe.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": healthProbeMessage})
}
