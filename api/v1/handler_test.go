package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "pagebeam/api/v1"
	"pagebeam/internal/geo"
	"pagebeam/internal/sessions"
	"pagebeam/internal/storage"
	"pagebeam/internal/testsupport"
)

const testUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// recordingResolver returns a fixed location and counts lookups.
type recordingResolver struct {
	location geo.Location
	calls    int32
}

func (r *recordingResolver) Resolve(_ context.Context, _ string) geo.Location {
	atomic.AddInt32(&r.calls, 1)
	return r.location
}

func setupTestApp(t *testing.T, store storage.Store, resolver geo.Resolver) *fiber.App {
	t.Helper()

	logger := testsupport.GetLogger()
	guard := storage.NewGuard(store, logger)
	handler := v1.NewHandler(guard, sessions.NewManager(guard, logger), resolver, logger)

	app := fiber.New()
	app.Post("/api/analytics", handler.TrackPageView)
	app.Get("/api/analytics", handler.Health)
	app.Get("/api/analytics/stats", handler.Stats)
	app.Get("/api/analytics/sdk.js", handler.Beacon)
	return app
}

func postBeacon(t *testing.T, app *fiber.App, params v1.TrackParams) (map[string]interface{}, int) {
	t.Helper()

	payload, err := json.Marshal(params)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/analytics", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", testUserAgent)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &body))
	return body, resp.StatusCode
}

func TestTrackPageView(t *testing.T) {
	t.Run("records a page view with resolved metadata", func(t *testing.T) {
		store := testsupport.SetupTestStore(t)
		resolver := &recordingResolver{location: geo.Location{Country: "Germany", City: "Berlin"}}
		app := setupTestApp(t, store, resolver)

		body, status := postBeacon(t, app, v1.TrackParams{
			Path:             "/blog",
			Referrer:         "https://www.google.com/search?q=x",
			SessionID:        "new",
			ScreenResolution: "1920x1080",
		})

		require.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, true, body["success"])
		sessionID, _ := body["sessionId"].(string)
		require.NotEmpty(t, sessionID)
		assert.NotEqual(t, "new", sessionID)

		var view storage.PageView
		require.NoError(t, store.DB().First(&view).Error)
		assert.Equal(t, "/blog", view.Path)
		assert.Equal(t, "Germany", view.Country)
		assert.Equal(t, "Berlin", view.City)
		assert.Equal(t, "Chrome", view.Browser)
		assert.Equal(t, "Desktop", view.DeviceType)
		assert.Equal(t, "Windows", view.OS)
		assert.Equal(t, "203.0.113.7", view.IPAddress)
		assert.Equal(t, sessionID, view.SessionID)
		assert.True(t, view.IsUniqueVisitor)
	})

	t.Run("session continuity across beacons", func(t *testing.T) {
		store := testsupport.SetupTestStore(t)
		app := setupTestApp(t, store, &recordingResolver{})

		first, _ := postBeacon(t, app, v1.TrackParams{Path: "/", SessionID: "new"})
		sessionID := first["sessionId"].(string)

		second, _ := postBeacon(t, app, v1.TrackParams{Path: "/about", SessionID: sessionID})
		assert.Equal(t, sessionID, second["sessionId"])

		var session storage.Session
		require.NoError(t, store.DB().First(&session, "id = ?", sessionID).Error)
		assert.Equal(t, 2, session.PageCount)

		var sessionCount int64
		require.NoError(t, store.DB().Model(&storage.Session{}).Count(&sessionCount).Error)
		assert.Equal(t, int64(1), sessionCount)

		// Only the first view of the session is flagged unique.
		var uniqueCount int64
		require.NoError(t, store.DB().Model(&storage.PageView{}).
			Where("is_unique_visitor = ?", true).Count(&uniqueCount).Error)
		assert.Equal(t, int64(1), uniqueCount)
	})

	t.Run("missing path is rejected", func(t *testing.T) {
		app := setupTestApp(t, testsupport.SetupTestStore(t), &recordingResolver{})

		body, status := postBeacon(t, app, v1.TrackParams{SessionID: "new"})
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "Invalid request", body["error"])
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		app := setupTestApp(t, testsupport.SetupTestStore(t), &recordingResolver{})

		req := httptest.NewRequest("POST", "/api/analytics", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestTrackPageViewDegraded(t *testing.T) {
	resolver := &recordingResolver{location: geo.Location{Country: "Germany"}}
	app := setupTestApp(t, nil, resolver)

	t.Run("new visitor gets the fallback session id", func(t *testing.T) {
		body, status := postBeacon(t, app, v1.TrackParams{Path: "/", SessionID: "new"})
		require.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "fallback", body["sessionId"])
	})

	t.Run("supplied session id is echoed back", func(t *testing.T) {
		body, _ := postBeacon(t, app, v1.TrackParams{Path: "/", SessionID: "existing-id"})
		assert.Equal(t, "existing-id", body["sessionId"])
	})

	t.Run("metadata resolution is skipped", func(t *testing.T) {
		assert.Equal(t, int32(0), atomic.LoadInt32(&resolver.calls))
	})
}

func TestHealth(t *testing.T) {
	app := setupTestApp(t, nil, &recordingResolver{})

	req := httptest.NewRequest("GET", "/api/analytics", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Analytics API endpoint", body["message"])
}
