package internal

import (
	"encoding/json"
	"net/http/httptest"
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

func newRoutedApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := testsupport.GetLogger()
	guard := storage.NewGuard(nil, logger)
	handler := v1.NewHandler(guard, sessions.NewManager(guard, logger), geo.NewHTTPResolver("http://127.0.0.1:1", logger), logger)

	app := fiber.New()
	MountRoutes(app, handler)
	return app
}

func TestMountRoutes(t *testing.T) {
	app := newRoutedApp(t)

	t.Run("health endpoint", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/_health", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("api probe is mounted", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/analytics", nil))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("cross-origin requests are allowed", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/analytics", nil)
		req.Header.Set("Origin", "https://instrumented-site.example")
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown route is a 404", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/unknown", nil))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}
