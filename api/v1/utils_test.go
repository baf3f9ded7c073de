package v1

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractIP(t *testing.T, headers map[string]string) string {
	t.Helper()

	app := fiber.New()
	var got string
	app.Get("/", func(c *fiber.Ctx) error {
		got = clientIP(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	_, err := app.Test(req)
	require.NoError(t, err)
	return got
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{
			"first forwarded-for entry wins",
			map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1, 10.0.0.2"},
			"203.0.113.7",
		},
		{
			"forwarded-for entry is trimmed",
			map[string]string{"X-Forwarded-For": "  203.0.113.7 , 10.0.0.1"},
			"203.0.113.7",
		},
		{
			"real-ip fallback",
			map[string]string{"X-Real-IP": "198.51.100.23"},
			"198.51.100.23",
		},
		{
			"forwarded-for beats real-ip",
			map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.23"},
			"203.0.113.7",
		},
		{
			"no proxy headers falls back to loopback",
			nil,
			"127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractIP(t, tt.headers))
		})
	}
}

func TestGenerateETag(t *testing.T) {
	a := generateETag([]byte("content"))
	b := generateETag([]byte("content"))
	c := generateETag([]byte("different"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, len(a) > 2 && a[0] == '"' && a[len(a)-1] == '"', "etag must be quoted")
}
