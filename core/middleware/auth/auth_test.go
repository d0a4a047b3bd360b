package auth_test

import (
	"net/http/httptest"
	"testing"

	"glass-tracker/core/middleware/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth(t *testing.T) {
	app := fiber.New()
	app.Use(auth.New(auth.Config{
		ApiKey: "secret",
		Skip:   func(c *fiber.Ctx) bool { return c.Path() == "/health" },
	}))
	app.Get("/*", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		want    int
	}{
		{"No key", "/glass/validations", nil, 401},
		{"Wrong key", "/glass/validations", map[string]string{"X-API-Key": "nope"}, 401},
		{"Header key", "/glass/validations", map[string]string{"X-API-Key": "secret"}, 200},
		{"Bearer key", "/glass/validations", map[string]string{"Authorization": "Bearer secret"}, 200},
		{"Basic is not bearer", "/glass/validations", map[string]string{"Authorization": "Basic secret"}, 401},
		{"Skipped path", "/health", nil, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAuth_EmptyKeyDisablesCheck(t *testing.T) {
	app := fiber.New()
	app.Use(auth.New(auth.Config{}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
