package integrity

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"glass-tracker/feature/glass/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *Service) {
	t.Helper()
	svc, _ := setupService(t, nil)
	app := fiber.New()
	NewHandler(svc).RegisterRoutes(app)
	return app, svc
}

func getJSON(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), 5000)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleIntegrityCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := getJSON(t, app, "/integrity")
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["healthy"])
	assert.Contains(t, body, "schema")
	assert.Contains(t, body, "drift")
}

func TestHandleIntegrityCheck_ArchiveDisabled(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := getJSON(t, app, "/integrity?archive=true")
	assert.Equal(t, 200, status)
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ErrArchiveDisabled.Error(), errs["archive"])
}

func TestHandleSchemaCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := getJSON(t, app, "/integrity/schema")
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["matched"])
}

func TestHandleDriftCheck(t *testing.T) {
	app, svc := setupTestApp(t)
	require.NoError(t, svc.db.Model(&models.Order{}).Where("1 = 1").Update("delivered_glass_count", 7).Error)

	status, body := getJSON(t, app, "/integrity/drift")
	assert.Equal(t, 200, status)
	assert.Len(t, body["drifted"], 1)

	status, body = getJSON(t, app, "/integrity/drift?fix=true")
	assert.Equal(t, 200, status)
	drifted := body["drifted"].([]any)
	require.Len(t, drifted, 1)
	assert.Equal(t, true, drifted[0].(map[string]any)["repaired"])

	status, body = getJSON(t, app, "/integrity/drift")
	assert.Equal(t, 200, status)
	assert.Empty(t, body["drifted"])
}

func TestHandleDuplicateCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := getJSON(t, app, "/integrity/duplicates")
	assert.Equal(t, 200, status)
	assert.Equal(t, float64(0), body["duplicates"])
	assert.Equal(t, false, body["fixed"])
}
