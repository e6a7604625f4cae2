package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"kosync/backend/config"
	"kosync/backend/middleware"
	"kosync/backend/routes"
	"kosync/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestApp builds the full middleware and route stack over a fresh
// embedded database, the same way main does.
func newTestApp(t *testing.T, cfg *config.Config) (*fiber.App, *gorm.DB) {
	t.Helper()

	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.DBDriver = "sqlite"
	cfg.DBPath = filepath.Join(t.TempDir(), "kosync.db")
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "admin"
	}

	db, err := utils.InitDB(cfg)
	require.NoError(t, err)

	logger := log.New(io.Discard, "", 0)

	app := fiber.New()
	app.Use(middleware.OriginMiddleware(cfg, logger))
	app.Use(middleware.IdentityMiddleware(db))
	routes.SetupRoutes(app, db, cfg, logger)

	return app, db
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body interface{}, headers map[string]string) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewBuffer(jsonData)
	}

	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func authHeaders(username, passwordHash string) map[string]string {
	return map[string]string{
		"x-auth-user": username,
		"x-auth-key":  passwordHash,
	}
}

func adminHeaders() map[string]string {
	return authHeaders("admin", utils.HashPassword("admin"))
}

// registerUser goes through the public registration endpoint, which expects
// the password field to carry the client-side digest.
func registerUser(t *testing.T, app *fiber.App, username, password string) {
	t.Helper()

	resp := doRequest(t, app, "POST", "/users/create", map[string]string{
		"username": username,
		"password": utils.HashPassword(password),
	}, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
}
