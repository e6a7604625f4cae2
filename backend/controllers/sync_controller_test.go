package controllers_test

import (
	"testing"
	"time"

	"kosync/backend/config"
	"kosync/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	app, _ := newTestApp(t, nil)

	resp := doRequest(t, app, "GET", "/", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	app, _ := newTestApp(t, nil)

	resp := doRequest(t, app, "GET", "/healthcheck", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeBody(t, resp)
	assert.Equal(t, "OK", result["state"])
}

func TestAuthoriseUser(t *testing.T) {
	app, db := newTestApp(t, nil)
	registerUser(t, app, "alice", "pw1")

	t.Run("MissingCredentials", func(t *testing.T) {
		resp := doRequest(t, app, "GET", "/users/auth", nil, nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid credentials", decodeBody(t, resp)["message"])
	})

	t.Run("WrongDigest", func(t *testing.T) {
		resp := doRequest(t, app, "GET", "/users/auth", nil, authHeaders("alice", utils.HashPassword("wrong")))
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "User could not be found", decodeBody(t, resp)["message"])
	})

	t.Run("UnknownUser", func(t *testing.T) {
		resp := doRequest(t, app, "GET", "/users/auth", nil, authHeaders("nobody", utils.HashPassword("pw1")))
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "User could not be found", decodeBody(t, resp)["message"])
	})

	t.Run("Valid", func(t *testing.T) {
		resp := doRequest(t, app, "GET", "/users/auth", nil, authHeaders("alice", utils.HashPassword("pw1")))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "alice", decodeBody(t, resp)["username"])
	})

	t.Run("InactiveAccount", func(t *testing.T) {
		registerUser(t, app, "carol", "pw2")
		require.NoError(t, db.Exec("UPDATE users SET is_active = ? WHERE username = ?", false, "carol").Error)

		resp := doRequest(t, app, "GET", "/users/auth", nil, authHeaders("carol", utils.HashPassword("pw2")))
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "User is inactive", decodeBody(t, resp)["message"])
	})
}

func TestRegisterDuplicate(t *testing.T) {
	app, _ := newTestApp(t, nil)
	registerUser(t, app, "alice", "pw1")

	resp := doRequest(t, app, "POST", "/users/create", map[string]string{
		"username": "alice",
		"password": utils.HashPassword("other"),
	}, nil)
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "User already exists", decodeBody(t, resp)["message"])
}

func TestRegistrationDisabled(t *testing.T) {
	app, _ := newTestApp(t, &config.Config{RegistrationDisabled: true})

	resp := doRequest(t, app, "POST", "/users/create", map[string]string{
		"username": "alice",
		"password": utils.HashPassword("pw1"),
	}, nil)
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "User registration is disabled", decodeBody(t, resp)["message"])

	// The gate wins regardless of username availability.
	resp = doRequest(t, app, "POST", "/users/create", map[string]string{
		"username": "admin",
		"password": utils.HashPassword("pw1"),
	}, nil)
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "User registration is disabled", decodeBody(t, resp)["message"])
}

func TestSyncProgressRoundTrip(t *testing.T) {
	app, _ := newTestApp(t, nil)
	registerUser(t, app, "alice", "pw1")
	alice := authHeaders("alice", utils.HashPassword("pw1"))

	push := map[string]interface{}{
		"document":   "h1",
		"progress":   "p50",
		"percentage": 50.0,
		"device":     "Kobo",
		"device_id":  "d1",
	}
	resp := doRequest(t, app, "PUT", "/syncs/progress", push, alice)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeBody(t, resp)
	assert.Equal(t, "h1", result["document"])
	assert.NotEmpty(t, result["timestamp"])

	resp = doRequest(t, app, "GET", "/syncs/progress/h1", nil, alice)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	result = decodeBody(t, resp)
	assert.Equal(t, "Kobo", result["device"])
	assert.Equal(t, "d1", result["device_id"])
	assert.Equal(t, "h1", result["document"])
	assert.Equal(t, 50.0, result["percentage"])
	assert.Equal(t, "p50", result["progress"])

	epoch := int64(result["timestamp"].(float64))
	assert.InDelta(t, time.Now().Unix(), epoch, 5)
}

func TestSyncProgressUnauthorized(t *testing.T) {
	app, _ := newTestApp(t, nil)

	push := map[string]interface{}{"document": "h1", "progress": "p50", "percentage": 50.0}

	resp := doRequest(t, app, "PUT", "/syncs/progress", push, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", decodeBody(t, resp)["message"])

	resp = doRequest(t, app, "PUT", "/syncs/progress", push, authHeaders("alice", utils.HashPassword("nope")))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", decodeBody(t, resp)["message"])
}

func TestGetProgressNeverPushed(t *testing.T) {
	app, _ := newTestApp(t, nil)
	registerUser(t, app, "alice", "pw1")

	resp := doRequest(t, app, "GET", "/syncs/progress/unknown", nil, authHeaders("alice", utils.HashPassword("pw1")))
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Document not found on server", decodeBody(t, resp)["message"])
}

func TestSyncProgressIdempotent(t *testing.T) {
	app, _ := newTestApp(t, nil)
	registerUser(t, app, "alice", "pw1")
	alice := authHeaders("alice", utils.HashPassword("pw1"))

	push := map[string]interface{}{
		"document":   "h1",
		"progress":   "p50",
		"percentage": 42.5,
		"device":     "Kobo",
		"device_id":  "d1",
	}

	resp := doRequest(t, app, "PUT", "/syncs/progress", push, alice)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	first := decodeBody(t, resp)

	resp = doRequest(t, app, "PUT", "/syncs/progress", push, alice)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	second := decodeBody(t, resp)

	ts1, err := time.Parse(time.RFC3339Nano, first["timestamp"].(string))
	require.NoError(t, err)
	ts2, err := time.Parse(time.RFC3339Nano, second["timestamp"].(string))
	require.NoError(t, err)
	assert.False(t, ts2.Before(ts1))

	resp = doRequest(t, app, "GET", "/syncs/progress/h1", nil, alice)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, 42.5, result["percentage"])
	assert.Equal(t, "p50", result["progress"])
}

func TestSyncProgressLastWriteWins(t *testing.T) {
	app, _ := newTestApp(t, nil)
	registerUser(t, app, "alice", "pw1")
	alice := authHeaders("alice", utils.HashPassword("pw1"))

	resp := doRequest(t, app, "PUT", "/syncs/progress", map[string]interface{}{
		"document": "h1", "progress": "p50", "percentage": 50.0, "device": "Kobo", "device_id": "d1",
	}, alice)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, "PUT", "/syncs/progress", map[string]interface{}{
		"document": "h1", "progress": "p75", "percentage": 75.0, "device": "Kindle", "device_id": "d2",
	}, alice)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, "GET", "/syncs/progress/h1", nil, alice)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeBody(t, resp)
	assert.Equal(t, 75.0, result["percentage"])
	assert.Equal(t, "p75", result["progress"])
	assert.Equal(t, "Kindle", result["device"])
	assert.Equal(t, "d2", result["device_id"])
}

func TestProgressIsPerUser(t *testing.T) {
	app, _ := newTestApp(t, nil)
	registerUser(t, app, "alice", "pw1")
	registerUser(t, app, "bob", "pw2")

	resp := doRequest(t, app, "PUT", "/syncs/progress", map[string]interface{}{
		"document": "h1", "progress": "p50", "percentage": 50.0,
	}, authHeaders("alice", utils.HashPassword("pw1")))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, "GET", "/syncs/progress/h1", nil, authHeaders("bob", utils.HashPassword("pw2")))
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
}
