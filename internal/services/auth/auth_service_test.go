package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/barter-api/internal/config"
	"github.com/rajivgeraev/barter-api/internal/store"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	st, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	cfg := &config.Config{JWTSecret: "test-secret"}

	app := fiber.New()
	NewAuthService(cfg, st).SetupRoutes(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	var parsed map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &parsed))

	return resp, parsed
}

func TestRegisterAndLogin(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/auth/register", "", fiber.Map{
		"username": "alice",
		"password": "secret123",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	// Отображаемое имя по умолчанию совпадает с логином
	assert.Equal(t, "alice", user["display_name"])
	// Хеш пароля не должен попадать в ответ
	_, leaked := user["password_hash"]
	assert.False(t, leaked)

	resp, body = doJSON(t, app, "POST", "/api/auth/login", "", fiber.Map{
		"username": "alice",
		"password": "secret123",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
}

func TestRegister_DuplicateUsername(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, "POST", "/api/auth/register", "", fiber.Map{
		"username": "alice",
		"password": "secret123",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", "/api/auth/register", "", fiber.Map{
		"username": "alice",
		"password": "another",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestRegister_MissingFields(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, "POST", "/api/auth/register", "", fiber.Map{
		"username": "  ",
		"password": "secret123",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", "/api/auth/register", "", fiber.Map{
		"username": "alice",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogin_WrongPassword(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, "POST", "/api/auth/register", "", fiber.Map{
		"username": "alice",
		"password": "secret123",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", "/api/auth/login", "", fiber.Map{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Несуществующий пользователь дает тот же ответ
	resp, _ = doJSON(t, app, "POST", "/api/auth/login", "", fiber.Map{
		"username": "ghost",
		"password": "secret123",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestProfile_RequiresToken(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/profile", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestProfile_WithToken(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, "POST", "/api/auth/register", "", fiber.Map{
		"username": "alice",
		"password": "secret123",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	_, body := doJSON(t, app, "POST", "/api/auth/login", "", fiber.Map{
		"username": "alice",
		"password": "secret123",
	})
	token := body["token"].(string)

	resp, body = doJSON(t, app, "GET", "/api/profile", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
}
