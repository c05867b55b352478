package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/barter-api/internal/utils"
)

func newProtectedApp(jwtService *utils.JWTService) *fiber.App {
	app := fiber.New()
	app.Use(AuthMiddleware(jwtService))
	app.Get("/protected", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("userID")})
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := utils.NewJWTService("test-secret")
	app := newProtectedApp(jwtService)

	userID := uuid.New().String()
	token, err := jwtService.GenerateToken(userID)
	require.NoError(t, err)

	cases := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"без заголовка", "", fiber.StatusUnauthorized},
		{"не Bearer", "Basic abc123", fiber.StatusUnauthorized},
		{"пустой токен", "Bearer ", fiber.StatusUnauthorized},
		{"мусор вместо токена", "Bearer not-a-token", fiber.StatusUnauthorized},
		{"валидный токен", "Bearer " + token, fiber.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestAuthMiddleware_RejectsNonUUIDSubject(t *testing.T) {
	jwtService := utils.NewJWTService("test-secret")
	app := newProtectedApp(jwtService)

	token, err := jwtService.GenerateToken("not-a-uuid")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
