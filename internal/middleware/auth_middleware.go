package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/utils"
)

// AuthMiddleware проверяет Bearer-токен и кладет ID пользователя
// в контекст запроса под ключом "userID"
func AuthMiddleware(jwtService *utils.JWTService) fiber.Handler {
	return func(c fiber.Ctx) error {
		tokenString, ok := strings.CutPrefix(c.Get("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			return unauthorized(c, "Требуется заголовок Authorization с Bearer-токеном")
		}

		userID, err := jwtService.ExtractUserID(tokenString)
		if err != nil {
			return unauthorized(c, "Недействительный или истекший токен")
		}

		// ID в токене обязан быть валидным UUID: хендлеры разбирают
		// его без повторной проверки
		if _, err := uuid.Parse(userID); err != nil {
			return unauthorized(c, "Недействительный или истекший токен")
		}

		c.Locals("userID", userID)
		return c.Next()
	}
}

func unauthorized(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": message})
}
