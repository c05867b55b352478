package item

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/barter-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API предметов
func (s *ItemService) SetupRoutes(app *fiber.App) {
	// Группа для API предметов
	api := app.Group("/api/items")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания предмета
	api.Post("/", s.CreateItem)

	// Маршрут для витрины: предметы других пользователей
	api.Get("/", s.BrowseItems)

	// Маршрут для своих предметов
	api.Get("/my", s.GetMyItems)

	// Маршрут для одного предмета по ID
	api.Get("/:id", s.GetItem)

	// Предметы конкретного пользователя
	users := app.Group("/api/users")
	users.Use(middleware.AuthMiddleware(s.jwtService))
	users.Get("/:id/items", s.GetUserItems)
}
