package chat

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/barter-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API личных сообщений
func (s *ChatService) SetupRoutes(app *fiber.App) {
	// Группа для API сообщений
	api := app.Group("/api/messages")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для отправки сообщения
	api.Post("/", s.SendMessage)

	// Маршрут для списка собеседников
	api.Get("/partners", s.GetChatPartners)

	// Маршрут для числа непрочитанных сообщений
	api.Get("/unread/count", s.GetUnreadCount)

	// Маршрут для переписки с конкретным пользователем
	api.Get("/:userId", s.GetConversation)
}
