package chat

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/config"
	"github.com/rajivgeraev/barter-api/internal/db"
	"github.com/rajivgeraev/barter-api/internal/store"
	"github.com/rajivgeraev/barter-api/internal/utils"
	ws "github.com/rajivgeraev/barter-api/internal/websocket"
)

// ChatService представляет сервис личных сообщений
type ChatService struct {
	cfg        *config.Config
	store      store.Store
	jwtService *utils.JWTService
	hub        *ws.Manager
}

// NewChatService создает новый экземпляр ChatService.
// hub может быть nil — тогда события в реальном времени не рассылаются.
func NewChatService(cfg *config.Config, st store.Store, hub *ws.Manager) *ChatService {
	return &ChatService{
		cfg:        cfg,
		store:      st,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		hub:        hub,
	}
}

// SendMessage отправляет личное сообщение другому пользователю
func (s *ChatService) SendMessage(c fiber.Ctx) error {
	senderID, err := uuid.Parse(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var payload struct {
		ReceiverID string `json:"receiver_id"`
		Content    string `json:"content"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	receiverID, err := uuid.Parse(payload.ReceiverID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID получателя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	msg, err := s.store.CreateMessage(ctx, senderID, receiverID, payload.Content)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmptyContent):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Текст сообщения не может быть пустым"})
		case errors.Is(err, store.ErrContentTooLong):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Текст сообщения не может быть длиннее 1000 символов"})
		case errors.Is(err, store.ErrReceiverNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Получатель не найден"})
		}
		log.Printf("Ошибка отправки сообщения от %s к %s: %v", senderID, receiverID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения сообщения, попробуйте позже"})
	}

	// Уведомляем получателя в реальном времени
	s.notifyReceiver(receiverID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": msg,
	})
}

// GetConversation возвращает переписку с конкретным пользователем.
// Просмотр переписки помечает адресованные сообщения прочитанными.
func (s *ChatService) GetConversation(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	otherUserID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID собеседника"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	messages, err := s.store.Conversation(ctx, userID, otherUserID)
	if err != nil {
		log.Printf("Ошибка запроса переписки %s и %s: %v", userID, otherUserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения переписки"})
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    len(messages),
	})
}

// GetUnreadCount возвращает число непрочитанных сообщений пользователя
func (s *ChatService) GetUnreadCount(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	count, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		log.Printf("Ошибка подсчета непрочитанных сообщений %s: %v", userID, err)
		return c.JSON(fiber.Map{"count": 0})
	}

	return c.JSON(fiber.Map{"count": count})
}

// GetChatPartners возвращает пользователей, с которыми есть переписка
func (s *ChatService) GetChatPartners(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	partners, err := s.store.ChatPartners(ctx, userID)
	if err != nil {
		log.Printf("Ошибка запроса собеседников %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения списка собеседников"})
	}

	return c.JSON(fiber.Map{
		"partners": partners,
		"count":    len(partners),
	})
}

// notifyReceiver рассылает получателю событие о новом сообщении и
// актуальное число непрочитанных
func (s *ChatService) notifyReceiver(receiverID uuid.UUID) {
	if s.hub == nil {
		return
	}

	s.hub.SendToUser(receiverID.String(), ws.Event{Type: ws.EventNewMessage})

	ctx, cancel := db.GetContext()
	defer cancel()

	count, err := s.store.UnreadCount(ctx, receiverID)
	if err != nil {
		log.Printf("Ошибка подсчета непрочитанных для уведомления %s: %v", receiverID, err)
		return
	}
	s.hub.BroadcastUnreadCount(receiverID.String(), count)
}
