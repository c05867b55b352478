package trade

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/config"
	"github.com/rajivgeraev/barter-api/internal/db"
	"github.com/rajivgeraev/barter-api/internal/models"
	"github.com/rajivgeraev/barter-api/internal/store"
	"github.com/rajivgeraev/barter-api/internal/utils"
	ws "github.com/rajivgeraev/barter-api/internal/websocket"
)

// TradeService представляет сервис для работы с обменами
type TradeService struct {
	cfg        *config.Config
	store      store.Store
	jwtService *utils.JWTService
	hub        *ws.Manager
}

// NewTradeService создает новый экземпляр TradeService
func NewTradeService(cfg *config.Config, st store.Store, hub *ws.Manager) *TradeService {
	return &TradeService{
		cfg:        cfg,
		store:      st,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		hub:        hub,
	}
}

// notifyTradeEvent отправляет push-уведомление об изменении предложения
// обмена, если подключен WebSocket-хаб
func (s *TradeService) notifyTradeEvent(userID uuid.UUID, eventType ws.EventType, tradeID uuid.UUID) {
	if s.hub == nil {
		return
	}
	s.hub.NotifyTradeEvent(userID.String(), eventType, tradeID.String())
}

// CreateTrade создает новое предложение обмена
func (s *TradeService) CreateTrade(c fiber.Ctx) error {
	requesterID, err := uuid.Parse(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Извлекаем данные из запроса
	var payload struct {
		ReceiverID      string `json:"receiver_id"`
		OfferedItemID   string `json:"offered_item_id"`
		RequestedItemID string `json:"requested_item_id"`
		Message         string `json:"message"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	// Проверка обязательных полей
	if payload.ReceiverID == "" || payload.OfferedItemID == "" || payload.RequestedItemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Необходимо указать получателя и оба предмета для обмена"})
	}

	receiverID, err := uuid.Parse(payload.ReceiverID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID получателя"})
	}

	offeredItemID, err := uuid.Parse(payload.OfferedItemID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID предлагаемого предмета"})
	}

	requestedItemID, err := uuid.Parse(payload.RequestedItemID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID запрашиваемого предмета"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	offer, err := s.store.CreateTradeOffer(ctx, requesterID, receiverID, offeredItemID, requestedItemID, payload.Message)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSelfTrade):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Вы не можете предложить обмен самому себе"})
		case errors.Is(err, store.ErrNotOwner):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Вы можете предлагать только свои предметы"})
		case errors.Is(err, store.ErrItemUnavailable):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Запрашиваемый предмет не найден или недоступен"})
		case errors.Is(err, store.ErrDuplicateOffer):
			// Идемпотентность: дубликат не создаем, возвращаем предупреждение
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Такое предложение обмена уже существует"})
		}
		log.Printf("Ошибка создания предложения обмена от %s к %s: %v", requesterID, receiverID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения предложения обмена, попробуйте позже"})
	}

	s.notifyTradeEvent(receiverID, ws.EventTradeOffer, offer.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"trade_id": offer.ID,
		"message":  "Предложение обмена успешно создано",
	})
}

// GetPendingTrades возвращает ожидающие предложения пользователя,
// разделенные на входящие и исходящие
func (s *TradeService) GetPendingTrades(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	pending, err := s.store.ListPendingOffers(ctx, userID)
	if err != nil {
		log.Printf("Ошибка запроса предложений пользователя %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения предложений обмена"})
	}

	return c.JSON(fiber.Map{
		"incoming": pending.Incoming,
		"outgoing": pending.Outgoing,
		"count":    len(pending.Incoming) + len(pending.Outgoing),
	})
}

// GetTradeHistory возвращает завершенные обмены пользователя
func (s *TradeService) GetTradeHistory(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	trades, err := s.store.ListTradeHistory(ctx, userID)
	if err != nil {
		log.Printf("Ошибка запроса истории обменов пользователя %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения истории обменов"})
	}

	return c.JSON(fiber.Map{
		"trades": trades,
		"count":  len(trades),
	})
}

// GetPendingCount возвращает число входящих ожидающих предложений
// (для значка в интерфейсе)
func (s *TradeService) GetPendingCount(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	count, err := s.store.CountPendingIncoming(ctx, userID)
	if err != nil {
		log.Printf("Ошибка подсчета предложений пользователя %s: %v", userID, err)
		return c.JSON(fiber.Map{"count": 0})
	}

	return c.JSON(fiber.Map{"count": count})
}

// UpdateTradeStatus обновляет статус предложения обмена:
// принятие (с обменом владельцами), отклонение или отмена
func (s *TradeService) UpdateTradeStatus(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	tradeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID предложения обмена"})
	}

	// Получаем новый статус из запроса
	var payload struct {
		Status string `json:"status"` // accepted, rejected, canceled
	}

	if err := c.Bind().Body(&payload); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	switch payload.Status {
	case models.TradeStatusAccepted:
		offer, err := s.store.AcceptTradeOffer(ctx, tradeID, userID)
		if err != nil {
			return s.tradeStatusError(c, tradeID, err)
		}
		s.notifyTradeEvent(offer.RequesterID, ws.EventTradeAccepted, tradeID)
		return c.JSON(fiber.Map{
			"success":  true,
			"message":  "Предложение обмена принято, предметы переданы новым владельцам",
			"trade_id": tradeID,
			"status":   models.TradeStatusAccepted,
			"trade":    offer,
		})

	case models.TradeStatusRejected:
		offer, err := s.store.RejectTradeOffer(ctx, tradeID, userID)
		if err != nil {
			return s.tradeStatusError(c, tradeID, err)
		}
		s.notifyTradeEvent(offer.RequesterID, ws.EventTradeRejected, tradeID)
		return c.JSON(fiber.Map{
			"success":  true,
			"message":  "Предложение обмена отклонено",
			"trade_id": tradeID,
			"status":   models.TradeStatusRejected,
		})

	case models.TradeStatusCanceled:
		offer, err := s.store.CancelTradeOffer(ctx, tradeID, userID)
		if err != nil {
			return s.tradeStatusError(c, tradeID, err)
		}
		// Уведомляем вторую сторону предложения
		counterparty := offer.RequesterID
		if counterparty == userID {
			counterparty = offer.ReceiverID
		}
		s.notifyTradeEvent(counterparty, ws.EventTradeCanceled, tradeID)
		return c.JSON(fiber.Map{
			"success":  true,
			"message":  "Предложение обмена отменено",
			"trade_id": tradeID,
			"status":   models.TradeStatusCanceled,
		})

	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимый статус предложения обмена"})
	}
}

// tradeStatusError сопоставляет доменные ошибки хранилища с HTTP-ответами
func (s *TradeService) tradeStatusError(c fiber.Ctx, tradeID uuid.UUID, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		// "Не найдено", "не ваше" и "уже обработано" нарочно неразличимы
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Предложение обмена не найдено или уже обработано"})
	case errors.Is(err, store.ErrStaleOffer):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":  "Предметы предложения сменили владельца, предложение отменено",
			"status": models.TradeStatusCanceled,
		})
	}
	log.Printf("Ошибка обновления статуса предложения %s: %v", tradeID, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления статуса предложения, попробуйте позже"})
}
