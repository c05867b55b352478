package item

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/config"
	"github.com/rajivgeraev/barter-api/internal/db"
	"github.com/rajivgeraev/barter-api/internal/store"
	"github.com/rajivgeraev/barter-api/internal/utils"
)

// ItemService представляет сервис для работы с предметами
type ItemService struct {
	cfg        *config.Config
	store      store.Store
	jwtService *utils.JWTService
}

// NewItemService создает новый экземпляр ItemService
func NewItemService(cfg *config.Config, st store.Store) *ItemService {
	return &ItemService{
		cfg:        cfg,
		store:      st,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// CreateItem создает новый предмет текущего пользователя
func (s *ItemService) CreateItem(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	item, err := s.store.CreateItem(ctx, userID, payload.Name, payload.Description, payload.ImageURL)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidName):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Название предмета обязательно"})
		case errors.Is(err, store.ErrNameTooLong):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Название предмета не может быть длиннее 100 символов"})
		case errors.Is(err, store.ErrDescriptionTooLong):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Описание не может быть длиннее 500 символов"})
		}
		log.Printf("Ошибка создания предмета пользователя %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения предмета, попробуйте позже"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"item":    item,
	})
}

// GetMyItems возвращает предметы текущего пользователя
func (s *ItemService) GetMyItems(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	items, err := s.store.ListItemsByOwner(ctx, userID)
	if err != nil {
		log.Printf("Ошибка запроса предметов пользователя %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения предметов"})
	}

	return c.JSON(fiber.Map{
		"items": items,
		"count": len(items),
	})
}

// BrowseItems возвращает предметы других пользователей (витрина)
func (s *ItemService) BrowseItems(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	items, err := s.store.ListOtherItems(ctx, userID)
	if err != nil {
		log.Printf("Ошибка запроса витрины для пользователя %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения предметов"})
	}

	return c.JSON(fiber.Map{
		"items": items,
		"count": len(items),
	})
}

// GetItem возвращает один предмет по ID
func (s *ItemService) GetItem(c fiber.Ctx) error {
	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID предмета"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Предмет не найден"})
		}
		log.Printf("Ошибка запроса предмета %s: %v", itemID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения предмета"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"item":    item,
	})
}

// GetUserItems возвращает предметы конкретного пользователя —
// для выбора запрашиваемого предмета при создании предложения
func (s *ItemService) GetUserItems(c fiber.Ctx) error {
	ownerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	items, err := s.store.ListItemsByOwner(ctx, ownerID)
	if err != nil {
		log.Printf("Ошибка запроса предметов пользователя %s: %v", ownerID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения предметов"})
	}

	return c.JSON(fiber.Map{
		"items": items,
		"count": len(items),
	})
}
