package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/barter-api/internal/config"
	"github.com/rajivgeraev/barter-api/internal/db"
	"github.com/rajivgeraev/barter-api/internal/services/auth"
	"github.com/rajivgeraev/barter-api/internal/services/chat"
	"github.com/rajivgeraev/barter-api/internal/services/cloudinary"
	"github.com/rajivgeraev/barter-api/internal/services/item"
	"github.com/rajivgeraev/barter-api/internal/services/trade"
	"github.com/rajivgeraev/barter-api/internal/store"
	"github.com/rajivgeraev/barter-api/internal/utils"
	"github.com/rajivgeraev/barter-api/internal/websocket"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем хранилище
	st, err := newStore(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer st.Close()

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Barter API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Запускаем WebSocket-хаб уведомлений на отдельном порту
	hub := websocket.NewManager()
	defer hub.Shutdown()

	jwtService := utils.NewJWTService(cfg.JWTSecret)
	wsServer := websocket.NewServer(cfg.WebSocketAddr, hub, jwtService)
	go func() {
		if err := wsServer.ListenAndServe(); err != nil {
			log.Fatalf("❌ Ошибка WebSocket сервера: %v", err)
		}
	}()

	// Создаём сервисы
	authService := auth.NewAuthService(cfg, st)
	itemService := item.NewItemService(cfg, st)
	tradeService := trade.NewTradeService(cfg, st, hub)
	chatService := chat.NewChatService(cfg, st, hub)
	cloudinaryService := cloudinary.NewCloudinaryService(cfg)

	// Регистрируем маршруты
	authService.SetupRoutes(app)
	itemService.SetupRoutes(app)
	tradeService.SetupRoutes(app)
	chatService.SetupRoutes(app)
	cloudinaryService.SetupRoutes(app)

	// Запускаем сервер
	log.Printf("✅ Barter API запущен на порту %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// newStore создает хранилище согласно конфигурации: PostgreSQL для
// продакшена, SQLite для локальной разработки
func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		log.Printf("⚠️ Используется SQLite хранилище: %s", cfg.SQLitePath)
		return store.NewSQLiteStore(context.Background(), cfg.SQLitePath)
	default:
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		pool, err := db.NewPool(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(pool), nil
	}
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
