package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/models"
)

// PendingOffers группирует ожидающие предложения пользователя:
// входящие (он получатель) и исходящие (он инициатор), каждая часть
// отсортирована от новых к старым.
type PendingOffers struct {
	Incoming []models.TradeOffer `json:"incoming"`
	Outgoing []models.TradeOffer `json:"outgoing"`
}

// Store определяет интерфейс постоянного хранилища.
// Его реализуют PostgresStore и SQLiteStore.
type Store interface {
	// Управление соединением
	Close()
	Ping(ctx context.Context) error

	// Пользователи
	CreateUser(ctx context.Context, username, passwordHash, displayName, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	SearchUsers(ctx context.Context, excludeID uuid.UUID, query string) ([]models.User, error)

	// Предметы
	CreateItem(ctx context.Context, ownerID uuid.UUID, name, description, imageURL string) (*models.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ListItemsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Item, error)
	ListOtherItems(ctx context.Context, excludeOwnerID uuid.UUID) ([]models.Item, error)

	// Предложения обмена
	CreateTradeOffer(ctx context.Context, requesterID, receiverID, offeredItemID, requestedItemID uuid.UUID, message string) (*models.TradeOffer, error)
	AcceptTradeOffer(ctx context.Context, offerID, actingUserID uuid.UUID) (*models.TradeOffer, error)
	RejectTradeOffer(ctx context.Context, offerID, actingUserID uuid.UUID) (*models.TradeOffer, error)
	CancelTradeOffer(ctx context.Context, offerID, actingUserID uuid.UUID) (*models.TradeOffer, error)
	ListPendingOffers(ctx context.Context, userID uuid.UUID) (*PendingOffers, error)
	ListTradeHistory(ctx context.Context, userID uuid.UUID) ([]models.TradeOffer, error)
	CountPendingIncoming(ctx context.Context, userID uuid.UUID) (int, error)

	// Личные сообщения
	CreateMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*models.Message, error)
	Conversation(ctx context.Context, userID, otherUserID uuid.UUID) ([]models.Message, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	ChatPartners(ctx context.Context, userID uuid.UUID) ([]models.User, error)
}
