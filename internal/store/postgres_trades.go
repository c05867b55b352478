package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/barter-api/internal/models"
)

// CreateTradeOffer создает новое предложение обмена.
// Предусловия проверяются в строгом порядке, каждое со своей ошибкой:
// обмен с самим собой, владение предлагаемым предметом, доступность
// запрашиваемого предмета, отсутствие дубликата в статусе pending.
// Проверки и вставка идут в одной транзакции с блокировкой строк
// обоих предметов: два одинаковых конкурирующих запроса выполняются
// последовательно, и второй видит pending-предложение первого.
func (s *PostgresStore) CreateTradeOffer(ctx context.Context, requesterID, receiverID, offeredItemID, requestedItemID uuid.UUID, message string) (*models.TradeOffer, error) {
	if receiverID == requesterID {
		return nil, ErrSelfTrade
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем оба предмета в порядке возрастания ID — в том же
	// порядке, что и принятие, чтобы не взаимоблокироваться с ним
	first, second := offeredItemID, requestedItemID
	if second.String() < first.String() {
		first, second = second, first
	}

	owners := make(map[uuid.UUID]uuid.UUID, 2)
	for _, itemID := range []uuid.UUID{first, second} {
		var ownerID uuid.UUID
		err = tx.QueryRow(ctx, `
            SELECT owner_id FROM items WHERE id = $1 FOR UPDATE
        `, itemID).Scan(&ownerID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ошибка блокировки предмета: %w", err)
		}
		owners[itemID] = ownerID
	}

	// Предлагаемый предмет должен принадлежать инициатору
	if owners[offeredItemID] != requesterID {
		return nil, ErrNotOwner
	}

	// Запрашиваемый предмет должен принадлежать получателю
	if owners[requestedItemID] != receiverID {
		return nil, ErrItemUnavailable
	}

	// Проверяем, нет ли уже такого предложения в ожидании
	var existingCount int
	err = tx.QueryRow(ctx, `
        SELECT COUNT(*) FROM trade_offers
        WHERE requester_id = $1 AND receiver_id = $2
          AND offered_item_id = $3 AND requested_item_id = $4
          AND status = 'pending'
    `, requesterID, receiverID, offeredItemID, requestedItemID).Scan(&existingCount)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки существующих предложений: %w", err)
	}
	if existingCount > 0 {
		return nil, ErrDuplicateOffer
	}

	offer := models.TradeOffer{
		ID:              uuid.New(),
		RequesterID:     requesterID,
		ReceiverID:      receiverID,
		OfferedItemID:   offeredItemID,
		RequestedItemID: requestedItemID,
		Status:          models.TradeStatusPending,
		Message:         message,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO trade_offers (id, requester_id, receiver_id, offered_item_id, requested_item_id, status, message, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, offer.ID, offer.RequesterID, offer.ReceiverID, offer.OfferedItemID, offer.RequestedItemID, offer.Status, offer.Message, offer.CreatedAt, offer.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания предложения обмена: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	return &offer, nil
}

// AcceptTradeOffer принимает предложение обмена и атомарно меняет
// владельцев обоих предметов. Вся последовательность
// чтение-проверка-обмен выполняется в одной транзакции: строки
// предложения и обоих предметов блокируются через SELECT ... FOR
// UPDATE, поэтому два конкурирующих принятия, затрагивающие один
// предмет, не могут обменять его дважды — проигравший увидит смену
// владельца и получит ErrStaleOffer.
func (s *PostgresStore) AcceptTradeOffer(ctx context.Context, offerID, actingUserID uuid.UUID) (*models.TradeOffer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var offer models.TradeOffer
	err = tx.QueryRow(ctx, `
        SELECT id, requester_id, receiver_id, offered_item_id, requested_item_id, status, message, created_at, updated_at
        FROM trade_offers
        WHERE id = $1
        FOR UPDATE
    `, offerID).Scan(&offer.ID, &offer.RequesterID, &offer.ReceiverID, &offer.OfferedItemID, &offer.RequestedItemID, &offer.Status, &offer.Message, &offer.CreatedAt, &offer.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка запроса предложения обмена: %w", err)
	}

	// "Не найдено", "не ваше" и "уже обработано" не различаются
	if offer.IsTerminal() || offer.ReceiverID != actingUserID {
		return nil, ErrNotFound
	}

	// Блокируем оба предмета в порядке возрастания ID,
	// чтобы встречные принятия не взаимоблокировались
	first, second := offer.OfferedItemID, offer.RequestedItemID
	if second.String() < first.String() {
		first, second = second, first
	}

	owners := make(map[uuid.UUID]uuid.UUID, 2)
	for _, itemID := range []uuid.UUID{first, second} {
		var ownerID uuid.UUID
		err = tx.QueryRow(ctx, `
            SELECT owner_id FROM items WHERE id = $1 FOR UPDATE
        `, itemID).Scan(&ownerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Предмет исчез — предложение устарело
				return nil, s.cancelStaleOffer(ctx, tx, offerID)
			}
			return nil, fmt.Errorf("ошибка блокировки предмета: %w", err)
		}
		owners[itemID] = ownerID
	}

	// Повторная проверка владения на момент принятия: владельцы могли
	// смениться другим завершенным обменом после создания предложения
	if owners[offer.OfferedItemID] != offer.RequesterID || owners[offer.RequestedItemID] != actingUserID {
		return nil, s.cancelStaleOffer(ctx, tx, offerID)
	}

	// Обмен владельцами: каждый предмет переходит другой стороне
	now := time.Now()
	if _, err = tx.Exec(ctx, `
        UPDATE items SET owner_id = $1, updated_at = $2 WHERE id = $3
    `, offer.ReceiverID, now, offer.OfferedItemID); err != nil {
		return nil, fmt.Errorf("ошибка передачи предлагаемого предмета: %w", err)
	}
	if _, err = tx.Exec(ctx, `
        UPDATE items SET owner_id = $1, updated_at = $2 WHERE id = $3
    `, offer.RequesterID, now, offer.RequestedItemID); err != nil {
		return nil, fmt.Errorf("ошибка передачи запрашиваемого предмета: %w", err)
	}

	if _, err = tx.Exec(ctx, `
        UPDATE trade_offers SET status = $1, updated_at = $2 WHERE id = $3
    `, models.TradeStatusAccepted, now, offerID); err != nil {
		return nil, fmt.Errorf("ошибка обновления статуса предложения: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	offer.Status = models.TradeStatusAccepted
	offer.UpdatedAt = now
	s.enrichOffer(ctx, &offer)
	return &offer, nil
}

// cancelStaleOffer переводит устаревшее предложение в canceled и
// фиксирует транзакцию, не меняя владельцев
func (s *PostgresStore) cancelStaleOffer(ctx context.Context, tx pgx.Tx, offerID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
        UPDATE trade_offers SET status = $1, updated_at = $2 WHERE id = $3
    `, models.TradeStatusCanceled, time.Now(), offerID)
	if err != nil {
		return fmt.Errorf("ошибка отмены устаревшего предложения: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return ErrStaleOffer
}

// RejectTradeOffer отклоняет предложение. Отклонить может только получатель.
func (s *PostgresStore) RejectTradeOffer(ctx context.Context, offerID, actingUserID uuid.UUID) (*models.TradeOffer, error) {
	return s.finishOffer(ctx, `
        UPDATE trade_offers
        SET status = $1, updated_at = $2
        WHERE id = $3 AND receiver_id = $4 AND status = 'pending'
        RETURNING id, requester_id, receiver_id, offered_item_id, requested_item_id, status, message, created_at, updated_at
    `, models.TradeStatusRejected, offerID, actingUserID)
}

// CancelTradeOffer отменяет предложение. Отменить может любая из
// сторон ожидающего предложения.
func (s *PostgresStore) CancelTradeOffer(ctx context.Context, offerID, actingUserID uuid.UUID) (*models.TradeOffer, error) {
	return s.finishOffer(ctx, `
        UPDATE trade_offers
        SET status = $1, updated_at = $2
        WHERE id = $3 AND (requester_id = $4 OR receiver_id = $4) AND status = 'pending'
        RETURNING id, requester_id, receiver_id, offered_item_id, requested_item_id, status, message, created_at, updated_at
    `, models.TradeStatusCanceled, offerID, actingUserID)
}

func (s *PostgresStore) finishOffer(ctx context.Context, query, status string, offerID, actingUserID uuid.UUID) (*models.TradeOffer, error) {
	var offer models.TradeOffer
	err := s.pool.QueryRow(ctx, query, status, time.Now(), offerID, actingUserID).
		Scan(&offer.ID, &offer.RequesterID, &offer.ReceiverID, &offer.OfferedItemID, &offer.RequestedItemID, &offer.Status, &offer.Message, &offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления статуса предложения: %w", err)
	}
	return &offer, nil
}

// ListPendingOffers возвращает ожидающие предложения пользователя,
// разделенные на входящие и исходящие, от новых к старым
func (s *PostgresStore) ListPendingOffers(ctx context.Context, userID uuid.UUID) (*PendingOffers, error) {
	incoming, err := s.listOffers(ctx, `
        SELECT id, requester_id, receiver_id, offered_item_id, requested_item_id, status, message, created_at, updated_at
        FROM trade_offers
        WHERE receiver_id = $1 AND status = 'pending'
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}

	outgoing, err := s.listOffers(ctx, `
        SELECT id, requester_id, receiver_id, offered_item_id, requested_item_id, status, message, created_at, updated_at
        FROM trade_offers
        WHERE requester_id = $1 AND status = 'pending'
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}

	return &PendingOffers{Incoming: incoming, Outgoing: outgoing}, nil
}

// ListTradeHistory возвращает завершенные обмены пользователя
func (s *PostgresStore) ListTradeHistory(ctx context.Context, userID uuid.UUID) ([]models.TradeOffer, error) {
	return s.listOffers(ctx, `
        SELECT id, requester_id, receiver_id, offered_item_id, requested_item_id, status, message, created_at, updated_at
        FROM trade_offers
        WHERE (requester_id = $1 OR receiver_id = $1) AND status = 'accepted'
        ORDER BY created_at DESC
    `, userID)
}

// CountPendingIncoming возвращает число входящих ожидающих предложений
func (s *PostgresStore) CountPendingIncoming(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM trade_offers
        WHERE receiver_id = $1 AND status = 'pending'
    `, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета предложений: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) listOffers(ctx context.Context, query string, args ...interface{}) ([]models.TradeOffer, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса предложений обмена: %w", err)
	}
	defer rows.Close()

	var offers []models.TradeOffer
	for rows.Next() {
		var offer models.TradeOffer
		if err := rows.Scan(&offer.ID, &offer.RequesterID, &offer.ReceiverID, &offer.OfferedItemID, &offer.RequestedItemID, &offer.Status, &offer.Message, &offer.CreatedAt, &offer.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования предложения: %w", err)
		}
		offers = append(offers, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Загружаем дополнительную информацию о предметах и пользователях
	for i := range offers {
		s.enrichOffer(ctx, &offers[i])
	}
	return offers, nil
}

func (s *PostgresStore) enrichOffer(ctx context.Context, offer *models.TradeOffer) {
	offer.OfferedItem = s.getItemSummary(ctx, offer.OfferedItemID)
	offer.RequestedItem = s.getItemSummary(ctx, offer.RequestedItemID)
	offer.Requester = s.getUserSummary(ctx, offer.RequesterID)
	offer.Receiver = s.getUserSummary(ctx, offer.ReceiverID)
}
