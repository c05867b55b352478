package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/models"
)

// CreateTradeOffer создает новое предложение обмена.
// Порядок проверок и ошибки совпадают с PostgresStore. Проверки и
// вставка идут в одной транзакции: _txlock=immediate сразу берет
// блокировку на запись, поэтому два одинаковых конкурирующих запроса
// выполняются по очереди, и второй видит pending-предложение первого.
func (s *SQLiteStore) CreateTradeOffer(ctx context.Context, requesterID, receiverID, offeredItemID, requestedItemID uuid.UUID, message string) (*models.TradeOffer, error) {
	if receiverID == requesterID {
		return nil, ErrSelfTrade
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	var offeredOwnerID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT owner_id FROM items WHERE id = ?
	`, offeredItemID.String()).Scan(&offeredOwnerID)
	if err != nil || offeredOwnerID != requesterID {
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ошибка проверки предлагаемого предмета: %w", err)
		}
		return nil, ErrNotOwner
	}

	var requestedOwnerID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT owner_id FROM items WHERE id = ?
	`, requestedItemID.String()).Scan(&requestedOwnerID)
	if err != nil || requestedOwnerID != receiverID {
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ошибка проверки запрашиваемого предмета: %w", err)
		}
		return nil, ErrItemUnavailable
	}

	var existingCount int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM trade_offers
		WHERE requester_id = ? AND receiver_id = ?
		  AND offered_item_id = ? AND requested_item_id = ?
		  AND status = 'pending'
	`, requesterID.String(), receiverID.String(), offeredItemID.String(), requestedItemID.String()).Scan(&existingCount)
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

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trade_offers (id, requester_id, receiver_id, offered_item_id, requested_item_id, status, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, offer.ID.String(), offer.RequesterID.String(), offer.ReceiverID.String(), offer.OfferedItemID.String(), offer.RequestedItemID.String(), offer.Status, offer.Message, offer.CreatedAt, offer.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания предложения обмена: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	return &offer, nil
}

// AcceptTradeOffer принимает предложение и атомарно меняет владельцев
// предметов. Транзакция сразу берет блокировку на запись
// (_txlock=immediate), поэтому конкурирующие принятия выполняются
// строго по очереди: проигравший увидит смену владельца при повторной
// проверке и получит ErrStaleOffer.
func (s *SQLiteStore) AcceptTradeOffer(ctx context.Context, offerID, actingUserID uuid.UUID) (*models.TradeOffer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	var offer models.TradeOffer
	err = tx.QueryRowContext(ctx, `
		SELECT id, requester_id, receiver_id, offered_item_id, requested_item_id, status, message, created_at, updated_at
		FROM trade_offers
		WHERE id = ?
	`, offerID.String()).Scan(&offer.ID, &offer.RequesterID, &offer.ReceiverID, &offer.OfferedItemID, &offer.RequestedItemID, &offer.Status, &offer.Message, &offer.CreatedAt, &offer.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка запроса предложения обмена: %w", err)
	}

	// "Не найдено", "не ваше" и "уже обработано" не различаются
	if offer.IsTerminal() || offer.ReceiverID != actingUserID {
		return nil, ErrNotFound
	}

	// Повторная проверка владения на момент принятия
	stale := false
	for _, check := range []struct {
		itemID uuid.UUID
		owner  uuid.UUID
	}{
		{offer.OfferedItemID, offer.RequesterID},
		{offer.RequestedItemID, actingUserID},
	} {
		var ownerID uuid.UUID
		err = tx.QueryRowContext(ctx, `
			SELECT owner_id FROM items WHERE id = ?
		`, check.itemID.String()).Scan(&ownerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				stale = true
				break
			}
			return nil, fmt.Errorf("ошибка проверки предмета: %w", err)
		}
		if ownerID != check.owner {
			stale = true
			break
		}
	}

	now := time.Now()
	if stale {
		// Предложение устарело: отменяем его, владельцев не трогаем
		if _, err = tx.ExecContext(ctx, `
			UPDATE trade_offers SET status = ?, updated_at = ? WHERE id = ?
		`, models.TradeStatusCanceled, now, offerID.String()); err != nil {
			return nil, fmt.Errorf("ошибка отмены устаревшего предложения: %w", err)
		}
		if err = tx.Commit(); err != nil {
			return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
		}
		return nil, ErrStaleOffer
	}

	// Обмен владельцами: каждый предмет переходит другой стороне
	if _, err = tx.ExecContext(ctx, `
		UPDATE items SET owner_id = ?, updated_at = ? WHERE id = ?
	`, offer.ReceiverID.String(), now, offer.OfferedItemID.String()); err != nil {
		return nil, fmt.Errorf("ошибка передачи предлагаемого предмета: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE items SET owner_id = ?, updated_at = ? WHERE id = ?
	`, offer.RequesterID.String(), now, offer.RequestedItemID.String()); err != nil {
		return nil, fmt.Errorf("ошибка передачи запрашиваемого предмета: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE trade_offers SET status = ?, updated_at = ? WHERE id = ?
	`, models.TradeStatusAccepted, now, offerID.String()); err != nil {
		return nil, fmt.Errorf("ошибка обновления статуса предложения: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	offer.Status = models.TradeStatusAccepted
	offer.UpdatedAt = now
	s.enrichOffer(ctx, &offer)
	return &offer, nil
}

// RejectTradeOffer отклоняет предложение. Отклонить может только получатель.
func (s *SQLiteStore) RejectTradeOffer(ctx context.Context, offerID, actingUserID uuid.UUID) (*models.TradeOffer, error) {
	return s.finishOffer(ctx, `
		UPDATE trade_offers
		SET status = ?, updated_at = ?
		WHERE id = ? AND receiver_id = ? AND status = 'pending'
	`, models.TradeStatusRejected, offerID, offerID.String(), actingUserID.String())
}

// CancelTradeOffer отменяет предложение. Отменить может любая из
// сторон ожидающего предложения.
func (s *SQLiteStore) CancelTradeOffer(ctx context.Context, offerID, actingUserID uuid.UUID) (*models.TradeOffer, error) {
	return s.finishOffer(ctx, `
		UPDATE trade_offers
		SET status = ?, updated_at = ?
		WHERE id = ? AND (requester_id = ? OR receiver_id = ?) AND status = 'pending'
	`, models.TradeStatusCanceled, offerID, offerID.String(), actingUserID.String(), actingUserID.String())
}

func (s *SQLiteStore) finishOffer(ctx context.Context, query, status string, offerID uuid.UUID, args ...interface{}) (*models.TradeOffer, error) {
	execArgs := append([]interface{}{status, time.Now()}, args...)
	res, err := s.db.ExecContext(ctx, query, execArgs...)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления статуса предложения: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления статуса предложения: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	var offer models.TradeOffer
	err = s.db.QueryRowContext(ctx, `
		SELECT id, requester_id, receiver_id, offered_item_id, requested_item_id, status, message, created_at, updated_at
		FROM trade_offers WHERE id = ?
	`, offerID.String()).Scan(&offer.ID, &offer.RequesterID, &offer.ReceiverID, &offer.OfferedItemID, &offer.RequestedItemID, &offer.Status, &offer.Message, &offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения обновленного предложения: %w", err)
	}
	return &offer, nil
}

// ListPendingOffers возвращает ожидающие предложения пользователя,
// разделенные на входящие и исходящие, от новых к старым
func (s *SQLiteStore) ListPendingOffers(ctx context.Context, userID uuid.UUID) (*PendingOffers, error) {
	incoming, err := s.listOffers(ctx, `
		SELECT id, requester_id, receiver_id, offered_item_id, requested_item_id, status, message, created_at, updated_at
		FROM trade_offers
		WHERE receiver_id = ? AND status = 'pending'
		ORDER BY created_at DESC
	`, userID.String())
	if err != nil {
		return nil, err
	}

	outgoing, err := s.listOffers(ctx, `
		SELECT id, requester_id, receiver_id, offered_item_id, requested_item_id, status, message, created_at, updated_at
		FROM trade_offers
		WHERE requester_id = ? AND status = 'pending'
		ORDER BY created_at DESC
	`, userID.String())
	if err != nil {
		return nil, err
	}

	return &PendingOffers{Incoming: incoming, Outgoing: outgoing}, nil
}

// ListTradeHistory возвращает завершенные обмены пользователя
func (s *SQLiteStore) ListTradeHistory(ctx context.Context, userID uuid.UUID) ([]models.TradeOffer, error) {
	return s.listOffers(ctx, `
		SELECT id, requester_id, receiver_id, offered_item_id, requested_item_id, status, message, created_at, updated_at
		FROM trade_offers
		WHERE (requester_id = ? OR receiver_id = ?) AND status = 'accepted'
		ORDER BY created_at DESC
	`, userID.String(), userID.String())
}

// CountPendingIncoming возвращает число входящих ожидающих предложений
func (s *SQLiteStore) CountPendingIncoming(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM trade_offers
		WHERE receiver_id = ? AND status = 'pending'
	`, userID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета предложений: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) listOffers(ctx context.Context, query string, args ...interface{}) ([]models.TradeOffer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

	for i := range offers {
		s.enrichOffer(ctx, &offers[i])
	}
	return offers, nil
}

func (s *SQLiteStore) enrichOffer(ctx context.Context, offer *models.TradeOffer) {
	offer.OfferedItem = s.getItemSummary(ctx, offer.OfferedItemID)
	offer.RequestedItem = s.getItemSummary(ctx, offer.RequestedItemID)
	offer.Requester = s.getUserSummary(ctx, offer.RequesterID)
	offer.Receiver = s.getUserSummary(ctx, offer.ReceiverID)
}
