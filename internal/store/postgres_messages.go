package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/models"
)

// CreateMessage отправляет личное сообщение от одного пользователя другому
func (s *PostgresStore) CreateMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*models.Message, error) {
	content, err := normalizeMessageContent(content)
	if err != nil {
		return nil, err
	}

	// Получатель должен существовать
	var receiverExists bool
	err = s.pool.QueryRow(ctx, `
        SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)
    `, receiverID).Scan(&receiverExists)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки получателя: %w", err)
	}
	if !receiverExists {
		return nil, ErrReceiverNotFound
	}

	msg := models.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		IsRead:     false,
		SentAt:     time.Now(),
	}

	_, err = s.pool.Exec(ctx, `
        INSERT INTO messages (id, sender_id, receiver_id, content, is_read, sent_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, msg.IsRead, msg.SentAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения сообщения: %w", err)
	}

	return &msg, nil
}

// Conversation возвращает переписку двух пользователей от старых
// сообщений к новым. Побочный эффект просмотра: все сообщения,
// адресованные запрашивающему, помечаются прочитанными.
func (s *PostgresStore) Conversation(ctx context.Context, userID, otherUserID uuid.UUID) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, sender_id, receiver_id, content, is_read, sent_at
        FROM messages
        WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
        ORDER BY sent_at ASC
    `, userID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса переписки: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.IsRead, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования сообщения: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Отмечаем адресованные пользователю сообщения как прочитанные
	_, err = s.pool.Exec(ctx, `
        UPDATE messages
        SET is_read = true
        WHERE receiver_id = $1 AND sender_id = $2 AND is_read = false
    `, userID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления статуса прочтения: %w", err)
	}

	// Вкладываем информацию об отправителях: в переписке их ровно два
	senders := map[uuid.UUID]*models.User{
		userID:      s.getUserSummary(ctx, userID),
		otherUserID: s.getUserSummary(ctx, otherUserID),
	}
	for i := range messages {
		messages[i].Sender = senders[messages[i].SenderID]
	}

	return messages, nil
}

// UnreadCount возвращает число непрочитанных сообщений пользователя
func (s *PostgresStore) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM messages
        WHERE receiver_id = $1 AND is_read = false
    `, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета непрочитанных сообщений: %w", err)
	}
	return count, nil
}

// ChatPartners возвращает пользователей, с которыми есть переписка
func (s *PostgresStore) ChatPartners(ctx context.Context, userID uuid.UUID) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT DISTINCT u.id, u.username, u.display_name, u.avatar_url
        FROM users u
        JOIN messages m ON (m.sender_id = u.id AND m.receiver_id = $1)
                        OR (m.receiver_id = u.id AND m.sender_id = $1)
        ORDER BY u.username ASC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса собеседников: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
