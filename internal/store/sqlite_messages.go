package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/models"
)

// CreateMessage отправляет личное сообщение от одного пользователя другому
func (s *SQLiteStore) CreateMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*models.Message, error) {
	content, err := normalizeMessageContent(content)
	if err != nil {
		return nil, err
	}

	var receiverExists bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)
	`, receiverID.String()).Scan(&receiverExists)
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, content, is_read, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID.String(), msg.SenderID.String(), msg.ReceiverID.String(), msg.Content, msg.IsRead, msg.SentAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения сообщения: %w", err)
	}

	return &msg, nil
}

// Conversation возвращает переписку двух пользователей от старых
// сообщений к новым, помечая адресованные запрашивающему прочитанными
func (s *SQLiteStore) Conversation(ctx context.Context, userID, otherUserID uuid.UUID) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, content, is_read, sent_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY sent_at ASC
	`, userID.String(), otherUserID.String(), otherUserID.String(), userID.String())
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

	_, err = s.db.ExecContext(ctx, `
		UPDATE messages
		SET is_read = 1
		WHERE receiver_id = ? AND sender_id = ? AND is_read = 0
	`, userID.String(), otherUserID.String())
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления статуса прочтения: %w", err)
	}

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
func (s *SQLiteStore) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE receiver_id = ? AND is_read = 0
	`, userID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета непрочитанных сообщений: %w", err)
	}
	return count, nil
}

// ChatPartners возвращает пользователей, с которыми есть переписка
func (s *SQLiteStore) ChatPartners(ctx context.Context, userID uuid.UUID) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT u.id, u.username, u.display_name, u.avatar_url
		FROM users u
		JOIN messages m ON (m.sender_id = u.id AND m.receiver_id = ?)
		               OR (m.receiver_id = u.id AND m.sender_id = ?)
		ORDER BY u.username ASC
	`, userID.String(), userID.String())
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
