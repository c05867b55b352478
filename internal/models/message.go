package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageMaxLen ограничивает длину текста личного сообщения
const MessageMaxLen = 1000

// Message представляет личное сообщение между двумя пользователями
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	SentAt     time.Time `json:"sent_at"`

	// Дополнительные поля для API
	Sender *User `json:"sender,omitempty"`
}
