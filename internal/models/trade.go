package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы предложения обмена. Статусы accepted, rejected и canceled
// являются терминальными: дальнейшие переходы запрещены.
const (
	TradeStatusPending  = "pending"
	TradeStatusAccepted = "accepted"
	TradeStatusRejected = "rejected"
	TradeStatusCanceled = "canceled"
)

// TradeOffer представляет предложение об обмене предметами
type TradeOffer struct {
	ID              uuid.UUID `json:"id"`
	RequesterID     uuid.UUID `json:"requester_id"`
	ReceiverID      uuid.UUID `json:"receiver_id"`
	OfferedItemID   uuid.UUID `json:"offered_item_id"`
	RequestedItemID uuid.UUID `json:"requested_item_id"`
	Status          string    `json:"status"` // pending, accepted, rejected, canceled
	Message         string    `json:"message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Дополнительные поля для API
	OfferedItem   *Item `json:"offered_item,omitempty"`
	RequestedItem *Item `json:"requested_item,omitempty"`
	Requester     *User `json:"requester,omitempty"`
	Receiver      *User `json:"receiver,omitempty"`
}

// IsTerminal сообщает, находится ли предложение в терминальном статусе
func (t *TradeOffer) IsTerminal() bool {
	return t.Status != TradeStatusPending
}
