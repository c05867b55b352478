package models

import (
	"time"

	"github.com/google/uuid"
)

// Ограничения на поля предмета
const (
	ItemNameMaxLen        = 100
	ItemDescriptionMaxLen = 500

	// DefaultItemImageURL используется, если изображение не загружено
	DefaultItemImageURL = "/images/no-image.jpg"
)

// Item представляет предмет, выставленный на обмен
type Item struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Дополнительные поля для API
	Owner *User `json:"owner,omitempty"`
}
