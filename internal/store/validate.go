package store

import (
	"strings"
	"unicode/utf8"

	"github.com/rajivgeraev/barter-api/internal/models"
)

// normalizeItemFields проверяет и нормализует поля предмета.
// Пустое после обрезки пробелов название недопустимо.
func normalizeItemFields(name, description, imageURL string) (string, string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", "", ErrInvalidName
	}
	if utf8.RuneCountInString(name) > models.ItemNameMaxLen {
		return "", "", "", ErrNameTooLong
	}

	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > models.ItemDescriptionMaxLen {
		return "", "", "", ErrDescriptionTooLong
	}

	if imageURL == "" {
		imageURL = models.DefaultItemImageURL
	}

	return name, description, imageURL, nil
}

// normalizeMessageContent проверяет текст личного сообщения
func normalizeMessageContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > models.MessageMaxLen {
		return "", ErrContentTooLong
	}
	return content, nil
}
