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

// CreateItem создает новый предмет, принадлежащий пользователю
func (s *SQLiteStore) CreateItem(ctx context.Context, ownerID uuid.UUID, name, description, imageURL string) (*models.Item, error) {
	name, description, imageURL, err := normalizeItemFields(name, description, imageURL)
	if err != nil {
		return nil, err
	}

	item := models.Item{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		ImageURL:    imageURL,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (id, owner_id, name, description, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.ID.String(), item.OwnerID.String(), item.Name, item.Description, item.ImageURL, item.CreatedAt, item.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("ошибка создания предмета: %w", err)
	}

	return &item, nil
}

// GetItem возвращает предмет вместе с краткой информацией о владельце
func (s *SQLiteStore) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, description, image_url, created_at, updated_at
		FROM items
		WHERE id = ?
	`, id.String()).Scan(&item.ID, &item.OwnerID, &item.Name, &item.Description, &item.ImageURL, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка запроса предмета: %w", err)
	}

	item.Owner = s.getUserSummary(ctx, item.OwnerID)
	return &item, nil
}

// ListItemsByOwner возвращает предметы пользователя (новые первыми)
func (s *SQLiteStore) ListItemsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Item, error) {
	return s.listItems(ctx, `
		SELECT id, owner_id, name, description, image_url, created_at, updated_at
		FROM items
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
	`, ownerID.String())
}

// ListOtherItems возвращает предметы всех остальных пользователей,
// от новых к старым (витрина для обмена)
func (s *SQLiteStore) ListOtherItems(ctx context.Context, excludeOwnerID uuid.UUID) ([]models.Item, error) {
	items, err := s.listItems(ctx, `
		SELECT id, owner_id, name, description, image_url, created_at, updated_at
		FROM items
		WHERE owner_id != ?
		ORDER BY created_at DESC
	`, excludeOwnerID.String())
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].Owner = s.getUserSummary(ctx, items[i].OwnerID)
	}
	return items, nil
}

func (s *SQLiteStore) listItems(ctx context.Context, query string, args ...interface{}) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса предметов: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Description, &item.ImageURL, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования предмета: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// getItemSummary возвращает краткую информацию о предмете для вложенных полей API
func (s *SQLiteStore) getItemSummary(ctx context.Context, id uuid.UUID) *models.Item {
	var item models.Item
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, description, image_url
		FROM items
		WHERE id = ?
	`, id.String()).Scan(&item.ID, &item.OwnerID, &item.Name, &item.Description, &item.ImageURL)
	if err != nil {
		return nil
	}
	return &item
}
