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

// CreateItem создает новый предмет, принадлежащий пользователю
func (s *PostgresStore) CreateItem(ctx context.Context, ownerID uuid.UUID, name, description, imageURL string) (*models.Item, error) {
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

	_, err = s.pool.Exec(ctx, `
        INSERT INTO items (id, owner_id, name, description, image_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, item.ID, item.OwnerID, item.Name, item.Description, item.ImageURL, item.CreatedAt, item.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("ошибка создания предмета: %w", err)
	}

	return &item, nil
}

// GetItem возвращает предмет вместе с краткой информацией о владельце
func (s *PostgresStore) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := s.pool.QueryRow(ctx, `
        SELECT id, owner_id, name, description, image_url, created_at, updated_at
        FROM items
        WHERE id = $1
    `, id).Scan(&item.ID, &item.OwnerID, &item.Name, &item.Description, &item.ImageURL, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка запроса предмета: %w", err)
	}

	item.Owner = s.getUserSummary(ctx, item.OwnerID)
	return &item, nil
}

// ListItemsByOwner возвращает предметы пользователя (новые по ID первыми)
func (s *PostgresStore) ListItemsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Item, error) {
	return s.listItems(ctx, `
        SELECT id, owner_id, name, description, image_url, created_at, updated_at
        FROM items
        WHERE owner_id = $1
        ORDER BY created_at DESC, id DESC
    `, ownerID)
}

// ListOtherItems возвращает предметы всех остальных пользователей,
// от новых к старым (витрина для обмена)
func (s *PostgresStore) ListOtherItems(ctx context.Context, excludeOwnerID uuid.UUID) ([]models.Item, error) {
	items, err := s.listItems(ctx, `
        SELECT id, owner_id, name, description, image_url, created_at, updated_at
        FROM items
        WHERE owner_id != $1
        ORDER BY created_at DESC
    `, excludeOwnerID)
	if err != nil {
		return nil, err
	}

	// Для витрины добавляем информацию о владельцах
	for i := range items {
		items[i].Owner = s.getUserSummary(ctx, items[i].OwnerID)
	}
	return items, nil
}

func (s *PostgresStore) listItems(ctx context.Context, query string, args ...interface{}) ([]models.Item, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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
func (s *PostgresStore) getItemSummary(ctx context.Context, id uuid.UUID) *models.Item {
	var item models.Item
	err := s.pool.QueryRow(ctx, `
        SELECT id, owner_id, name, description, image_url
        FROM items
        WHERE id = $1
    `, id).Scan(&item.ID, &item.OwnerID, &item.Name, &item.Description, &item.ImageURL)
	if err != nil {
		return nil
	}
	return &item
}
