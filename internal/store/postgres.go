package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajivgeraev/barter-api/internal/models"
)

// pgUniqueViolation — код ошибки Postgres для нарушения уникальности
const pgUniqueViolation = "23505"

// PostgresStore реализует Store поверх пула соединений pgx
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore создает новый экземпляр PostgresStore
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close закрывает пул соединений
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping проверяет соединение с базой данных
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUser создает нового пользователя с уникальным именем
func (s *PostgresStore) CreateUser(ctx context.Context, username, passwordHash, displayName, email string) (*models.User, error) {
	user := models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		Email:        email,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	_, err := s.pool.Exec(ctx, `
        INSERT INTO users (id, username, password_hash, display_name, email, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, user.ID, user.Username, user.PasswordHash, user.DisplayName, user.Email, user.CreatedAt, user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	return &user, nil
}

// GetUserByID возвращает пользователя по его ID
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
        SELECT id, username, password_hash, display_name, email, avatar_url, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id))
}

// GetUserByUsername возвращает пользователя по имени
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
        SELECT id, username, password_hash, display_name, email, avatar_url, created_at, updated_at
        FROM users
        WHERE username = $1
    `, username))
}

// SearchUsers ищет пользователей по имени или отображаемому имени,
// исключая самого ищущего. Пустой запрос возвращает всех остальных.
func (s *PostgresStore) SearchUsers(ctx context.Context, excludeID uuid.UUID, query string) ([]models.User, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"

	rows, err := s.pool.Query(ctx, `
        SELECT id, username, password_hash, display_name, email, avatar_url, created_at, updated_at
        FROM users
        WHERE id != $1 AND (username ILIKE $2 OR display_name ILIKE $2)
        ORDER BY username ASC
        LIMIT 100
    `, excludeID, pattern)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска пользователей: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		users = append(users, u.PublicProfile())
	}
	return users, rows.Err()
}

func (s *PostgresStore) scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка запроса пользователя: %w", err)
	}
	return &u, nil
}

// getUserSummary возвращает краткую информацию о пользователе для вложенных полей API
func (s *PostgresStore) getUserSummary(ctx context.Context, id uuid.UUID) *models.User {
	var u models.User
	err := s.pool.QueryRow(ctx, `
        SELECT id, username, display_name, avatar_url
        FROM users
        WHERE id = $1
    `, id).Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL)
	if err != nil {
		return nil
	}
	return &u
}
