package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rajivgeraev/barter-api/internal/models"
)

// SQLiteStore реализует Store поверх встраиваемой базы SQLite.
// Используется для локальной разработки и в тестах.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore создает новое хранилище SQLite.
// Если путь пустой, используется "./data/barter.db".
// _txlock=immediate заставляет транзакции сразу брать блокировку на
// запись: конкурирующие принятия обмена выстраиваются в очередь, и
// проигравший видит уже сменившегося владельца.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/barter.db"
	}

	// Убеждаемся, что каталог существует
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema создает таблицы, если их еще нет
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		display_name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '/images/no-image.jpg',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id);

	CREATE TABLE IF NOT EXISTS trade_offers (
		id TEXT PRIMARY KEY,
		requester_id TEXT NOT NULL REFERENCES users(id),
		receiver_id TEXT NOT NULL REFERENCES users(id),
		offered_item_id TEXT NOT NULL REFERENCES items(id),
		requested_item_id TEXT NOT NULL REFERENCES items(id),
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'accepted', 'rejected', 'canceled')),
		message TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trade_offers_receiver ON trade_offers(receiver_id, status);
	CREATE INDEX IF NOT EXISTS idx_trade_offers_requester ON trade_offers(requester_id, status);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL REFERENCES users(id),
		receiver_id TEXT NOT NULL REFERENCES users(id),
		content TEXT NOT NULL,
		is_read INTEGER NOT NULL DEFAULT 0,
		sent_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(receiver_id, is_read);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close закрывает базу данных
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping проверяет соединение с базой данных
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser создает нового пользователя с уникальным именем
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash, displayName, email string) (*models.User, error) {
	user := models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		Email:        email,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, display_name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.ID.String(), user.Username, user.PasswordHash, user.DisplayName, user.Email, user.CreatedAt, user.UpdatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	return &user, nil
}

// GetUserByID возвращает пользователя по его ID
func (s *SQLiteStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, display_name, email, avatar_url, created_at, updated_at
		FROM users
		WHERE id = ?
	`, id.String()))
}

// GetUserByUsername возвращает пользователя по имени
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, display_name, email, avatar_url, created_at, updated_at
		FROM users
		WHERE username = ?
	`, username))
}

// SearchUsers ищет пользователей по имени или отображаемому имени,
// исключая самого ищущего
func (s *SQLiteStore) SearchUsers(ctx context.Context, excludeID uuid.UUID, query string) ([]models.User, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, display_name, email, avatar_url, created_at, updated_at
		FROM users
		WHERE id != ? AND (username LIKE ? OR display_name LIKE ?)
		ORDER BY username ASC
		LIMIT 100
	`, excludeID.String(), pattern, pattern)
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

func (s *SQLiteStore) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка запроса пользователя: %w", err)
	}
	return &u, nil
}

// getUserSummary возвращает краткую информацию о пользователе для вложенных полей API
func (s *SQLiteStore) getUserSummary(ctx context.Context, id uuid.UUID) *models.User {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, display_name, avatar_url
		FROM users
		WHERE id = ?
	`, id.String()).Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL)
	if err != nil {
		return nil
	}
	return &u
}
