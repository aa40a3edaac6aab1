package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
)

type sqliteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository SQLite asosidagi user repository
func NewSQLiteUserRepository(db *sql.DB) repository.UserRepository {
	return &sqliteUserRepository{db: db}
}

// Create foydalanuvchini saqlash
func (s *sqliteUserRepository) Create(ctx context.Context, user entity.User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (username, address, did, created_at) VALUES (?, ?, ?, ?)`,
		user.Username, user.Address, user.DID, toUnixNano(user.CreatedAt))
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
		return repository.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("user saqlanmadi: %w", err)
	}
	return nil
}

// GetByUsername username bo'yicha olish
func (s *sqliteUserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return s.getOne(ctx, `SELECT username, address, did, created_at FROM users WHERE username = ?`, username)
}

// GetByDID DID bo'yicha olish
func (s *sqliteUserRepository) GetByDID(ctx context.Context, did string) (*entity.User, error) {
	return s.getOne(ctx, `SELECT username, address, did, created_at FROM users WHERE did = ? COLLATE NOCASE`, did)
}

func (s *sqliteUserRepository) getOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	var user entity.User
	var created int64
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&user.Username, &user.Address, &user.DID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.CreatedAt = fromUnixNano(created)
	return &user, nil
}
