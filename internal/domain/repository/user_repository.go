package repository

import (
	"context"
	"errors"

	"github.com/fingenie/assistant/internal/domain/entity"
)

var (
	// ErrUserNotFound foydalanuvchi topilmadi
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists username band
	ErrUserExists = errors.New("username already exists")
)

// UserRepository ro'yxatdan o'tgan foydalanuvchilar
type UserRepository interface {
	// Create yangi foydalanuvchini saqlash; username band bo'lsa ErrUserExists
	Create(ctx context.Context, user entity.User) error

	// GetByUsername username bo'yicha olish
	GetByUsername(ctx context.Context, username string) (*entity.User, error)

	// GetByDID DID bo'yicha olish
	GetByDID(ctx context.Context, did string) (*entity.User, error)
}
