package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
)

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]entity.User // username -> user
}

// NewMemoryUserRepository in-memory user repository yaratish
func NewMemoryUserRepository() repository.UserRepository {
	return &memoryUserRepository{
		users: make(map[string]entity.User),
	}
}

// Create foydalanuvchini saqlash
func (m *memoryUserRepository) Create(ctx context.Context, user entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.Username]; exists {
		return repository.ErrUserExists
	}
	m.users[user.Username] = user
	return nil
}

// GetByUsername username bo'yicha olish
func (m *memoryUserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[username]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return &user, nil
}

// GetByDID DID bo'yicha olish
func (m *memoryUserRepository) GetByDID(ctx context.Context, did string) (*entity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if strings.EqualFold(user.DID, did) {
			return &user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}
