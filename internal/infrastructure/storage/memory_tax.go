package storage

import (
	"context"
	"sync"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
)

type memoryTaxProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]entity.TaxProfile
}

// NewMemoryTaxProfileRepository in-memory soliq profili repository
func NewMemoryTaxProfileRepository() repository.TaxProfileRepository {
	return &memoryTaxProfileRepository{
		profiles: make(map[string]entity.TaxProfile),
	}
}

// Save profilni saqlash (oxirgisi ustun)
func (m *memoryTaxProfileRepository) Save(ctx context.Context, profile entity.TaxProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[profile.UserID] = profile
	return nil
}

// Latest oxirgi profil
func (m *memoryTaxProfileRepository) Latest(ctx context.Context, userID string) (*entity.TaxProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, ok := m.profiles[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return &profile, nil
}
