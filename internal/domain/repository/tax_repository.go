package repository

import (
	"context"
	"errors"

	"github.com/fingenie/assistant/internal/domain/entity"
)

// ErrProfileNotFound saqlangan soliq profili yo'q
var ErrProfileNotFound = errors.New("tax profile not found")

// TaxProfileRepository soliq ma'lumotlarini saqlash
type TaxProfileRepository interface {
	// Save profilni saqlash
	Save(ctx context.Context, profile entity.TaxProfile) error

	// Latest foydalanuvchining oxirgi saqlangan profili
	Latest(ctx context.Context, userID string) (*entity.TaxProfile, error)
}
