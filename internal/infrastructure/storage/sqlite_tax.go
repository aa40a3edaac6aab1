package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
)

type sqliteTaxProfileRepository struct {
	db *sql.DB
}

// NewSQLiteTaxProfileRepository SQLite asosidagi soliq profili repository.
// Har bir saqlash yangi qator qo'shadi, Latest eng oxirgisini qaytaradi.
func NewSQLiteTaxProfileRepository(db *sql.DB) repository.TaxProfileRepository {
	return &sqliteTaxProfileRepository{db: db}
}

// Save profilni saqlash
func (s *sqliteTaxProfileRepository) Save(ctx context.Context, profile entity.TaxProfile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("profilni kodlab bo'lmadi: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO tax_profiles (user_id, saved_at, payload) VALUES (?, ?, ?)`,
		profile.UserID, toUnixNano(profile.SavedAt), string(payload))
	return err
}

// Latest oxirgi profil
func (s *sqliteTaxProfileRepository) Latest(ctx context.Context, userID string) (*entity.TaxProfile, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM tax_profiles WHERE user_id = ? ORDER BY saved_at DESC, rowid DESC LIMIT 1`, userID).
		Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	var profile entity.TaxProfile
	if err := json.Unmarshal([]byte(payload), &profile); err != nil {
		return nil, fmt.Errorf("profilni o'qib bo'lmadi: %w", err)
	}
	return &profile, nil
}
