package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"go.uber.org/zap"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
	"github.com/fingenie/assistant/internal/session"
)

var (
	// ErrAddressMismatch wallet manzili ro'yxatdagidan farq qiladi
	ErrAddressMismatch = errors.New("wallet address does not match registered user")
	// ErrInvalidCredentials username yoki manzil bo'sh
	ErrInvalidCredentials = errors.New("username and address are required")
)

// AuthUseCase ro'yxatdan o'tish va sessiya
type AuthUseCase interface {
	// Register yangi foydalanuvchi va uning sessiyasi
	Register(ctx context.Context, username, address string) (session.Session, error)

	// Login mavjud foydalanuvchi; manzil katta-kichik harfga qaramay mos bo'lishi kerak
	Login(ctx context.Context, username, address string) (session.Session, error)

	// Logout sessiyani tugatish
	Logout(ctx context.Context) error

	// Resolve DID bo'yicha sessiyani tiklash (HTTP header, Telegram)
	Resolve(ctx context.Context, did string) (session.Session, error)
}

type authUseCase struct {
	userRepo repository.UserRepository
	logger   *zap.Logger
}

// NewAuthUseCase yangi AuthUseCase yaratish
func NewAuthUseCase(userRepo repository.UserRepository, logger *zap.Logger) AuthUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authUseCase{
		userRepo: userRepo,
		logger:   logger,
	}
}

// DID "did:ethr:<address>:<uniqueID(username)>"
func DID(address, username string) string {
	return fmt.Sprintf("did:ethr:%s:%s", address, uniqueID(username))
}

// uniqueID username ning 32-bit h*31+c hash i, 8 ta hex raqam
func uniqueID(username string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(username)) {
		h = h*31 + int32(c)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	id := fmt.Sprintf("%08x", abs)
	return id[:8]
}

// Register yangi foydalanuvchini ro'yxatdan o'tkazish
func (u *authUseCase) Register(ctx context.Context, username, address string) (session.Session, error) {
	username, address = strings.TrimSpace(username), strings.TrimSpace(address)
	if username == "" || address == "" {
		return session.Session{}, ErrInvalidCredentials
	}

	user := entity.User{
		Username:  username,
		Address:   address,
		DID:       DID(address, username),
		CreatedAt: time.Now().UTC(),
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		return session.Session{}, fmt.Errorf("failed to register %s: %w", username, err)
	}

	u.logger.Info("user registered", zap.String("username", username), zap.String("did", user.DID))
	return newSession(user), nil
}

// Login mavjud foydalanuvchini kiritish
func (u *authUseCase) Login(ctx context.Context, username, address string) (session.Session, error) {
	username, address = strings.TrimSpace(username), strings.TrimSpace(address)
	if username == "" || address == "" {
		return session.Session{}, ErrInvalidCredentials
	}

	user, err := u.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to login %s: %w", username, err)
	}
	if !strings.EqualFold(user.Address, address) {
		u.logger.Warn("login address mismatch", zap.String("username", username))
		return session.Session{}, ErrAddressMismatch
	}

	u.logger.Info("user logged in", zap.String("username", username), zap.String("did", user.DID))
	return newSession(*user), nil
}

// Logout server tomonda holat yo'q: sessiya faqat kontekstda
func (u *authUseCase) Logout(ctx context.Context) error {
	if s, ok := session.FromContext(ctx); ok {
		u.logger.Info("user logged out", zap.String("username", s.Username))
	}
	return nil
}

// Resolve DID bo'yicha foydalanuvchini topish
func (u *authUseCase) Resolve(ctx context.Context, did string) (session.Session, error) {
	did = strings.TrimSpace(did)
	if did == "" {
		return session.Session{}, session.ErrNoSession
	}
	user, err := u.userRepo.GetByDID(ctx, did)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to resolve %s: %w", did, err)
	}
	return newSession(*user), nil
}

func newSession(user entity.User) session.Session {
	return session.Session{
		UserID:    user.DID,
		Username:  user.Username,
		Address:   user.Address,
		StartedAt: time.Now().UTC(),
	}
}
